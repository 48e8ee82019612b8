package encoding

import (
	"fmt"
	"reflect"
	"testing"
)

func TestUvarintRoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 127, 128, 300, 1 << 40} {
		buf := AppendUvarint(nil, v)
		got, n := Uvarint(buf)
		if got != v || n != len(buf) {
			t.Fatalf("roundtrip(%d): got %d, n=%d", v, got, n)
		}
	}
}

func TestZigZagRoundTrip(t *testing.T) {
	for _, v := range []int64{0, -1, 1, -2, 2, -1000000, 1000000} {
		got := ZigZagDecode(ZigZagEncode(v))
		if got != v {
			t.Fatalf("roundtrip(%d) = %d", v, got)
		}
	}
}

func TestBitWidth(t *testing.T) {
	cases := []struct {
		max  uint64
		want uint8
	}{
		{0, 0}, {1, 1}, {2, 2}, {3, 2}, {4, 3}, {255, 8}, {256, 9},
	}
	for _, tc := range cases {
		if got := BitWidth(tc.max); got != tc.want {
			t.Errorf("BitWidth(%d) = %d, want %d", tc.max, got, tc.want)
		}
	}
}

func TestRLEEncoder_PureRun(t *testing.T) {
	values := make([]uint32, 20)
	for i := range values {
		values[i] = 5
	}
	data := EncodeHybridRLE(values, BitWidth(5))
	got := DecodeHybridRLE(data, BitWidth(5), len(values))
	if !reflect.DeepEqual(got, values) {
		t.Fatalf("got %v, want %v", got, values)
	}
}

func TestEncodeHybridRLE_BitPackedRoundTrip(t *testing.T) {
	// A non-repeating sequence never triggers an RLE run (8+ repeats),
	// so the whole thing goes through flushBitPacked.
	values := []uint32{0, 1, 2, 3, 0, 1, 2, 3, 0, 1, 2, 3, 0}
	bitWidth := BitWidth(3)
	data := EncodeHybridRLE(values, bitWidth)
	got := DecodeHybridRLE(data, bitWidth, len(values))
	if !reflect.DeepEqual(got, values) {
		t.Fatalf("got %v, want %v", got, values)
	}
}

func TestEncodeHybridRLE_MixedRunsAndBitPackedRoundTrip(t *testing.T) {
	values := []uint32{9, 9, 9, 9, 9, 9, 9, 9, 9, 1, 2, 3, 1, 2, 3, 7, 7, 7, 7, 7, 7, 7, 7}
	bitWidth := BitWidth(9)
	data := EncodeHybridRLE(values, bitWidth)
	got := DecodeHybridRLE(data, bitWidth, len(values))
	if !reflect.DeepEqual(got, values) {
		t.Fatalf("got %v, want %v", got, values)
	}
}

func TestEncodeDefLevels_ZeroNullFastPath(t *testing.T) {
	isNull := make([]bool, 100)
	data := EncodeDefLevels(isNull, 1, 0)
	if len(data) == 0 {
		t.Fatal("expected non-empty output")
	}
	// 4-byte length prefix + a single RLE run header + 1 value byte.
	if len(data) > 4+3 {
		t.Fatalf("fast path should be tiny regardless of row count, got %d bytes", len(data))
	}
}

func TestEncodeDefLevels_WithNulls(t *testing.T) {
	isNull := []bool{false, true, false, false, true}
	data := EncodeDefLevels(isNull, 1, -1)
	if len(data) < 4 {
		t.Fatal("expected at least a length prefix")
	}
}

func TestEncodeInt32Delta_SingleValue(t *testing.T) {
	data := EncodeInt32Delta([]int32{42})
	if len(data) == 0 {
		t.Fatal("expected non-empty header-only output")
	}
	if got := DecodeInt32Delta(data); !reflect.DeepEqual(got, []int32{42}) {
		t.Fatalf("got %v, want [42]", got)
	}
}

func TestEncodeInt32Delta_Monotonic(t *testing.T) {
	values := make([]int32, 300)
	for i := range values {
		values[i] = int32(i * 2)
	}
	data := EncodeInt32Delta(values)
	if len(data) == 0 {
		t.Fatal("expected non-empty output")
	}
	// Sorted data should compress well below the naive 4 bytes/value.
	if len(data) >= len(values)*4 {
		t.Fatalf("delta encoding did not compress: %d bytes for %d values", len(data), len(values))
	}
	if got := DecodeInt32Delta(data); !reflect.DeepEqual(got, values) {
		t.Fatalf("round trip mismatch: got %v, want %v", got, values)
	}
}

// deltaRoundTripSequences exercises the value shapes §8 singles out:
// monotonic runs, flat runs, descending runs, and a signed pseudo-random
// walk, at lengths that span a single block, several blocks, and a
// final partial block/mini-block.
func deltaRoundTripSequences() map[string][]int64 {
	lengths := []int{0, 1, 2, 127, 128, 129, 255, 256, 511, 100000}
	seqs := make(map[string][]int64)
	for _, n := range lengths {
		monotonic := make([]int64, n)
		flat := make([]int64, n)
		descending := make([]int64, n)
		walk := make([]int64, n)
		state := int64(1)
		for i := 0; i < n; i++ {
			monotonic[i] = int64(i) * 3
			flat[i] = 7
			descending[i] = int64(n - i)
			state = state*6364136223846793005 + 1442695040888963407
			walk[i] = state % 1000003
		}
		seqs[fmt.Sprintf("monotonic/%d", n)] = monotonic
		seqs[fmt.Sprintf("flat/%d", n)] = flat
		seqs[fmt.Sprintf("descending/%d", n)] = descending
		seqs[fmt.Sprintf("walk/%d", n)] = walk
	}
	return seqs
}

func TestInt64Delta_RoundTripsAllSequencesUpTo100000(t *testing.T) {
	for name, values := range deltaRoundTripSequences() {
		data := EncodeInt64Delta(values)
		got := DecodeInt64Delta(data)
		if len(values) == 0 {
			if len(got) != 0 {
				t.Fatalf("%s: got %v, want empty", name, got)
			}
			continue
		}
		if !reflect.DeepEqual(got, values) {
			t.Fatalf("%s: round trip mismatch (len got=%d want=%d)", name, len(got), len(values))
		}
	}
}

func TestInt32Delta_RoundTripsAllSequencesUpTo100000(t *testing.T) {
	for name, values64 := range deltaRoundTripSequences() {
		values := make([]int32, len(values64))
		for i, v := range values64 {
			values[i] = int32(v)
		}
		data := EncodeInt32Delta(values)
		got := DecodeInt32Delta(data)
		if len(values) == 0 {
			if len(got) != 0 {
				t.Fatalf("%s: got %v, want empty", name, got)
			}
			continue
		}
		if !reflect.DeepEqual(got, values) {
			t.Fatalf("%s: round trip mismatch (len got=%d want=%d)", name, len(got), len(values))
		}
	}
}

func TestEncodeDeltaLengthByteArray(t *testing.T) {
	values := []string{"a", "bb", "ccc"}
	data := EncodeDeltaLengthByteArray(values, nil)
	if len(data) == 0 {
		t.Fatal("expected non-empty output")
	}
	tail := data[len(data)-6:]
	if string(tail) != "abbccc" {
		t.Fatalf("expected concatenated value bytes at the tail, got %q", tail)
	}
}

func TestEncodeDeltaLengthByteArray_SkipsNulls(t *testing.T) {
	values := []string{"a", "SKIPPED", "ccc"}
	isNull := []bool{false, true, false}
	data := EncodeDeltaLengthByteArray(values, isNull)
	tail := data[len(data)-4:]
	if string(tail) != "accc" {
		t.Fatalf("expected non-null value bytes concatenated, got %q", tail)
	}
}

func TestDictionaryEncode(t *testing.T) {
	values := []string{"x", "y", "x", "z", "y"}
	dict, indices := DictionaryEncode(values, nil)
	want := []string{"x", "y", "z"}
	if !reflect.DeepEqual(dict, want) {
		t.Fatalf("got dict %v, want %v", dict, want)
	}
	for i, idx := range indices {
		if dict[idx] != values[i] {
			t.Fatalf("index %d -> %q, want %q", i, dict[idx], values[i])
		}
	}
}

func TestDictionaryEncode_SkipsNulls(t *testing.T) {
	values := []string{"x", "IGNORED", "y"}
	isNull := []bool{false, true, false}
	_, indices := DictionaryEncode(values, isNull)
	if len(indices) != 2 {
		t.Fatalf("got %d indices, want 2 (null skipped)", len(indices))
	}
}

func TestStatisticsAccumulator_Int64(t *testing.T) {
	var acc StatisticsAccumulator
	acc.AddInt64(5, false)
	acc.AddInt64(1, false)
	acc.AddInt64(9, false)
	acc.AddInt64(0, true)
	stats := acc.Statistics()
	if stats.MinInt64 != 1 || stats.MaxInt64 != 9 {
		t.Fatalf("got min=%d max=%d", stats.MinInt64, stats.MaxInt64)
	}
	if !stats.HasNull || stats.NullCount != 1 {
		t.Fatalf("got HasNull=%v NullCount=%d", stats.HasNull, stats.NullCount)
	}
}

func TestStatisticsAccumulator_FloatNaNTreatedAsNull(t *testing.T) {
	var acc StatisticsAccumulator
	acc.AddFloat64(1.0, false)
	acc.AddFloat64(nanFloat(), false)
	acc.AddFloat64(3.0, false)
	stats := acc.Statistics()
	if stats.MinFloat64 != 1.0 || stats.MaxFloat64 != 3.0 {
		t.Fatalf("got min=%v max=%v", stats.MinFloat64, stats.MaxFloat64)
	}
	if stats.NullCount != 1 {
		t.Fatalf("expected NaN to count as null, got NullCount=%d", stats.NullCount)
	}
}

func nanFloat() float64 {
	var zero float64
	return zero / zero
}

func TestMergeStatistics_Associative(t *testing.T) {
	var a, b, c StatisticsAccumulator
	a.AddInt64(10, false)
	b.AddInt64(-5, false)
	c.AddInt64(3, false)
	c.AddInt64(0, true)

	left := MergeStatistics(MergeStatistics(a.Statistics(), b.Statistics()), c.Statistics())
	right := MergeStatistics(a.Statistics(), MergeStatistics(b.Statistics(), c.Statistics()))
	if left != right {
		t.Fatalf("merge is not associative: %+v vs %+v", left, right)
	}
	if left.MinInt64 != -5 || left.MaxInt64 != 10 || left.NullCount != 1 {
		t.Fatalf("got %+v", left)
	}
}
