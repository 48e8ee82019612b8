package writer

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/csvquery/vroom/internal/bloom"
	"github.com/csvquery/vroom/internal/column"
	"github.com/csvquery/vroom/internal/encoding"
	"github.com/csvquery/vroom/internal/typeinfer"
)

// encodeColumn selects §4.H's encoding for col's data type and
// returns the raw (uncompressed) page bytes plus the accumulated
// statistics. STRING always goes through dictionary encoding (§4.H
// calls it out as the one encoding requiring a separate dictionary
// page); BOOL uses the RLE/bit-packed hybrid directly on its 0/1
// values; INT32/INT64 and their DATE (days) and TIMESTAMP (micros)
// counterparts use delta binary packing; FLOAT64 has no delta or
// dictionary analogue in §4.H, so it falls back to a plain fixed-width
// page, the same "Plain" catch-all every columnar-format spec reserves
// for encodings it doesn't special-case.
func encodeColumn(col *column.Column) (PageEncoding, []byte, encoding.ColumnStatistics) {
	switch col.Type {
	case typeinfer.String:
		return EncodingDictionary, nil, stringStatistics(col)
	case typeinfer.Bool:
		return encodeBoolColumn(col)
	case typeinfer.Int32:
		return encodeInt32Values(col, col.Int32s)
	case typeinfer.Date:
		return encodeInt32Values(col, col.Dates)
	case typeinfer.Int64:
		return encodeInt64Values(col, col.Int64s)
	case typeinfer.Timestamp:
		return encodeInt64Values(col, col.Timestamps)
	case typeinfer.Float64:
		return encodeFloat64Column(col)
	default:
		return EncodingPlain, nil, encoding.ColumnStatistics{}
	}
}

func encodeBoolColumn(col *column.Column) (PageEncoding, []byte, encoding.ColumnStatistics) {
	values := make([]uint32, len(col.Bools))
	var acc encoding.StatisticsAccumulator
	for i, v := range col.Bools {
		isNull := col.IsNull(i)
		acc.AddBool(v, isNull)
		if v {
			values[i] = 1
		}
	}
	return EncodingRLE, encoding.EncodeHybridRLE(values, 1), acc.Statistics()
}

func encodeInt32Values(col *column.Column, values []int32) (PageEncoding, []byte, encoding.ColumnStatistics) {
	var acc encoding.StatisticsAccumulator
	for i, v := range values {
		acc.AddInt64(int64(v), col.IsNull(i))
	}
	return EncodingDeltaInt, encoding.EncodeInt32Delta(values), acc.Statistics()
}

func encodeInt64Values(col *column.Column, values []int64) (PageEncoding, []byte, encoding.ColumnStatistics) {
	var acc encoding.StatisticsAccumulator
	for i, v := range values {
		acc.AddInt64(v, col.IsNull(i))
	}
	return EncodingDeltaInt, encoding.EncodeInt64Delta(values), acc.Statistics()
}

func encodeFloat64Column(col *column.Column) (PageEncoding, []byte, encoding.ColumnStatistics) {
	var acc encoding.StatisticsAccumulator
	out := make([]byte, 8*len(col.Float64s))
	for i, v := range col.Float64s {
		acc.AddFloat64(v, col.IsNull(i))
		binary.LittleEndian.PutUint64(out[i*8:], math.Float64bits(v))
	}
	return EncodingPlain, out, acc.Statistics()
}

func stringStatistics(col *column.Column) encoding.ColumnStatistics {
	var acc encoding.StatisticsAccumulator
	for i := 0; i < col.Len(); i++ {
		isNull := col.IsNull(i)
		var v string
		if !isNull {
			v = col.StringAt(i)
		}
		acc.AddString(v, isNull)
	}
	return acc.Statistics()
}

// stringValues and nullValues adapt a Column's pooled string storage
// to the []string/[]bool shape encoding.DictionaryEncode expects.
func stringValues(col *column.Column) []string {
	out := make([]string, col.Len())
	for i := range out {
		if !col.IsNull(i) {
			out[i] = col.StringAt(i)
		}
	}
	return out
}

func nullValues(col *column.Column) []bool {
	out := make([]bool, col.Len())
	for i := range out {
		out[i] = col.IsNull(i)
	}
	return out
}

// buildBloomFilter sizes a filter for col's distinct value count
// (approximated by row count, since an exact distinct count would
// require a second pass) and loads every non-null value's canonical
// byte form, matching the teacher's pattern of keying its row-index
// bloom filter on a value's raw bytes.
func buildBloomFilter(col *column.Column) *bloom.Filter {
	f := bloom.New(col.Len(), 0.01)
	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			continue
		}
		f.Add(bloomKey(col, i))
	}
	return f
}

func bloomKey(col *column.Column, i int) []byte {
	switch col.Type {
	case typeinfer.String:
		return []byte(col.StringAt(i))
	case typeinfer.Int32:
		return []byte(strconv.FormatInt(int64(col.Int32s[i]), 10))
	case typeinfer.Int64:
		return []byte(strconv.FormatInt(col.Int64s[i], 10))
	default:
		return nil
	}
}
