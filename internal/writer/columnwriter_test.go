package writer

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/csvquery/vroom/internal/column"
	"github.com/csvquery/vroom/internal/dialect"
	"github.com/csvquery/vroom/internal/errs"
	"github.com/csvquery/vroom/internal/typeinfer"
)

func buildColumn(t *testing.T, name string, typ typeinfer.DataType, values []string, nulls []bool) *column.Column {
	t.Helper()
	collector := errs.NewCollector(errs.Strict, 0)
	b := column.NewBuilder(name, typ, dialect.Defaults(), collector)
	for i, v := range values {
		if nulls != nil && nulls[i] {
			b.AppendNull()
			continue
		}
		if !b.Append(v, int64(i), 0) {
			t.Fatalf("append %q failed in strict mode", v)
		}
	}
	return b.Finalize()
}

func readFooter(t *testing.T, data []byte) FooterV1 {
	t.Helper()
	if len(data) < 12 {
		t.Fatalf("file too short: %d bytes", len(data))
	}
	trailer := data[len(data)-8:]
	if !bytes.Equal(trailer, Magic[:]) {
		t.Fatalf("bad magic trailer: %v", trailer)
	}
	lenPrefixOff := len(data) - 12
	footerLen := binary.LittleEndian.Uint32(data[lenPrefixOff : lenPrefixOff+4])
	footerStart := lenPrefixOff - int(footerLen)
	var footer FooterV1
	if err := json.Unmarshal(data[footerStart:lenPrefixOff], &footer); err != nil {
		t.Fatalf("unmarshal footer: %v", err)
	}
	return footer
}

func TestWriteRowGroup_IntAndStringColumns(t *testing.T) {
	idCol := buildColumn(t, "id", typeinfer.Int32, []string{"1", "2", "3"}, nil)
	nameCol := buildColumn(t, "name", typeinfer.String, []string{"alice", "bob", "alice"}, nil)
	table := &column.Table{Columns: []*column.Column{idCol, nameCol}}

	var buf bytes.Buffer
	w := New(&buf, nil)
	if err := w.WriteRowGroup(table); err != nil {
		t.Fatalf("WriteRowGroup: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	footer := readFooter(t, buf.Bytes())
	if footer.Version != 1 {
		t.Fatalf("got version %d", footer.Version)
	}
	if footer.TotalRows != 3 {
		t.Fatalf("got TotalRows=%d, want 3", footer.TotalRows)
	}
	if len(footer.Schema) != 2 || footer.Schema[0].Name != "id" || footer.Schema[1].Name != "name" {
		t.Fatalf("got schema %+v", footer.Schema)
	}
	if len(footer.RowGroups) != 1 || len(footer.RowGroups[0].Columns) != 2 {
		t.Fatalf("got row groups %+v", footer.RowGroups)
	}

	idMeta := footer.RowGroups[0].Columns[0]
	if idMeta.Encoding != EncodingDeltaInt {
		t.Fatalf("id column got encoding %v, want DELTA_BINARY_PACKED", idMeta.Encoding)
	}
	if idMeta.Statistics.MinInt64 != 1 || idMeta.Statistics.MaxInt64 != 3 {
		t.Fatalf("id column stats got %+v", idMeta.Statistics)
	}
	if idMeta.BloomFilterLength == 0 {
		t.Fatal("expected a bloom filter page for an INT32 column under the default policy")
	}

	nameMeta := footer.RowGroups[0].Columns[1]
	if nameMeta.Encoding != EncodingDictionary {
		t.Fatalf("name column got encoding %v, want DICTIONARY", nameMeta.Encoding)
	}
	if nameMeta.DictionaryLength == 0 {
		t.Fatal("dictionary-encoded column should have a non-empty dictionary page")
	}
	if nameMeta.Statistics.MinString != "alice" || nameMeta.Statistics.MaxString != "bob" {
		t.Fatalf("name column stats got %+v", nameMeta.Statistics)
	}

	if footer.Fingerprint == "" {
		t.Fatal("expected a non-empty fingerprint")
	}
}

func TestWriteRowGroup_NullsCountedInStatistics(t *testing.T) {
	col := buildColumn(t, "score", typeinfer.Float64, []string{"1.5", "", "3.5"}, []bool{false, true, false})
	table := &column.Table{Columns: []*column.Column{col}}

	var buf bytes.Buffer
	w := New(&buf, nil)
	if err := w.WriteRowGroup(table); err != nil {
		t.Fatalf("WriteRowGroup: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	footer := readFooter(t, buf.Bytes())
	stats := footer.RowGroups[0].Columns[0].Statistics
	if !stats.HasNull || stats.NullCount != 1 {
		t.Fatalf("got stats %+v, want one null counted", stats)
	}
	if stats.MinFloat64 != 1.5 || stats.MaxFloat64 != 3.5 {
		t.Fatalf("got min/max %v/%v", stats.MinFloat64, stats.MaxFloat64)
	}
}

func TestBloomFilterPolicy_ExcludesFloatByDefault(t *testing.T) {
	col := buildColumn(t, "score", typeinfer.Float64, []string{"1.5", "2.5"}, nil)
	table := &column.Table{Columns: []*column.Column{col}}

	var buf bytes.Buffer
	w := New(&buf, nil)
	if err := w.WriteRowGroup(table); err != nil {
		t.Fatalf("WriteRowGroup: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	footer := readFooter(t, buf.Bytes())
	meta := footer.RowGroups[0].Columns[0]
	if meta.BloomFilterLength != 0 {
		t.Fatal("FLOAT64 column should not get a bloom filter under the default policy")
	}
}

func TestBloomFilterPolicy_CustomPolicyDisablesAll(t *testing.T) {
	col := buildColumn(t, "id", typeinfer.Int32, []string{"1", "2"}, nil)
	table := &column.Table{Columns: []*column.Column{col}}

	var buf bytes.Buffer
	w := New(&buf, func(*column.Column) bool { return false })
	if err := w.WriteRowGroup(table); err != nil {
		t.Fatalf("WriteRowGroup: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	footer := readFooter(t, buf.Bytes())
	if footer.RowGroups[0].Columns[0].BloomFilterLength != 0 {
		t.Fatal("custom policy should have suppressed the bloom filter page")
	}
}

func TestWriteRowGroup_MultipleRowGroupsAccumulateTotalRows(t *testing.T) {
	col1 := buildColumn(t, "id", typeinfer.Int32, []string{"1", "2"}, nil)
	col2 := buildColumn(t, "id", typeinfer.Int32, []string{"3", "4", "5"}, nil)

	var buf bytes.Buffer
	w := New(&buf, nil)
	if err := w.WriteRowGroup(&column.Table{Columns: []*column.Column{col1}}); err != nil {
		t.Fatalf("WriteRowGroup 1: %v", err)
	}
	if err := w.WriteRowGroup(&column.Table{Columns: []*column.Column{col2}}); err != nil {
		t.Fatalf("WriteRowGroup 2: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	footer := readFooter(t, buf.Bytes())
	if footer.TotalRows != 5 {
		t.Fatalf("got TotalRows=%d, want 5", footer.TotalRows)
	}
	if len(footer.RowGroups) != 2 {
		t.Fatalf("got %d row groups, want 2", len(footer.RowGroups))
	}
}

func TestCompressLZ4_PrefixesUncompressedLength(t *testing.T) {
	data := []byte("hello hello hello hello")
	compressed, err := compressLZ4(data)
	if err != nil {
		t.Fatalf("compressLZ4: %v", err)
	}
	if len(compressed) < 4 {
		t.Fatalf("compressed output too short: %d bytes", len(compressed))
	}
	gotLen := binary.LittleEndian.Uint32(compressed[:4])
	if int(gotLen) != len(data) {
		t.Fatalf("got length prefix %d, want %d", gotLen, len(data))
	}
}
