package fieldindex

import (
	"testing"

	"github.com/csvquery/vroom/internal/dialect"
	"github.com/csvquery/vroom/internal/errs"
)

func materializeAll(t *testing.T, buf []byte, idx *Index, d dialect.Dialect) [][]string {
	t.Helper()
	var rows [][]string
	for _, row := range idx.Rows {
		var fields []string
		for _, f := range MaterializeRow(buf, row, d) {
			if f.Null {
				fields = append(fields, "<NULL>")
			} else {
				fields = append(fields, f.Value)
			}
		}
		rows = append(rows, fields)
	}
	return rows
}

func TestBuild_SimpleRows(t *testing.T) {
	buf := []byte("1,hello,3.5\n2,world,4.5\n")
	d := dialect.Defaults()
	collector := errs.NewCollector(errs.Permissive, 0)

	idx := Build(buf, d, collector, 0, 0)
	if len(idx.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(idx.Rows))
	}
	rows := materializeAll(t, buf, idx, d)
	want := [][]string{{"1", "hello", "3.5"}, {"2", "world", "4.5"}}
	for i := range want {
		for j := range want[i] {
			if rows[i][j] != want[i][j] {
				t.Fatalf("row %d field %d: got %q, want %q", i, j, rows[i][j], want[i][j])
			}
		}
	}
}

func TestBuild_QuotedFieldWithEmbeddedComma(t *testing.T) {
	buf := []byte(`1,"hello, world",3` + "\n")
	d := dialect.Defaults()
	collector := errs.NewCollector(errs.Permissive, 0)

	idx := Build(buf, d, collector, 0, 0)
	if len(idx.Rows) != 1 || len(idx.Rows[0].Fields) != 3 {
		t.Fatalf("got rows=%v", idx.Rows)
	}
	got := Materialize(buf, idx.Rows[0].Fields[1], d)
	if got != "hello, world" {
		t.Fatalf("got %q", got)
	}
}

func TestBuild_DoubleQuoteEscape(t *testing.T) {
	buf := []byte(`1,"say ""hi""",3` + "\n")
	d := dialect.Defaults()
	collector := errs.NewCollector(errs.Permissive, 0)

	idx := Build(buf, d, collector, 0, 0)
	got := Materialize(buf, idx.Rows[0].Fields[1], d)
	if got != `say "hi"` {
		t.Fatalf("got %q", got)
	}
}

func TestBuild_NewlineInsideQuotedField(t *testing.T) {
	buf := []byte("1,\"multi\nline\",3\n")
	d := dialect.Defaults()
	collector := errs.NewCollector(errs.Permissive, 0)

	idx := Build(buf, d, collector, 0, 0)
	if len(idx.Rows) != 1 {
		t.Fatalf("embedded newline inside quotes should not split the row, got %d rows", len(idx.Rows))
	}
	got := Materialize(buf, idx.Rows[0].Fields[1], d)
	if got != "multi\nline" {
		t.Fatalf("got %q", got)
	}
}

func TestBuild_BackslashEscape(t *testing.T) {
	buf := []byte(`1,"say \"hi\"",3` + "\n")
	d := dialect.Defaults()
	d.Escape = dialect.EscapeBackslash
	collector := errs.NewCollector(errs.Permissive, 0)

	idx := Build(buf, d, collector, 0, 0)
	got := Materialize(buf, idx.Rows[0].Fields[1], d)
	if got != `say "hi"` {
		t.Fatalf("got %q", got)
	}
}

func TestBuild_SkipsEmptyRows(t *testing.T) {
	buf := []byte("1,2\n\n3,4\n")
	d := dialect.Defaults()
	d.SkipEmptyRows = true
	collector := errs.NewCollector(errs.Permissive, 0)

	idx := Build(buf, d, collector, 0, 0)
	if len(idx.Rows) != 2 {
		t.Fatalf("got %d rows, want 2 (blank row skipped)", len(idx.Rows))
	}
}

func TestBuild_CommentRowSkipped(t *testing.T) {
	buf := []byte("1,2\n# a comment\n3,4\n")
	d := dialect.Defaults()
	d.HasComment = true
	d.Comment = '#'
	collector := errs.NewCollector(errs.Permissive, 0)

	idx := Build(buf, d, collector, 0, 0)
	if len(idx.Rows) != 2 {
		t.Fatalf("got %d rows, want 2 (comment row dropped)", len(idx.Rows))
	}
	rows := materializeAll(t, buf, idx, d)
	if rows[1][0] != "3" {
		t.Fatalf("got %v", rows)
	}
}

func TestBuild_FieldCountMismatch_Permissive(t *testing.T) {
	buf := []byte("1,2,3\n4,5\n")
	d := dialect.Defaults()
	d.ErrorMode = errs.Permissive
	collector := errs.NewCollector(errs.Permissive, 0)

	idx := Build(buf, d, collector, 0, 0)
	if !collector.HasErrors() {
		t.Fatal("expected a FIELD_COUNT_MISMATCH diagnostic")
	}
	if len(idx.Rows[1].Fields) != 3 {
		t.Fatalf("permissive mode should pad the short row to 3 fields, got %d", len(idx.Rows[1].Fields))
	}
}

func TestBuild_FieldCountMismatch_StrictAborts(t *testing.T) {
	buf := []byte("1,2,3\n4,5\n")
	d := dialect.Defaults()
	d.ErrorMode = errs.Strict
	collector := errs.NewCollector(errs.Strict, 0)

	Build(buf, d, collector, 0, 0)
	items := collector.Items()
	if len(items) != 1 || items[0].Kind != errs.KindFieldCountMismatch {
		t.Fatalf("got %v", items)
	}
}

func TestBuild_QuoteInUnquotedField(t *testing.T) {
	buf := []byte(`1,he"llo,3` + "\n")
	d := dialect.Defaults()
	collector := errs.NewCollector(errs.Permissive, 0)

	Build(buf, d, collector, 0, 0)
	items := collector.Items()
	if len(items) != 1 || items[0].Kind != errs.KindQuoteInUnquotedField {
		t.Fatalf("got %v", items)
	}
}

func TestBuild_NoTrailingNewline(t *testing.T) {
	buf := []byte("1,2,3")
	d := dialect.Defaults()
	collector := errs.NewCollector(errs.Permissive, 0)

	idx := Build(buf, d, collector, 0, 0)
	if len(idx.Rows) != 1 || len(idx.Rows[0].Fields) != 3 {
		t.Fatalf("got %v", idx.Rows)
	}
}

func TestBuild_CRLF(t *testing.T) {
	buf := []byte("1,2\r\n3,4\r\n")
	d := dialect.Defaults()
	collector := errs.NewCollector(errs.Permissive, 0)

	idx := Build(buf, d, collector, 0, 0)
	if len(idx.Rows) != 2 {
		t.Fatalf("got %d rows", len(idx.Rows))
	}
	if Materialize(buf, idx.Rows[0].Fields[1], d) != "2" {
		t.Fatalf("CR should be trimmed from the field")
	}
}

func TestBuild_InvalidUtf8ContinuationDetected(t *testing.T) {
	buf := append([]byte("1,"), 0x80, ',', '3', '\n')
	d := dialect.Defaults()
	d.ValidateUtf8 = true
	collector := errs.NewCollector(errs.Permissive, 0)

	Build(buf, d, collector, 0, 0)
	items := collector.Items()
	if len(items) != 1 || items[0].Kind != errs.KindInvalidUtf8 {
		t.Fatalf("got %v", items)
	}
}

func TestBuild_ValidUtf8NotFlagged(t *testing.T) {
	buf := []byte("1,caf\xc3\xa9,3\n")
	d := dialect.Defaults()
	d.ValidateUtf8 = true
	collector := errs.NewCollector(errs.Permissive, 0)

	Build(buf, d, collector, 0, 0)
	if collector.HasErrors() {
		t.Fatalf("valid UTF-8 flagged as invalid: %v", collector.Items())
	}
}

func TestBuild_SpansMultipleLanes(t *testing.T) {
	var buf []byte
	for i := 0; i < 50; i++ {
		buf = append(buf, []byte("aaaaaaaaaa,bbbbbbbbbb,cccccccccc\n")...)
	}
	d := dialect.Defaults()
	collector := errs.NewCollector(errs.Permissive, 0)

	idx := Build(buf, d, collector, 0, 0)
	if len(idx.Rows) != 50 {
		t.Fatalf("got %d rows, want 50", len(idx.Rows))
	}
	if collector.HasErrors() {
		t.Fatalf("unexpected errors: %v", collector.Items())
	}
}
