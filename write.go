package vroom

import (
	"fmt"
	"io"
	"os"

	"github.com/csvquery/vroom/internal/column"
	"github.com/csvquery/vroom/internal/writer"
)

// WriteConfig controls how a Table is serialized to the columnar
// on-disk format (§4.H/§6). RowsPerGroup is the writer driver's
// row-group boundary policy, left unspecified by the core spec and
// resolved here the same way the teacher resolves its own tunables:
// a documented default, overridable per call.
type WriteConfig struct {
	RowsPerGroup int // 0 means defaultRowsPerGroup (1<<20 rows)
	BloomPolicy  writer.BloomFilterPolicy
}

const defaultRowsPerGroup = 1 << 20

// WriteTable serializes t to w in the columnar container format,
// splitting it into RowsPerGroup-sized row groups. It is the
// counterpart of ReadAll: ReadAll turns bytes into a Table, WriteTable
// turns a Table back into bytes, closing the loop §6 describes.
func WriteTable(w io.Writer, t *column.Table, cfg WriteConfig) error {
	if cfg.RowsPerGroup <= 0 {
		cfg.RowsPerGroup = defaultRowsPerGroup
	}

	cw := writer.New(w, cfg.BloomPolicy)
	total := t.RowCount()
	for start := 0; start < total || total == 0; start += cfg.RowsPerGroup {
		end := min(start+cfg.RowsPerGroup, total)
		group := sliceTable(t, start, end)
		if err := cw.WriteRowGroup(group); err != nil {
			return fmt.Errorf("vroom: write row group [%d,%d): %w", start, end, err)
		}
		if total == 0 {
			break
		}
	}
	return cw.Close()
}

// WriteFile creates path and writes t to it via WriteTable.
func WriteFile(path string, t *column.Table, cfg WriteConfig) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("vroom: create %s: %w", path, err)
	}
	defer f.Close()
	return WriteTable(f, t, cfg)
}

// sliceTable builds a row-group view over t's columns in [start, end),
// reusing each column's backing arrays (no value copies) since the
// writer only ever reads a column's data, never mutates it.
func sliceTable(t *column.Table, start, end int) *column.Table {
	cols := make([]*column.Column, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = c.Slice(start, end)
	}
	return &column.Table{Columns: cols}
}
