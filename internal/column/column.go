// Package column implements §4.G's typed nullable column builders and
// the materialized Column/Table they finalize into. Layout follows the
// teacher's fixed-struct-plus-pool style (internal/common.IndexRecord's
// fixed key array backing variable-length data) generalized from one
// struct per record to one growable column per data type, and its
// per-type dispatch mirrors the shape of solidcoredata-dca's
// ts/fieldcoder.go (a type switch selecting an encode/decode path per
// field kind).
package column

import (
	"fmt"

	"github.com/csvquery/vroom/internal/errs"
	"github.com/csvquery/vroom/internal/typeinfer"
)

// Column is one finalized, typed, nullable vector of values. Exactly
// one of the typed slices is populated, selected by Type; String
// values live in Pool, addressed by (Offsets[i], Lengths[i]).
type Column struct {
	Name string
	Type typeinfer.DataType
	Null *NullBitmap

	Bools      []bool
	Int32s     []int32
	Int64s     []int64
	Float64s   []float64
	Dates      []int32 // days since Unix epoch
	Timestamps []int64 // microseconds since Unix epoch

	Pool    []byte
	Offsets []uint32
	Lengths []uint32
}

// Len returns the column's row count.
func (c *Column) Len() int { return c.Null.Len() }

// IsNull reports whether row i is null.
func (c *Column) IsNull(i int) bool { return c.Null.Get(i) }

// StringAt returns row i's string value. Valid only when Type is
// String; the caller must check IsNull first.
func (c *Column) StringAt(i int) string {
	off, length := c.Offsets[i], c.Lengths[i]
	return string(c.Pool[off : off+length])
}

// Table is a finalized set of same-length columns sharing one schema.
type Table struct {
	Columns []*Column
}

// RowCount returns the shared row count across all columns, or 0 for
// an empty table. A materializer that produces columns of differing
// length has corrupted the table; that can never happen from correct
// input, so it panics rather than returning a misleading count, the
// way the teacher's code never expects to recover from a malformed
// on-disk structure either.
func (t *Table) RowCount() int {
	if len(t.Columns) == 0 {
		return 0
	}
	n := t.Columns[0].Len()
	for _, c := range t.Columns[1:] {
		if c.Len() != n {
			panic(errs.New(errs.KindInternalInvariantViolation,
				fmt.Sprintf("column %q has %d rows, want %d", c.Name, c.Len(), n)))
		}
	}
	return n
}

// ColumnByName returns the column with the given name, or nil.
func (t *Table) ColumnByName(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}
