package column

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/csvquery/vroom/internal/dialect"
	"github.com/csvquery/vroom/internal/errs"
	"github.com/csvquery/vroom/internal/typeinfer"
)

// Builder accumulates one column's values row by row (§4.G). Append
// takes an already-unescaped field value (quote/backslash unescaping
// is the scalar line parser's or the fast-path materializer's job, not
// the builder's — see DESIGN.md); a value that fails to parse for the
// builder's type reverts to null and reports a PARSE_FAILURE through
// collector, aborting immediately in STRICT mode.
type Builder struct {
	name       string
	typ        typeinfer.DataType
	dialect    dialect.Dialect
	null       *NullBitmap
	collector  *errs.Collector
	bools      []bool
	int32s     []int32
	int64s     []int64
	float64s   []float64
	dates      []int32
	timestamps []int64
	pool       []byte
	offsets    []uint32
	lengths    []uint32
}

// NewBuilder creates a builder for the given column name and inferred
// type, reporting parse failures through collector. d supplies the
// configured TrueValues/FalseValues literals for Bool columns, the
// same dialect type inference already screened against.
func NewBuilder(name string, typ typeinfer.DataType, d dialect.Dialect, collector *errs.Collector) *Builder {
	return &Builder{
		name:      name,
		typ:       typ,
		dialect:   d,
		null:      newNullBitmap(0),
		collector: collector,
	}
}

// Len reports the number of rows appended so far.
func (b *Builder) Len() int { return b.null.Len() }

// AppendNull pushes an explicit null for this row.
func (b *Builder) AppendNull() {
	b.null.Append(true)
	b.pushZeroValue()
}

// Append parses value for the builder's type and pushes it, reporting
// row/col via the collector on failure. It returns false when STRICT
// mode requires the caller to abort the parse.
func (b *Builder) Append(value string, row int64, col int) (ok bool) {
	switch b.typ {
	case typeinfer.NA:
		b.AppendNull()
		return true
	case typeinfer.Bool:
		return b.appendBool(value, row, col)
	case typeinfer.Int32:
		return b.appendInt32(value, row, col)
	case typeinfer.Int64:
		return b.appendInt64(value, row, col)
	case typeinfer.Float64:
		return b.appendFloat64(value, row, col)
	case typeinfer.Date:
		return b.appendDate(value, row, col)
	case typeinfer.Timestamp:
		return b.appendTimestamp(value, row, col)
	default:
		b.appendString(value)
		return true
	}
}

func (b *Builder) pushZeroValue() {
	switch b.typ {
	case typeinfer.Bool:
		b.bools = append(b.bools, false)
	case typeinfer.Int32:
		b.int32s = append(b.int32s, 0)
	case typeinfer.Int64:
		b.int64s = append(b.int64s, 0)
	case typeinfer.Float64:
		b.float64s = append(b.float64s, 0)
	case typeinfer.Date:
		b.dates = append(b.dates, 0)
	case typeinfer.Timestamp:
		b.timestamps = append(b.timestamps, 0)
	case typeinfer.String:
		b.offsets = append(b.offsets, uint32(len(b.pool)))
		b.lengths = append(b.lengths, 0)
	}
}

func (b *Builder) fail(row int64, col int, value string) bool {
	b.null.Append(true)
	b.pushZeroValue()
	msg := fmt.Sprintf("failed to parse %q as %s", value, b.typ.String())
	abort := b.collector.Push(errs.At(errs.KindParseFailure, msg, row, col))
	return !abort
}

func (b *Builder) appendBool(value string, row int64, col int) bool {
	switch {
	case b.dialect.IsTrueValue(value):
		b.bools = append(b.bools, true)
	case b.dialect.IsFalseValue(value):
		b.bools = append(b.bools, false)
	default:
		return b.fail(row, col, value)
	}
	b.null.Append(false)
	return true
}

func (b *Builder) appendInt32(value string, row int64, col int) bool {
	v, ok := parseBranchlessInt(value)
	if !ok || v < -2147483648 || v > 2147483647 {
		return b.fail(row, col, value)
	}
	b.int32s = append(b.int32s, int32(v))
	b.null.Append(false)
	return true
}

func (b *Builder) appendInt64(value string, row int64, col int) bool {
	v, ok := parseBranchlessInt(value)
	if !ok {
		return b.fail(row, col, value)
	}
	b.int64s = append(b.int64s, v)
	b.null.Append(false)
	return true
}

func (b *Builder) appendFloat64(value string, row int64, col int) bool {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return b.fail(row, col, value)
	}
	b.float64s = append(b.float64s, v)
	b.null.Append(false)
	return true
}

func (b *Builder) appendDate(value string, row int64, col int) bool {
	days, ok := parseDate(value)
	if !ok {
		return b.fail(row, col, value)
	}
	b.dates = append(b.dates, days)
	b.null.Append(false)
	return true
}

func (b *Builder) appendTimestamp(value string, row int64, col int) bool {
	micros, ok := parseTimestamp(value)
	if !ok {
		return b.fail(row, col, value)
	}
	b.timestamps = append(b.timestamps, micros)
	b.null.Append(false)
	return true
}

func (b *Builder) appendString(value string) {
	b.offsets = append(b.offsets, uint32(len(b.pool)))
	b.lengths = append(b.lengths, uint32(len(value)))
	b.pool = append(b.pool, value...)
	b.null.Append(false)
}

// Finalize closes the builder and returns the assembled Column. The
// builder must not be reused afterward.
func (b *Builder) Finalize() *Column {
	return &Column{
		Name:       b.name,
		Type:       b.typ,
		Null:       b.null,
		Bools:      b.bools,
		Int32s:     b.int32s,
		Int64s:     b.int64s,
		Float64s:   b.float64s,
		Dates:      b.dates,
		Timestamps: b.timestamps,
		Pool:       b.pool,
		Offsets:    b.offsets,
		Lengths:    b.lengths,
	}
}

// parseBranchlessInt implements §4.G's "branch-free digit loop" for
// integer columns: a sign check followed by an unconditional
// accumulate-or-reject loop, the same shape as typeinfer's fitsInt32
// overflow check generalized to int64 range.
func parseBranchlessInt(value string) (int64, bool) {
	if value == "" {
		return 0, false
	}
	neg := false
	i := 0
	switch value[0] {
	case '-':
		neg = true
		i = 1
	case '+':
		i = 1
	}
	if i == len(value) {
		return 0, false
	}
	var v uint64
	for ; i < len(value); i++ {
		c := value[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + uint64(c-'0')
		if v > 1<<63 {
			return 0, false
		}
	}
	if neg {
		return -int64(v), true
	}
	if v > 1<<63-1 {
		return 0, false
	}
	return int64(v), true
}

func parseDate(value string) (int32, bool) {
	if len(value) != 10 {
		return 0, false
	}
	normalized := strings.ReplaceAll(value, "/", "-")
	t, err := time.Parse("2006-01-02", normalized)
	if err != nil {
		return 0, false
	}
	return int32(t.Unix() / 86400), true
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func parseTimestamp(value string) (int64, bool) {
	normalized := value
	if len(normalized) > 10 {
		normalized = strings.ReplaceAll(normalized[:10], "/", "-") + normalized[10:]
	}
	if len(normalized) > 10 && normalized[10] == ' ' {
		normalized = normalized[:10] + "T" + normalized[11:]
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, normalized); err == nil {
			return t.UnixMicro(), true
		}
	}
	return 0, false
}
