// Package dialect holds the CSV variant configuration shared by every
// stage of the pipeline. It mirrors the plain-struct configuration
// style of the teacher's IndexerConfig and WriterConfig: no flag
// parsing, no env lookups, just documented zero-value defaults.
package dialect

import "github.com/csvquery/vroom/internal/errs"

// Escape selects how a quoted field escapes an embedded quote byte.
type Escape int

const (
	EscapeDoubleQuote Escape = iota
	EscapeBackslash
)

// Dialect is immutable once a parse begins (§3 of the spec).
type Dialect struct {
	Delimiter      byte
	Quote          byte
	QuoteDisabled  bool
	Escape         Escape
	Comment        byte
	HasComment     bool
	HasHeader      bool
	SkipEmptyRows  bool
	NullValues     []string
	TrueValues     []string
	FalseValues    []string
	NumThreads     int
	ErrorMode      errs.Mode
	TargetChunkMiB int
	ValidateUtf8   bool
}

// Defaults returns the dialect described in §6 of the spec.
func Defaults() Dialect {
	return Dialect{
		Delimiter:      ',',
		Quote:          '"',
		Escape:         EscapeDoubleQuote,
		HasHeader:      true,
		SkipEmptyRows:  true,
		NullValues:     []string{"", "NA"},
		TrueValues:     []string{"TRUE", "true", "T"},
		FalseValues:    []string{"FALSE", "false", "F"},
		NumThreads:     0, // resolved to logical CPU count by the caller
		ErrorMode:      errs.Strict,
		TargetChunkMiB: 2,
	}
}

// IsNullValue reports whether value matches the configured null set.
// An empty entry in NullValues means "empty field is null". The
// length check ahead of the linear scan is the fast prefilter §4.E
// calls for: most null literals are short (NA, null, NULL), so a
// longer field never has to walk the full set.
func (d Dialect) IsNullValue(value string) bool {
	if len(value) > d.MaxNullLength() {
		return false
	}
	for _, nv := range d.NullValues {
		if value == nv {
			return true
		}
	}
	return false
}

// MaxNullLength returns the longest configured null literal, used as
// a fast length prefilter before the full match (§4.E).
func (d Dialect) MaxNullLength() int {
	max := 0
	for _, nv := range d.NullValues {
		if len(nv) > max {
			max = len(nv)
		}
	}
	return max
}

// IsTrueValue reports a configured boolean-true literal match.
func (d Dialect) IsTrueValue(value string) bool {
	for _, v := range d.TrueValues {
		if value == v {
			return true
		}
	}
	return false
}

// IsFalseValue reports a configured boolean-false literal match.
func (d Dialect) IsFalseValue(value string) bool {
	for _, v := range d.FalseValues {
		if value == v {
			return true
		}
	}
	return false
}
