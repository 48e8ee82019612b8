// Package typeinfer implements §4.F's per-column type inference: a
// per-field classifier plus a widening lattice accumulated over a
// row-prefix sample. It is a direct translation of original_source's
// TypeInference::infer_field/wider_type (type_inference.cpp), using
// the same hand-rolled digit scan as the original rather than calling
// into a parsing library, since no pack repo imports one for this.
package typeinfer

import (
	"strconv"

	"github.com/csvquery/vroom/internal/dialect"
	"github.com/csvquery/vroom/internal/lineparser"
)

// DataType is one node of the §4.F widening lattice.
type DataType int

const (
	Unknown DataType = iota
	NA
	Bool
	Int32
	Int64
	Float64
	Date
	Timestamp
	String
)

func (t DataType) String() string {
	switch t {
	case NA:
		return "NA"
	case Bool:
		return "BOOL"
	case Int32:
		return "INT32"
	case Int64:
		return "INT64"
	case Float64:
		return "FLOAT64"
	case Date:
		return "DATE"
	case Timestamp:
		return "TIMESTAMP"
	case String:
		return "STRING"
	default:
		return "UNKNOWN"
	}
}

// rank orders types along the lattice's single upward path toward
// STRING; NA is handled separately since it widens into anything.
var rank = map[DataType]int{
	Unknown:   0,
	Bool:      1,
	Int32:     1,
	Date:      1,
	Int64:     2,
	Timestamp: 2,
	Float64:   3,
	String:    4,
}

// family groups types that widen along the same chain
// (INT32->INT64->FLOAT64->STRING, DATE->TIMESTAMP->STRING, BOOL->STRING).
func family(t DataType) int {
	switch t {
	case Int32, Int64, Float64:
		return 1
	case Date, Timestamp:
		return 2
	case Bool:
		return 3
	default:
		return 0
	}
}

// Wider widens a and b per §4.F: NA widens into anything, anything
// widens into STRING, and two types from different families (e.g. an
// INT32 column that later sees a DATE-shaped value) widen straight to
// STRING since neither is a subtype of the other.
func Wider(a, b DataType) DataType {
	if a == Unknown {
		return b
	}
	if b == Unknown {
		return a
	}
	if a == NA {
		return b
	}
	if b == NA {
		return a
	}
	if a == b {
		return a
	}
	if a == String || b == String {
		return String
	}
	if family(a) != family(b) {
		return String
	}
	if rank[a] > rank[b] {
		return a
	}
	return b
}

// InferField applies the §4.F per-field rule order, checked in order:
// null, boolean, int32, int64, float64, date, timestamp, string.
func InferField(value string, d dialect.Dialect) DataType {
	if value == "" || d.IsNullValue(value) {
		return NA
	}
	if d.IsTrueValue(value) || d.IsFalseValue(value) {
		return Bool
	}
	if isAllDigits(value) {
		if fitsInt32(value) {
			return Int32
		}
		return Int64
	}
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return Float64
	}
	if looksLikeDate(value) {
		return Date
	}
	if looksLikeTimestamp(value) {
		return Timestamp
	}
	return String
}

func isAllDigits(value string) bool {
	i := 0
	if value[0] == '+' || value[0] == '-' {
		i = 1
	}
	if i == len(value) {
		return false
	}
	for ; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return false
		}
	}
	return true
}

// fitsInt32 reports whether value (already known to be all-digits,
// optionally signed) fits in [-2^31, 2^31-1], matching the original's
// digit-accumulation overflow check rather than calling strconv twice.
func fitsInt32(value string) bool {
	negative := value[0] == '-'
	start := 0
	if value[0] == '+' || value[0] == '-' {
		start = 1
	}
	if len(value)-start > 10 {
		return false
	}
	var v int64
	for i := start; i < len(value); i++ {
		v = v*10 + int64(value[i]-'0')
		if v > 2147483648 {
			return false
		}
	}
	if negative {
		return v <= 2147483648
	}
	return v <= 2147483647
}

func isDigitByte(b byte) bool { return b >= '0' && b <= '9' }

// looksLikeDate matches YYYY-MM-DD or YYYY/MM/DD with matching
// separators, per §4.F rule 6.
func looksLikeDate(value string) bool {
	if len(value) != 10 {
		return false
	}
	sep := value[4]
	if sep != '-' && sep != '/' {
		return false
	}
	if value[7] != sep {
		return false
	}
	for _, i := range [...]int{0, 1, 2, 3, 5, 6, 8, 9} {
		if !isDigitByte(value[i]) {
			return false
		}
	}
	return true
}

// looksLikeTimestamp matches YYYY-MM-DD[T ]HH:MM:SS, with any
// trailing fractional seconds or timezone left unvalidated (§4.F rule 7).
func looksLikeTimestamp(value string) bool {
	if len(value) < 19 {
		return false
	}
	sep := value[4]
	if sep != '-' && sep != '/' {
		return false
	}
	if value[7] != sep {
		return false
	}
	if value[10] != 'T' && value[10] != ' ' {
		return false
	}
	if value[13] != ':' || value[16] != ':' {
		return false
	}
	for _, i := range [...]int{0, 1, 2, 3, 5, 6, 8, 9, 11, 12, 14, 15, 17, 18} {
		if !isDigitByte(value[i]) {
			return false
		}
	}
	return true
}

// InferSchema samples up to maxRows data rows (skipping the header
// row when d.HasHeader) from buf and returns the widened DataType per
// column, promoting any column that stayed UNKNOWN (no non-empty value
// seen) to STRING (§4.F).
func InferSchema(buf []byte, d dialect.Dialect, numColumns int, maxRows int) []DataType {
	types := make([]DataType, numColumns)

	if len(buf) == 0 || numColumns == 0 {
		for i := range types {
			types[i] = String
		}
		return types
	}

	pos := 0
	if d.HasHeader {
		_, consumed := lineparser.ParseRow(buf, d)
		pos = consumed
	}

	sampled := 0
	for pos < len(buf) && sampled < maxRows {
		fields, consumed := lineparser.ParseRow(buf[pos:], d)
		if consumed == 0 {
			break
		}
		row := buf[pos : pos+consumed]
		pos += consumed
		if n := len(row); n > 0 && row[n-1] == '\n' {
			row = row[:n-1]
		}
		if n := len(row); n > 0 && row[n-1] == '\r' {
			row = row[:n-1]
		}
		if len(row) == 0 {
			continue // blank row, matches the original's row_size==0 skip
		}
		for col := 0; col < numColumns && col < len(fields); col++ {
			var ft DataType
			if fields[col].Null {
				ft = NA
			} else {
				ft = InferField(fields[col].Value, d)
			}
			types[col] = Wider(types[col], ft)
		}
		sampled++
	}

	for i, t := range types {
		if t == Unknown {
			types[i] = String
		}
	}
	return types
}
