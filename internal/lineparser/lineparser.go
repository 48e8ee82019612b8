// Package lineparser implements the scalar single-pass parser of
// §4.E. The reader uses it to parse the header row and the rows
// sampled for type inference; the data pass goes through the two-pass
// indexer instead. It is the Go translation
// of original_source's LineParser::parse_line/parse_header, written
// in the state-machine idiom the teacher's internal/indexer/scanner.go
// uses for its own per-byte loop (explicit in_quote bool, explicit
// field-start offset, no recursion).
package lineparser

import (
	"github.com/csvquery/vroom/internal/dialect"
)

// Field is one materialized field: either a value or an explicit null.
type Field struct {
	Value string
	Null  bool
}

// ParseHeader tokenizes the first row of data into column names,
// applying the same whitespace-trim and quote-unescape rules as a data
// row but never consulting the null-value set (original_source keeps
// parse_header and parse_line as separate entry points for the same
// reason: header names are never nullable).
func ParseHeader(data []byte, d dialect.Dialect) []string {
	fields, _ := tokenize(data, d)
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f
	}
	return out
}

// ParseRow tokenizes one row starting at the beginning of data,
// applying whitespace trimming, quote/backslash unescaping, and
// null-value matching. consumed is the number of bytes through and
// including the row terminator (or len(data) if the buffer ends
// without one).
func ParseRow(data []byte, d dialect.Dialect) (fields []Field, consumed int) {
	raw, n := tokenize(data, d)
	fields = make([]Field, len(raw))
	for i, v := range raw {
		if d.IsNullValue(v) {
			fields[i] = Field{Null: true}
		} else {
			fields[i] = Field{Value: v}
		}
	}
	return fields, n
}

// ParseBuffer runs ParseRow repeatedly over the whole buffer, an
// all-scalar parse of every row.
func ParseBuffer(buf []byte, d dialect.Dialect) [][]Field {
	var rows [][]Field
	pos := 0
	for pos < len(buf) {
		fields, consumed := ParseRow(buf[pos:], d)
		if consumed == 0 {
			break
		}
		if !d.SkipEmptyRows || !isBlankRow(buf[pos:pos+consumed]) {
			rows = append(rows, fields)
		}
		pos += consumed
	}
	return rows
}

// tokenize is the shared state machine behind ParseHeader and
// ParseRow: a single forward pass tracking in_quote and a pending
// backslash-escape flag, splitting on the dialect's separator and
// terminating only at an un-quoted LF (stripping an immediately
// preceding CR) or end of buffer. A bare CR not immediately followed
// by LF is ordinary field content, matching fieldindex.go's secondPass
// and spec §9's resolution of the bare-CR Open Question.
func tokenize(data []byte, d dialect.Dialect) (fields []string, consumed int) {
	if len(data) == 0 {
		return nil, 0
	}

	var field []byte
	inQuote := false
	backslashPending := false
	i := 0

	flush := func() {
		fields = append(fields, trimTrailingSpace(field))
		field = field[:0]
	}

	for ; i < len(data); i++ {
		c := data[i]

		if backslashPending {
			field = append(field, c)
			backslashPending = false
			continue
		}

		if !inQuote && c == '\n' {
			if len(field) > 0 && field[len(field)-1] == '\r' {
				field = field[:len(field)-1]
			}
			flush()
			i++
			return fields, i
		}

		switch {
		case c == d.Quote && !d.QuoteDisabled:
			if inQuote && d.Escape == dialect.EscapeDoubleQuote && i+1 < len(data) && data[i+1] == d.Quote {
				field = append(field, d.Quote)
				i++
			} else {
				inQuote = !inQuote
			}
		case inQuote && d.Escape == dialect.EscapeBackslash && c == '\\':
			backslashPending = true
		case c == d.Delimiter && !inQuote:
			flush()
		default:
			if len(field) == 0 && !inQuote && (c == ' ' || c == '\t') {
				continue
			}
			field = append(field, c)
		}
	}

	// Buffer ended without a terminator: still emit the final field
	// unless the buffer was entirely empty (no fields parsed at all).
	if len(field) > 0 || len(fields) == 0 {
		flush()
	}
	return fields, i
}

// isBlankRow reports whether the raw row bytes (terminator included)
// hold no content per §4.D's skip-empty-rows rule: nothing but an LF
// or CRLF. It inspects bytes rather than parsed fields because an
// empty field is also null under the default null-value set.
func isBlankRow(row []byte) bool {
	if n := len(row); n > 0 && row[n-1] == '\n' {
		row = row[:n-1]
	}
	if n := len(row); n > 0 && row[n-1] == '\r' {
		row = row[:n-1]
	}
	return len(row) == 0
}

func trimTrailingSpace(field []byte) string {
	end := len(field)
	for end > 0 && (field[end-1] == ' ' || field[end-1] == '\t') {
		end--
	}
	return string(field[:end])
}
