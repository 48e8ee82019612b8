package fieldindex

import "github.com/csvquery/vroom/internal/dialect"

// Materialize turns one field's raw on-wire range into the unescaped
// string the column builders expect (§4.G's append contract): outer
// quotes are stripped, "" collapses to a literal quote in double-quote
// mode, a backslash suppresses the next byte's escape meaning, and an
// unquoted field's surrounding whitespace is trimmed. This is the
// "fast-path materializer" builder.go's doc comment refers to, the
// counterpart of lineparser.tokenize's inline unescaping for indexed
// (rather than scanned) fields.
func Materialize(buf []byte, r FieldRange, d dialect.Dialect) string {
	start := int(r.Offset)
	end := start + int(r.Length)
	if start < 0 || end > len(buf) || start > end {
		return ""
	}
	raw := buf[start:end]

	if len(raw) == 0 {
		return ""
	}

	quoted := !d.QuoteDisabled && raw[0] == d.Quote && len(raw) >= 1
	if !quoted {
		return string(trimSpace(raw))
	}

	// A well-formed quoted field's raw range is `"..."`; an
	// UNTERMINATED_QUOTE error (already reported by the indexer) may
	// leave the closing quote missing, in which case content runs to
	// the end of the range instead of one byte short of it.
	content := raw[1:]
	if len(content) > 0 && content[len(content)-1] == d.Quote {
		content = content[:len(content)-1]
	}

	out := make([]byte, 0, len(content))
	for i := 0; i < len(content); i++ {
		c := content[i]
		switch {
		case d.Escape == dialect.EscapeDoubleQuote && c == d.Quote && i+1 < len(content) && content[i+1] == d.Quote:
			out = append(out, d.Quote)
			i++
		case d.Escape == dialect.EscapeBackslash && c == '\\' && i+1 < len(content):
			out = append(out, content[i+1])
			i++
		default:
			out = append(out, c)
		}
	}
	return string(out)
}

// MaterializeRow applies Materialize to every field in a row and
// resolves null-value matching, producing the same lineparser.Field
// shape the scalar fallback produces so downstream column builders
// never need to know which path indexed a given row.
func MaterializeRow(buf []byte, row Row, d dialect.Dialect) []Field {
	out := make([]Field, len(row.Fields))
	for i, r := range row.Fields {
		v := Materialize(buf, r, d)
		if d.IsNullValue(v) {
			out[i] = Field{Null: true}
		} else {
			out[i] = Field{Value: v}
		}
	}
	return out
}

// Field mirrors lineparser.Field so MaterializeRow's output plugs into
// the same column-building code regardless of which indexing path
// produced it.
type Field struct {
	Value string
	Null  bool
}

func trimSpace(b []byte) []byte {
	start, end := 0, len(b)
	for start < end && (b[start] == ' ' || b[start] == '\t') {
		start++
	}
	for end > start && (b[end-1] == ' ' || b[end-1] == '\t') {
		end--
	}
	return b[start:end]
}
