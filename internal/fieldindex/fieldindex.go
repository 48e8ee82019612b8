// Package fieldindex implements the two-pass branchless state machine
// indexer of §4.D: the hardest subsystem in the pipeline. A first pass
// classifies every byte of a chunk (quote, delimiter, newline,
// inside-quote) using the simdscan kernels; a second pass walks the
// resulting field-end bitmap to emit (offset, length) field boundaries
// plus diagnostics, without ever re-scanning the buffer byte by byte
// for the classification itself. It is the Go counterpart of the
// teacher's indexer/scanner.go row-splitting loop, generalized from a
// single delimiter search to the full dialect-aware quote/escape state
// original_source's FieldIndexer (field_indexer.cpp) describes.
package fieldindex

import (
	"github.com/csvquery/vroom/internal/dialect"
	"github.com/csvquery/vroom/internal/errs"
	"github.com/csvquery/vroom/internal/simdscan"
)

// FieldRange is one field's on-wire byte range within the chunk buffer
// passed to Build, offset-relative to that buffer's start. The range
// includes surrounding quotes and any escape bytes (§3): unescaping is
// the materializer's job, not the indexer's.
type FieldRange struct {
	Offset int32
	Length int32
}

// Row is one data row's field boundaries, in column order.
type Row struct {
	Fields []FieldRange
}

// Index is the field boundary table produced for one chunk. It is
// row-major here; the root package's blocked transpose turns it into
// the column-major layout §3 describes once row counts are known.
type Index struct {
	Rows []Row
}

// lane is the number of bytes one classification word covers, fixed
// by simdscan's word-per-64-bytes convention.
const lane = 64

// Build runs the two-pass indexer over buf, a single chunk's bytes
// (§4.D). rowOffset is the absolute row number of buf's first row,
// used only to annotate diagnostics; expectedFields is the field
// count established by the header or a prior chunk's first row (0
// means "not yet known, learn it from this chunk's first row").
//
// Diagnostics are staged in a slice private to this call (§5: "workers
// write to their own private index-segment... no worker touches
// another worker's memory") and flushed into collector in one
// PushBatch at the end, rather than taking collector's mutex once per
// diagnostic. STRICT-mode abort decisions are made locally against
// d.ErrorMode as the scan runs; the batch flush only needs to make the
// shared collector aware of what this chunk found.
func Build(buf []byte, d dialect.Dialect, collector *errs.Collector, rowOffset int64, expectedFields int) *Index {
	if len(buf) == 0 {
		return &Index{}
	}

	quoteBits := classifyQuotes(buf, d)
	sepBits := simdscan.ComputeDelimiterMask(buf, d.Delimiter)
	nlBits := simdscan.ComputeNewlineMask(buf)

	fieldEnds, quotePositions := firstPass(buf, quoteBits, sepBits, nlBits, d)

	var staged []*errs.Error
	if d.ValidateUtf8 {
		if pos, ok := firstInvalidUtf8Continuation(buf); ok {
			staged = append(staged, errs.At(errs.KindInvalidUtf8, "byte is not a valid UTF-8 continuation", rowOffset, pos))
		}
	}

	idx, pageStaged := secondPass(buf, fieldEnds, quotePositions, d, rowOffset, expectedFields)
	staged = append(staged, pageStaged...)

	if collector != nil {
		collector.PushBatch(staged)
	}
	return idx
}

// firstInvalidUtf8Continuation reports the byte offset of the first
// UTF-8 structural violation in buf: a continuation byte (10xxxxxx)
// with no preceding multi-byte lead, or a multi-byte lead whose
// continuation run is short. It is only run when the dialect opts
// into the §4.D INVALID_UTF8_CONTINUATION check, since most CSV
// ingestion does not need strict UTF-8 validation on the hot path.
func firstInvalidUtf8Continuation(buf []byte) (pos int, found bool) {
	i := 0
	for i < len(buf) {
		b := buf[i]
		switch {
		case b < 0x80:
			i++
		case b&0xE0 == 0xC0:
			if !hasContinuationBytes(buf, i+1, 1) {
				return i, true
			}
			i += 2
		case b&0xF0 == 0xE0:
			if !hasContinuationBytes(buf, i+1, 2) {
				return i, true
			}
			i += 3
		case b&0xF8 == 0xF0:
			if !hasContinuationBytes(buf, i+1, 3) {
				return i, true
			}
			i += 4
		default:
			return i, true
		}
	}
	return 0, false
}

func hasContinuationBytes(buf []byte, start, count int) bool {
	if start+count > len(buf) {
		return false
	}
	for i := 0; i < count; i++ {
		if buf[start+i]&0xC0 != 0x80 {
			return false
		}
	}
	return true
}

// classifyQuotes returns the quote-byte positions to feed into the
// inside-quote parity kernel. Double-quote escaping needs no
// adjustment: a `""` pair toggles parity twice, landing back on
// "still inside", which is exactly the desired behavior. Backslash
// escaping does need adjustment, since a single backslash-escaped
// quote must not toggle parity at all; that requires the sequential
// in_quote/backslash_pending walk §4.D calls for, carried across the
// whole chunk rather than recomputed per lane.
func classifyQuotes(buf []byte, d dialect.Dialect) []uint64 {
	if d.QuoteDisabled {
		return nil
	}
	if d.Escape != dialect.EscapeBackslash {
		return simdscan.ComputeQuoteMask(buf, d.Quote)
	}

	n := len(buf)
	out := make([]uint64, (n+63)/64)
	inQuote := false
	pending := false
	for i := 0; i < n; i++ {
		c := buf[i]
		if pending {
			pending = false
			continue
		}
		if c == d.Quote {
			out[i/lane] |= 1 << uint(i%lane)
			inQuote = !inQuote
		} else if inQuote && c == '\\' {
			pending = true
		}
	}
	return out
}

// firstPass computes, per lane, field_ends = (sep|nl) &^ inside_quote
// (§4.D step 4) and records the position of every quote byte set in
// quoteBits, ascending. Whether a quote is misplaced depends on the
// field it falls in, which only the second pass knows.
func firstPass(buf []byte, quoteBits, sepBits, nlBits []uint64, d dialect.Dialect) (fieldEnds []uint64, quotePositions []int) {
	words := (len(buf) + 63) / 64
	fieldEnds = make([]uint64, words)

	if d.QuoteDisabled {
		for i := 0; i < words; i++ {
			fieldEnds[i] = wordAt(sepBits, i) | wordAt(nlBits, i)
		}
		return fieldEnds, nil
	}

	carry := uint64(0)
	for i := 0; i < words; i++ {
		qWord := wordAt(quoteBits, i)
		insideMask, newCarry := simdscan.FindInsideQuoteMask(qWord, carry)
		carry = newCarry
		fieldEnds[i] = (wordAt(sepBits, i) | wordAt(nlBits, i)) &^ insideMask

		for b := qWord; b != 0; {
			bitIdx := trailingZeros64(b)
			quotePositions = append(quotePositions, i*lane+bitIdx)
			b &= b - 1
		}
	}
	return fieldEnds, quotePositions
}

func wordAt(words []uint64, i int) uint64 {
	if i < len(words) {
		return words[i]
	}
	return 0
}

func trailingZeros64(x uint64) int {
	n := 0
	for x&1 == 0 {
		x >>= 1
		n++
	}
	return n
}

// secondPass walks fieldEnds in byte order, materializing (offset,
// length) field ranges and closing rows on an unescaped newline
// (§4.D). quotePositions, sorted ascending by construction, feeds
// the QUOTE_IN_UNQUOTED_FIELD check: a quote inside a field whose
// first byte is not the quote byte is malformed.
//
// Diagnostics are staged into the returned slice rather than pushed
// into a shared collector directly; the abort decision is made
// locally against d.ErrorMode so the scan can stop as soon as one
// STRICT-mode failure is staged, without taking any lock.
func secondPass(buf []byte, fieldEnds []uint64, quotePositions []int, d dialect.Dialect, rowOffset int64, expectedFields int) (*Index, []*errs.Error) {
	idx := &Index{}
	n := len(buf)
	quotePos := 0

	fieldStart := 0
	var fields []FieldRange
	var staged []*errs.Error
	row := rowOffset
	aborted := false

	abort := func(e *errs.Error) bool {
		staged = append(staged, e)
		if d.ErrorMode == errs.Strict {
			aborted = true
		}
		return aborted
	}

	// checkQuoteMisuse flags a quote byte appearing anywhere inside a
	// field that did not open as a quoted field: a bare quote at
	// fieldStart is a legitimate opener, and any quote after that is
	// either the matching closer or part of a "" escape pair, both
	// handled by parity cancellation rather than flagged here.
	checkQuoteMisuse := func(end int) {
		unquotedField := fieldStart >= n || buf[fieldStart] != d.Quote
		for quotePos < len(quotePositions) && quotePositions[quotePos] < end {
			quotePos++
			if unquotedField {
				if abort(errs.At(errs.KindQuoteInUnquotedField, "quote byte inside unquoted field content", row, len(fields))) {
					return
				}
			}
		}
	}

	flushField := func(end int, terminatorIsNewline bool) {
		checkQuoteMisuse(end)
		length := end - fieldStart
		if terminatorIsNewline && length > 0 && buf[end-1] == '\r' {
			length--
		}
		fields = append(fields, FieldRange{Offset: int32(fieldStart), Length: int32(length)})
		fieldStart = end + 1
	}

	closeRow := func() {
		if d.SkipEmptyRows && len(fields) == 1 && fields[0].Length == 0 {
			fields = nil
			row++
			return
		}
		if expectedFields == 0 {
			expectedFields = len(fields)
		} else if len(fields) != expectedFields {
			kind := errs.KindFieldCountMismatch
			msg := "row has a different number of fields than the header"
			if abort(errs.At(kind, msg, row, len(fields))) {
				return
			}
			if len(fields) < expectedFields {
				for len(fields) < expectedFields {
					fields = append(fields, FieldRange{Offset: int32(fieldStart), Length: 0})
				}
			} else {
				fields = fields[:expectedFields]
			}
		}
		idx.Rows = append(idx.Rows, Row{Fields: fields})
		fields = nil
		row++
	}

	for i := 0; i < n && !aborted; i++ {
		if i == fieldStart && len(fields) == 0 {
			if consumed, isComment := commentRowEnd(buf, i, d); isComment {
				fieldStart = consumed
				row++
				i = consumed - 1
				continue
			}
		}

		word := wordAt(fieldEnds, i/lane)
		if word&(1<<uint(i%lane)) == 0 {
			continue
		}
		if buf[i] == '\n' {
			flushField(i, true)
			if aborted {
				break
			}
			closeRow()
		} else {
			flushField(i, false)
		}
	}

	if aborted {
		return idx, staged
	}

	if fieldStart < n || len(fields) > 0 {
		// A last field that opens with a quote while the chunk ends with
		// quote parity still open is unterminated; chunkfinder guarantees
		// this only happens for a genuinely malformed final chunk.
		unterminated := !d.QuoteDisabled && fieldStart < n && buf[fieldStart] == d.Quote && insideQuoteAtEnd(buf, d)
		flushField(n, false)
		if unterminated && abort(errs.At(errs.KindUnterminatedQuote, "quoted field not closed before end of chunk", row, len(fields)-1)) {
			return idx, staged
		}
		closeRow()
	}

	return idx, staged
}

// commentRowEnd reports whether the row starting at pos is a comment
// row (its first non-whitespace byte matches the dialect's comment
// byte) and, if so, the position just past that row's terminator —
// the whole row is dropped from the index, not just the prefix (§4.D).
func commentRowEnd(buf []byte, pos int, d dialect.Dialect) (consumed int, isComment bool) {
	if !d.HasComment {
		return 0, false
	}
	n := len(buf)
	i := pos
	for i < n && (buf[i] == ' ' || buf[i] == '\t') {
		i++
	}
	if i >= n || buf[i] != d.Comment {
		return 0, false
	}
	for i < n && buf[i] != '\n' {
		i++
	}
	if i < n {
		i++
	}
	return i, true
}

// insideQuoteAtEnd recomputes quote parity for the whole buffer from
// scratch; only called on the rare abort path so its O(n) cost never
// taxes the common case.
func insideQuoteAtEnd(buf []byte, d dialect.Dialect) bool {
	bits := classifyQuotes(buf, d)
	carry := uint64(0)
	words := (len(buf) + 63) / 64
	for i := 0; i < words; i++ {
		_, carry = simdscan.FindInsideQuoteMask(wordAt(bits, i), carry)
	}
	return carry != 0
}
