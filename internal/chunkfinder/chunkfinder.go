// Package chunkfinder splits a buffer into row-aligned, non-overlapping
// ranges so the parallel worker pool in the root vroom package can hand
// one goroutine per chunk without ever letting a row straddle two
// workers (§4.C). It is the Go translation of the teacher's
// Scanner.Scan/findSafeRecordBoundary shape, generalized from a fixed
// newline search to a dialect-aware, quote-parity-aware one following
// original_source's ChunkFinder::find_chunks.
package chunkfinder

import (
	"math/bits"

	"github.com/csvquery/vroom/internal/dialect"
	"github.com/csvquery/vroom/internal/simdscan"
)

// Chunk is a half-open byte range [Start, End) known to start and end
// on a row boundary (never inside a quoted field).
type Chunk struct {
	Start    int
	End      int
	RowCount int
}

// FindChunks partitions buf into chunks targeting targetSize bytes
// each, per §4.C's algorithm: aim at start+targetSize, scan forward
// for the next row terminator outside a quoted field, and if the scan
// makes no progress (a quoted field longer than targetSize) retry with
// a larger target instead of splitting mid-field.
func FindChunks(buf []byte, d dialect.Dialect, targetSize int) []Chunk {
	n := len(buf)
	if n == 0 {
		return nil
	}
	if targetSize <= 0 {
		targetSize = 1
	}

	var chunks []Chunk
	start := 0
	for start < n {
		targetEnd := start + targetSize
		if targetEnd > n {
			targetEnd = n
		}

		var end int
		if targetEnd >= n {
			end = n
		} else {
			rowEnd := findRowEnd(buf, n, targetEnd, d)
			for rowEnd == targetEnd && rowEnd < n {
				targetEnd += targetSize
				if targetEnd > n {
					targetEnd = n
				}
				rowEnd = findRowEnd(buf, n, targetEnd, d)
			}
			end = rowEnd
		}

		rows, _ := CountRows(buf[start:end], d)
		chunks = append(chunks, Chunk{Start: start, End: end, RowCount: rows})
		start = end
	}
	return chunks
}

// findRowEnd returns the offset of the first row boundary at or after
// pos: the byte just past a terminator (LF, or CRLF collapsed to one
// terminator) that lies outside a quoted field. It returns size if no
// such boundary exists before the end of the buffer.
func findRowEnd(buf []byte, size, pos int, d dialect.Dialect) int {
	if pos >= size {
		return size
	}

	for i := pos; i < size; i++ {
		if buf[i] != '\n' {
			continue
		}
		if d.QuoteDisabled {
			return i + 1
		}
		// Quote parity from the start of the buffer must be known before
		// a terminator can be trusted: replay the carry over every byte
		// before the lane that ends at this candidate, then apply the lane.
		laneStart := max0(i - 63)
		carry := quoteParityUpTo(buf[:laneStart], d.Quote)
		quoteBits := laneQuoteBits(buf[laneStart:i+1], d.Quote)
		_, newCarry := simdscan.FindInsideQuoteMask(quoteBits, carry)
		// The prefix XOR carries the lane's parity up to bit 63, so
		// newCarry != 0 exactly when the terminator lies inside a quote.
		if newCarry == 0 {
			return i + 1
		}
	}
	return size
}

func max0(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// quoteParityUpTo recomputes the inside-quote carry for buf[:n] from
// scratch, lane by lane. FindChunks calls this only along the sparse
// set of newline candidates scanned by findRowEnd, not per byte, so
// the O(n) replay per candidate stays cheap relative to the one-time
// full-buffer index pass in §4.D.
func quoteParityUpTo(buf []byte, quoteByte byte) uint64 {
	carry := uint64(0)
	for off := 0; off < len(buf); off += 64 {
		end := off + 64
		if end > len(buf) {
			end = len(buf)
		}
		quoteBits := laneQuoteBits(buf[off:end], quoteByte)
		_, carry = simdscan.FindInsideQuoteMask(quoteBits, carry)
	}
	return carry
}

func laneQuoteBits(lane []byte, quoteByte byte) uint64 {
	mask := simdscan.ComputeQuoteMask(lane, quoteByte)
	if len(mask) == 0 {
		return 0
	}
	return mask[0]
}

// CountRows returns the number of complete rows in buf: the popcount
// of the newline mask ANDed with the complement of the inside-quote
// mask, summed across lanes (§4.C).
func CountRows(buf []byte, d dialect.Dialect) (rows int, endsInQuote bool) {
	nlMask := simdscan.ComputeNewlineMask(buf)
	if d.QuoteDisabled {
		for _, w := range nlMask {
			rows += bits.OnesCount64(w)
		}
		return rows, false
	}

	quoteMask := simdscan.ComputeQuoteMask(buf, d.Quote)
	carry := uint64(0)
	for i, nlWord := range nlMask {
		var quoteWord uint64
		if i < len(quoteMask) {
			quoteWord = quoteMask[i]
		}
		insideMask, newCarry := simdscan.FindInsideQuoteMask(quoteWord, carry)
		rows += bits.OnesCount64(nlWord &^ insideMask)
		carry = newCarry
	}
	return rows, carry != 0
}
