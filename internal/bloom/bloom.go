// Package bloom implements a per-column-chunk bloom filter for
// predicate pushdown (SPEC_FULL.md's domain-stack addition): a reader
// can check a filter before decoding a column chunk's data page and
// skip it outright on a definite miss. The algorithm — double hashing
// over CRC32, optimal m/k sizing — is the teacher's
// internal/common/bloom.go verbatim, repurposed from a row-index
// membership artifact into a per-chunk statistics artifact keyed by
// each column's materialized string form instead of a row key.
package bloom

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
)

// Filter is a space-efficient probabilistic set over a column chunk's
// distinct values.
type Filter struct {
	bits      []byte
	size      int
	hashCount int
	count     int
}

// New creates a filter sized for n expected distinct values at the
// given false-positive rate, per the teacher's m=-n*ln(p)/ln(2)^2,
// k=(m/n)*ln(2) sizing formulas (here using math.Log directly rather
// than the teacher's hand-rolled ln approximation, since this package
// has no R-package-style constraint against importing math).
func New(n int, fpRate float64) *Filter {
	if n < 1 {
		n = 1
	}
	if fpRate <= 0 {
		fpRate = 0.01
	}

	m := int(-float64(n) * math.Log(fpRate) / (math.Ln2 * math.Ln2))
	if m < 1024 {
		m = 1024
	}
	m = ((m + 7) / 8) * 8

	k := int(float64(m) / float64(n) * math.Ln2)
	if k < 1 {
		k = 1
	}
	if k > 10 {
		k = 10
	}

	return &Filter{
		bits:      make([]byte, m/8),
		size:      m,
		hashCount: k,
	}
}

func (f *Filter) positions(key []byte) (h1, h2 uint32) {
	h1 = crc32.ChecksumIEEE(key)
	var buf [256]byte
	reversed := appendReversed(buf[:0], key)
	reversed = append(reversed, "salt"...)
	h2 = crc32.ChecksumIEEE(reversed)
	return h1, h2
}

// Add inserts a value's byte representation into the filter.
func (f *Filter) Add(value []byte) {
	h1, h2 := f.positions(value)
	for i := 0; i < f.hashCount; i++ {
		pos := combine(h1, h2, i) % f.size
		f.bits[pos/8] |= 1 << uint(pos%8)
	}
	f.count++
}

// MightContain reports whether value may be present: false means
// definitely absent, true means possibly present.
func (f *Filter) MightContain(value []byte) bool {
	h1, h2 := f.positions(value)
	for i := 0; i < f.hashCount; i++ {
		pos := combine(h1, h2, i) % f.size
		if f.bits[pos/8]&(1<<uint(pos%8)) == 0 {
			return false
		}
	}
	return true
}

func combine(h1, h2 uint32, i int) int {
	combined := int(h1) + i*int(h2)
	if combined < 0 {
		combined = -combined
	}
	return combined
}

func appendReversed(dst, s []byte) []byte {
	start := len(dst)
	dst = append(dst, s...)
	for i, j := start, len(dst)-1; i < j; i, j = i+1, j-1 {
		dst[i], dst[j] = dst[j], dst[i]
	}
	return dst
}

// Serialize encodes the filter as a 24-byte header (size, hashCount,
// count, all big-endian uint64) followed by the bit array, matching
// the teacher's on-disk layout for its own bloom artifact.
func (f *Filter) Serialize() []byte {
	header := make([]byte, 24)
	binary.BigEndian.PutUint64(header[0:8], uint64(f.size))
	binary.BigEndian.PutUint64(header[8:16], uint64(f.hashCount))
	binary.BigEndian.PutUint64(header[16:24], uint64(f.count))
	return append(header, f.bits...)
}

// Deserialize reconstructs a Filter from bytes produced by Serialize.
func Deserialize(data []byte) (*Filter, error) {
	if len(data) < 24 {
		return nil, fmt.Errorf("bloom: truncated filter header (%d bytes)", len(data))
	}
	return &Filter{
		size:      int(binary.BigEndian.Uint64(data[0:8])),
		hashCount: int(binary.BigEndian.Uint64(data[8:16])),
		count:     int(binary.BigEndian.Uint64(data[16:24])),
		bits:      data[24:],
	}, nil
}

// Count returns the number of values added.
func (f *Filter) Count() int { return f.count }
