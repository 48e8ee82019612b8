// Package encoding implements §4.H's columnar page encodings: varint,
// zigzag, the hybrid RLE/bit-packed scheme used for definition levels,
// delta binary packing for integers, delta-length byte array for
// strings, a simple dictionary encoder, and the column statistics
// accumulator. Every byte-level algorithm here is a direct translation
// of original_source's writer/encoding/*.cpp, field for field — this
// package is the Go half of a format that was designed in C++ first.
package encoding

import "encoding/binary"

// AppendUvarint appends v's LEB128 encoding to dst: 7-bit groups,
// least-significant first, a set continuation bit on every byte but
// the last (§4.H Varint). This is exactly the format Go's own
// encoding/binary already implements, so the writer pages in this
// package go through binary.AppendUvarint/Uvarint directly rather than
// reimplementing byte-shuffling the standard library already gets right.
func AppendUvarint(dst []byte, v uint64) []byte {
	return binary.AppendUvarint(dst, v)
}

// Uvarint decodes a LEB128-encoded value from the front of buf,
// returning the value and the number of bytes consumed (0 on error,
// negative on overflow, per encoding/binary.Uvarint's contract).
func Uvarint(buf []byte) (uint64, int) {
	return binary.Uvarint(buf)
}
