package encoding

import (
	"encoding/binary"
	"math/bits"
)

// BitWidth returns ceil(log2(maxValue+1)), the number of bits needed
// to represent any value in [0, maxValue] (§4.H).
func BitWidth(maxValue uint64) uint8 {
	if maxValue == 0 {
		return 0
	}
	return uint8(bits.Len64(maxValue))
}

// RLEEncoder implements the Parquet-style hybrid run-length/bit-packed
// scheme: a run of 8 or more repeated values is emitted as an RLE run,
// everything else is emitted bit-packed in groups of 8 (up to 7 values
// of a run may be packed into the group before it). This is a
// direct port of original_source's HybridRleEncoder (hybrid_rle.cpp),
// buffering up to 64 pending values between flushes.
type RLEEncoder struct {
	bitWidth      uint8
	bytesPerValue int
	output        []byte
	buffered      []uint32
	current       uint32
	repeatCount   int
}

// NewRLEEncoder creates an encoder for values known to fit in bitWidth bits.
func NewRLEEncoder(bitWidth uint8) *RLEEncoder {
	return &RLEEncoder{
		bitWidth:      bitWidth,
		bytesPerValue: int(bitWidth+7) / 8,
	}
}

// Put feeds one more value into the encoder.
func (e *RLEEncoder) Put(value uint32) {
	if len(e.buffered) == 0 {
		e.current = value
		e.repeatCount = 1
		e.buffered = append(e.buffered, value)
		return
	}

	if value == e.current {
		e.repeatCount++
		e.buffered = append(e.buffered, value)

		if e.repeatCount >= 8 {
			nonRepeated := len(e.buffered) - e.repeatCount
			if nonRepeated > 0 {
				// A bit-packed run covers whole groups of 8, so the last
				// partial group borrows its missing values from the run.
				packed := (nonRepeated + 7) / 8 * 8
				e.flushBitPacked(e.buffered[:packed])
				e.repeatCount = len(e.buffered) - packed
				repeated := make([]uint32, e.repeatCount)
				copy(repeated, e.buffered[packed:])
				e.buffered = repeated
			}
		}
	} else {
		if e.repeatCount >= 8 {
			e.flushRLERun()
			e.buffered = e.buffered[:0]
		}
		e.current = value
		e.repeatCount = 1
		e.buffered = append(e.buffered, value)
	}

	if len(e.buffered) >= 64 {
		e.flushBuffered()
	}
}

// Finish flushes any pending values and returns the encoded bytes. The
// encoder must not be reused afterward.
func (e *RLEEncoder) Finish() []byte {
	e.flushBuffered()
	return e.output
}

func (e *RLEEncoder) flushBuffered() {
	if len(e.buffered) == 0 {
		return
	}

	switch {
	case e.repeatCount >= 8 && len(e.buffered) == e.repeatCount:
		e.flushRLERun()
	case e.repeatCount >= 8:
		bitPackedCount := len(e.buffered) - e.repeatCount
		if bitPackedCount > 0 {
			e.flushBitPacked(e.buffered[:bitPackedCount])
		}
		e.flushRLERun()
	default:
		e.flushBitPacked(e.buffered)
	}

	e.buffered = e.buffered[:0]
	e.repeatCount = 0
}

func (e *RLEEncoder) flushRLERun() {
	if e.repeatCount == 0 {
		return
	}
	header := uint64(e.repeatCount) << 1
	e.output = AppendUvarint(e.output, header)
	for b := 0; b < e.bytesPerValue; b++ {
		e.output = append(e.output, byte(e.current>>(uint(b)*8)))
	}
	e.repeatCount = 0
}

func (e *RLEEncoder) flushBitPacked(values []uint32) {
	count := len(values)
	if count == 0 {
		return
	}
	groups := (count + 7) / 8
	header := uint64(groups)<<1 | 1
	e.output = AppendUvarint(e.output, header)

	var buffer uint64
	bitsInBuffer := uint(0)
	for i := 0; i < groups*8; i++ {
		var value uint32
		if i < count {
			value = values[i]
		}
		buffer |= uint64(value) << bitsInBuffer
		bitsInBuffer += uint(e.bitWidth)
		for bitsInBuffer >= 8 {
			e.output = append(e.output, byte(buffer))
			buffer >>= 8
			bitsInBuffer -= 8
		}
	}
	if bitsInBuffer > 0 {
		e.output = append(e.output, byte(buffer))
	}
}

// EncodeHybridRLE runs values through a fresh RLEEncoder at bitWidth
// and returns the encoded bytes.
func EncodeHybridRLE(values []uint32, bitWidth uint8) []byte {
	if len(values) == 0 {
		return nil
	}
	e := NewRLEEncoder(bitWidth)
	for _, v := range values {
		e.Put(v)
	}
	return e.Finish()
}

// DecodeHybridRLE reverses EncodeHybridRLE, reading run headers until
// count values have been produced. A bit-packed run always covers a
// multiple of 8 values (RLEEncoder.flushBitPacked pads the last group
// with zeros); any padding past count is dropped here rather than
// returned to the caller.
func DecodeHybridRLE(data []byte, bitWidth uint8, count int) []uint32 {
	if count == 0 {
		return nil
	}
	bytesPerValue := int(bitWidth+7) / 8
	out := make([]uint32, 0, count)
	pos := 0
	for len(out) < count && pos < len(data) {
		header, n := Uvarint(data[pos:])
		pos += n

		if header&1 == 0 {
			runLen := int(header >> 1)
			var value uint32
			for b := 0; b < bytesPerValue; b++ {
				value |= uint32(data[pos+b]) << uint(8*b)
			}
			pos += bytesPerValue
			for i := 0; i < runLen && len(out) < count; i++ {
				out = append(out, value)
			}
			continue
		}

		groups := int(header >> 1)
		values, rest := bitUnpack(data[pos:], groups*8, bitWidth)
		pos += len(data[pos:]) - len(rest)
		for _, v := range values {
			if len(out) >= count {
				break
			}
			out = append(out, uint32(v))
		}
	}
	return out
}

// EncodeDefLevels encodes a column's definition levels (0 for null,
// maxDefLevel for present) as a length-prefixed hybrid RLE/bit-packed
// block. When nullCount is 0 it takes the fast path from §4.H: a
// single RLE run covering every row, skipping the null bitmap
// entirely. nullCount < 0 means "unknown, count it from isNull".
func EncodeDefLevels(isNull []bool, maxDefLevel uint32, nullCount int) []byte {
	if len(isNull) == 0 {
		return nil
	}
	if nullCount < 0 {
		nullCount = 0
		for _, n := range isNull {
			if n {
				nullCount++
			}
		}
	}

	bitWidth := BitWidth(uint64(maxDefLevel))
	var data []byte

	if nullCount == 0 {
		header := uint64(len(isNull)) << 1
		data = AppendUvarint(data, header)
		bytesPerValue := int(bitWidth+7) / 8
		for b := 0; b < bytesPerValue; b++ {
			data = append(data, byte(maxDefLevel>>(uint(b)*8)))
		}
	} else {
		e := NewRLEEncoder(bitWidth)
		for _, n := range isNull {
			if n {
				e.Put(0)
			} else {
				e.Put(maxDefLevel)
			}
		}
		data = e.Finish()
	}

	out := make([]byte, 4, 4+len(data))
	binary.LittleEndian.PutUint32(out, uint32(len(data)))
	return append(out, data...)
}
