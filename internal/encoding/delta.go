package encoding

import "math/bits"

// Delta Binary Packed block geometry, fixed by the Parquet spec
// original_source's delta_bitpacked.cpp follows (§4.H).
const (
	blockSize      = 128
	miniblockCount = 4
	miniblockSize  = blockSize / miniblockCount
)

// bitWidthForValue returns the number of bits needed to hold value,
// using bits.Len64 for the original's __builtin_clzll-based computation.
func bitWidthForValue(value uint64) uint8 {
	return uint8(bits.Len64(value))
}

func bitPack(values []uint64, bitWidth uint8, output []byte) []byte {
	if bitWidth == 0 {
		return output
	}
	var buffer uint64
	bitsInBuffer := uint(0)
	for _, v := range values {
		buffer |= v << bitsInBuffer
		bitsInBuffer += uint(bitWidth)
		for bitsInBuffer >= 8 {
			output = append(output, byte(buffer))
			buffer >>= 8
			bitsInBuffer -= 8
		}
	}
	if bitsInBuffer > 0 {
		output = append(output, byte(buffer))
	}
	return output
}

// EncodeInt32Delta encodes values using Delta Binary Packed (§4.H):
// header (block size, mini-blocks per block, total count, zigzag
// first value), then per 128-value block a zigzag min-delta, four
// mini-block bit widths, and the bit-packed adjusted deltas.
func EncodeInt32Delta(values []int32) []byte {
	widened := make([]int64, len(values))
	for i, v := range values {
		widened[i] = int64(v)
	}
	return encodeDelta(widened)
}

// EncodeInt64Delta is EncodeInt32Delta for int64 columns.
func EncodeInt64Delta(values []int64) []byte {
	return encodeDelta(values)
}

func encodeDelta(values []int64) []byte {
	if len(values) == 0 {
		return nil
	}

	var out []byte
	out = AppendUvarint(out, blockSize)
	out = AppendUvarint(out, miniblockCount)
	out = AppendUvarint(out, uint64(len(values)))
	out = AppendUvarint(out, ZigZagEncode(values[0]))

	if len(values) == 1 {
		return out
	}

	deltas := make([]int64, len(values)-1)
	for i := 1; i < len(values); i++ {
		deltas[i-1] = values[i] - values[i-1]
	}

	for blockStart := 0; blockStart < len(deltas); blockStart += blockSize {
		blockEnd := blockStart + blockSize
		if blockEnd > len(deltas) {
			blockEnd = len(deltas)
		}
		block := deltas[blockStart:blockEnd]

		minDelta := block[0]
		for _, d := range block[1:] {
			if d < minDelta {
				minDelta = d
			}
		}
		out = AppendUvarint(out, ZigZagEncode(minDelta))

		bitWidths := make([]uint8, miniblockCount)
		adjustedBlock := make([][]uint64, miniblockCount)
		for mb := 0; mb < miniblockCount; mb++ {
			mbStart := mb * miniblockSize
			mbEnd := mbStart + miniblockSize
			if mbStart >= len(block) {
				continue
			}
			if mbEnd > len(block) {
				mbEnd = len(block)
			}
			adjusted := make([]uint64, mbEnd-mbStart)
			var maxAdjusted uint64
			for i, d := range block[mbStart:mbEnd] {
				adjusted[i] = uint64(d - minDelta)
				if adjusted[i] > maxAdjusted {
					maxAdjusted = adjusted[i]
				}
			}
			adjustedBlock[mb] = adjusted
			bitWidths[mb] = bitWidthForValue(maxAdjusted)
		}

		out = append(out, bitWidths...)
		for mb := 0; mb < miniblockCount; mb++ {
			if len(adjustedBlock[mb]) == 0 {
				continue
			}
			out = bitPack(adjustedBlock[mb], bitWidths[mb], out)
		}
	}

	return out
}

// bitUnpack reverses bitPack: it reads exactly count values of
// bitWidth bits each from the front of data and returns them along
// with the unconsumed remainder. Each bitPack call flushes its own
// trailing partial byte, so every mini-block's packed region is
// byte-aligned and must be decoded independently rather than as one
// continuous bitstream across mini-block boundaries.
func bitUnpack(data []byte, count int, bitWidth uint8) (values []uint64, rest []byte) {
	if bitWidth == 0 {
		return make([]uint64, count), data
	}
	values = make([]uint64, count)
	mask := uint64(1)<<bitWidth - 1
	var buffer uint64
	bitsInBuffer := uint(0)
	pos := 0
	for i := 0; i < count; i++ {
		for bitsInBuffer < uint(bitWidth) {
			buffer |= uint64(data[pos]) << bitsInBuffer
			pos++
			bitsInBuffer += 8
		}
		values[i] = buffer & mask
		buffer >>= uint(bitWidth)
		bitsInBuffer -= uint(bitWidth)
	}
	return values, data[pos:]
}

// DecodeInt32Delta reverses EncodeInt32Delta.
func DecodeInt32Delta(data []byte) []int32 {
	widened := decodeDelta(data)
	out := make([]int32, len(widened))
	for i, v := range widened {
		out[i] = int32(v)
	}
	return out
}

// DecodeInt64Delta reverses EncodeInt64Delta.
func DecodeInt64Delta(data []byte) []int64 {
	return decodeDelta(data)
}

func decodeDelta(data []byte) []int64 {
	if len(data) == 0 {
		return nil
	}

	blockSizeHdr, n := Uvarint(data)
	data = data[n:]
	miniblockCountHdr, n := Uvarint(data)
	data = data[n:]
	totalCount, n := Uvarint(data)
	data = data[n:]
	firstZig, n := Uvarint(data)
	data = data[n:]

	values := make([]int64, 0, totalCount)
	prev := ZigZagDecode(firstZig)
	values = append(values, prev)
	if totalCount <= 1 {
		return values
	}

	miniblockSz := int(blockSizeHdr) / int(miniblockCountHdr)
	remaining := int(totalCount) - 1
	bitWidths := make([]uint8, miniblockCountHdr)

	for remaining > 0 {
		minDeltaZig, n := Uvarint(data)
		data = data[n:]
		minDelta := ZigZagDecode(minDeltaZig)

		blockLen := int(blockSizeHdr)
		if blockLen > remaining {
			blockLen = remaining
		}

		copy(bitWidths, data[:miniblockCountHdr])
		data = data[miniblockCountHdr:]

		for mb := 0; mb < int(miniblockCountHdr); mb++ {
			mbStart := mb * miniblockSz
			if mbStart >= blockLen {
				break
			}
			mbEnd := mbStart + miniblockSz
			if mbEnd > blockLen {
				mbEnd = blockLen
			}
			var adjusted []uint64
			adjusted, data = bitUnpack(data, mbEnd-mbStart, bitWidths[mb])
			for _, a := range adjusted {
				prev += int64(a) + minDelta
				values = append(values, prev)
			}
		}
		remaining -= blockLen
	}

	return values
}
