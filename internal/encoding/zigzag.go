package encoding

// ZigZagEncode maps a signed integer to an unsigned one so that small
// magnitudes (positive or negative) both encode to small varints:
// 0, -1, 1, -2, 2, ... -> 0, 1, 2, 3, 4, ... (§4.H ZigZag).
func ZigZagEncode(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

// ZigZagDecode reverses ZigZagEncode.
func ZigZagDecode(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}
