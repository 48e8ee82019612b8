package encoding

// EncodeDeltaLengthByteArray encodes a STRING column's non-null values
// (§4.H): collect their byte lengths, delta-binary-pack the lengths,
// then append the concatenated raw bytes of every non-null value.
// isNull may be nil, meaning no value is null.
func EncodeDeltaLengthByteArray(values []string, isNull []bool) []byte {
	if len(values) == 0 {
		return nil
	}

	lengths := make([]int32, 0, len(values))
	for i, v := range values {
		if isNull == nil || !isNull[i] {
			lengths = append(lengths, int32(len(v)))
		}
	}

	out := EncodeInt32Delta(lengths)
	for i, v := range values {
		if isNull == nil || !isNull[i] {
			out = append(out, v...)
		}
	}
	return out
}
