package encoding

// DictionaryEncode builds the two outputs §4.H's dictionary encoding
// implies: a distinct-values dictionary in first-seen order, and the
// per-row index stream into that dictionary (ready for
// EncodeHybridRLE once its bit width is known). isNull rows contribute
// no index entry, matching the definition-level encoding's handling of
// nulls as a separate channel.
func DictionaryEncode(values []string, isNull []bool) (dictionary []string, indices []uint32) {
	index := make(map[string]uint32, len(values))
	indices = make([]uint32, 0, len(values))

	for i, v := range values {
		if isNull != nil && isNull[i] {
			continue
		}
		idx, ok := index[v]
		if !ok {
			idx = uint32(len(dictionary))
			index[v] = idx
			dictionary = append(dictionary, v)
		}
		indices = append(indices, idx)
	}
	return dictionary, indices
}
