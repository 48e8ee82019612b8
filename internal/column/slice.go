package column

// Slice returns a new Column covering rows [start, end) of c. Typed
// value slices are re-sliced directly (no copy); the null bitmap is
// rebuilt bit by bit since NullBitmap packs 8 rows per byte and a
// sub-range rarely starts on a byte boundary. Used by the writer's
// row-group splitter, the same "view, don't copy" approach §3's Table
// ownership note describes for borrowed string data.
func (c *Column) Slice(start, end int) *Column {
	null := &NullBitmap{bits: make([]byte, (end-start+7)/8)}
	for i := start; i < end; i++ {
		null.Append(c.Null.Get(i))
	}

	out := &Column{Name: c.Name, Type: c.Type, Null: null}
	if c.Bools != nil {
		out.Bools = c.Bools[start:end]
	}
	if c.Int32s != nil {
		out.Int32s = c.Int32s[start:end]
	}
	if c.Int64s != nil {
		out.Int64s = c.Int64s[start:end]
	}
	if c.Float64s != nil {
		out.Float64s = c.Float64s[start:end]
	}
	if c.Dates != nil {
		out.Dates = c.Dates[start:end]
	}
	if c.Timestamps != nil {
		out.Timestamps = c.Timestamps[start:end]
	}
	if c.Offsets != nil {
		out.Pool = c.Pool
		out.Offsets = c.Offsets[start:end]
		out.Lengths = c.Lengths[start:end]
	}
	return out
}
