package simdscan

import "math"

// ComputeMinMaxInt32 reduces vals to its minimum and maximum. An empty
// slice yields the inverted sentinel pair (max=MinInt32, min=MaxInt32)
// so that folding an empty chunk's result into a running accumulator
// is a no-op (§4.B).
func ComputeMinMaxInt32(vals []int32) (min, max int32) {
	min, max = math.MaxInt32, math.MinInt32
	for _, v := range vals {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// ComputeMinMaxInt64 is ComputeMinMaxInt32 for the 64-bit lane width.
func ComputeMinMaxInt64(vals []int64) (min, max int64) {
	min, max = math.MaxInt64, math.MinInt64
	for _, v := range vals {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// ComputeMinMaxFloat64 reduces vals to its minimum and maximum,
// skipping NaN entries as the spec requires (a NaN compares false
// against everything, so a naive reduction would silently let one
// poison the running min/max; here it is excluded by construction
// instead). An all-NaN or empty input yields NaN/NaN.
func ComputeMinMaxFloat64(vals []float64) (min, max float64) {
	min, max = math.NaN(), math.NaN()
	seen := false
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		if !seen {
			min, max = v, v
			seen = true
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}
