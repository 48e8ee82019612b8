// Package simdscan provides the portable vector kernels §4.B calls
// for: quote/newline byte classification, the carry-propagated
// inside-quote mask, and numeric min/max reductions. A runtime probe
// detects the best available capability once and caches it for the
// life of the process; every capability runs the same portable SWAR
// kernels, so the probe only reports the tier. The caching follows the
// way the teacher's internal/simd package
// resolves useAVX2/useSSE42 in an init() function — here lazily, via
// sync.Once, following the capability-probe pattern in the sibling
// pack repo shapestone-shape-csv (internal/fastparser/simd/simd.go).
package simdscan

import "sync"

// Capability names a vector instruction set tier, from the hierarchy
// in §4.B: scalar, SSE4, AVX2, AVX-512, NEON, SVE.
type Capability int

const (
	CapScalar Capability = iota
	CapSSE4
	CapAVX2
	CapAVX512
	CapNEON
	CapSVE
)

func (c Capability) String() string {
	switch c {
	case CapSSE4:
		return "SSE4"
	case CapAVX2:
		return "AVX2"
	case CapAVX512:
		return "AVX512"
	case CapNEON:
		return "NEON"
	case CapSVE:
		return "SVE"
	default:
		return "Scalar"
	}
}

var (
	capOnce  sync.Once
	capBest  Capability
	detectFn func() Capability = detectCapability // set per-arch build file
)

// Selected returns the capability chosen for this process. The probe
// runs exactly once; every subsequent call returns the cached value,
// matching the spec's "dispatch selection happens at first call and
// is cached process-wide."
func Selected() Capability {
	capOnce.Do(func() {
		capBest = detectFn()
	})
	return capBest
}

// simdThreshold mirrors original_source's chunk_finder.cpp
// kSimdThreshold (§4.B fallback rule). Nothing in this package reads
// it: inputs of every length go through the same SWAR kernel.
const simdThreshold = 64
