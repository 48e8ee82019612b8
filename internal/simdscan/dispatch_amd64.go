//go:build amd64

package simdscan

import "golang.org/x/sys/cpu"

// detectCapability mirrors the teacher's internal/simd/simd_amd64.go
// init() check order: AVX-512 (F+BW) first, then AVX2, then SSE4.2,
// falling back to scalar.
func detectCapability() Capability {
	if cpu.X86.HasAVX512F && cpu.X86.HasAVX512BW {
		return CapAVX512
	}
	if cpu.X86.HasAVX2 {
		return CapAVX2
	}
	if cpu.X86.HasSSE42 {
		return CapSSE4
	}
	return CapScalar
}
