//go:build arm64

package simdscan

import "golang.org/x/sys/cpu"

func detectCapability() Capability {
	if cpu.ARM64.HasSVE {
		return CapSVE
	}
	// NEON is mandatory on arm64, so any arm64 CPU qualifies.
	return CapNEON
}
