//go:build !amd64 && !arm64

package simdscan

func detectCapability() Capability {
	return CapScalar
}
