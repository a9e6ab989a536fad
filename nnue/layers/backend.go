package layers

import (
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

// Backend describes the kernel implementation selected for this build and
// host CPU, for the engine's capability report at startup.
func Backend() string {
	if !simdEnabled {
		if runtime.GOARCH == "amd64" && cpuid.CPU.Supports(cpuid.AVX2) {
			return "scalar (rebuild with GOEXPERIMENT=simd for AVX2)"
		}
		return "scalar"
	}

	switch {
	case cpuid.CPU.Supports(cpuid.AVX512VNNI, cpuid.AVX512VL):
		return "simd (AVX-512 VNNI host)"
	case cpuid.CPU.Supports(cpuid.AVX2):
		return "simd (AVX2)"
	default:
		return "simd"
	}
}
