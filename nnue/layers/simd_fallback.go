//go:build !goexperiment.simd || !amd64

// Scalar fallback used when the experimental SIMD package is unavailable:
// non-AMD64 platforms, or AMD64 builds without GOEXPERIMENT=simd.

package layers

// Linear computes the dense quantized layer (scalar fallback).
func Linear(input []int8, weight []int8, bias []int32, output []int32) {
	refLinear(input, weight, bias, output)
}

// PartialRefresh computes out = bias + sum of active weight rows (scalar fallback).
func PartialRefresh(active []uint16, weight, bias, out []int16) {
	refPartialRefresh(active, weight, bias, out)
}

// PartialUpdate subtracts removed rows and adds added rows in place (scalar fallback).
func PartialUpdate(added, removed []uint16, weight, acc []int16) {
	refPartialUpdate(added, removed, weight, acc)
}

// CReLU16 clamps int16 accumulator lanes to [0, 127] (scalar fallback).
func CReLU16(input []int16, output []int8) {
	refCReLU16(input, output)
}

// CReLU32 clamps int32 lanes to [0, 127] (scalar fallback).
func CReLU32(input []int32, output []int8) {
	refCReLU32(input, output)
}
