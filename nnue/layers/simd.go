//go:build goexperiment.simd && amd64

// Vector kernels on top of Go's experimental SIMD package (Go 1.26+ with
// GOEXPERIMENT=simd, AMD64 only). All tensors are 32-byte aligned and the
// accumulator width is a multiple of 16 int16 lanes, so the main loops
// run without scalar tails.

package layers

import (
	"simd/archsimd"
)

const (
	// Number of int16 values processed per SIMD iteration (256-bit AVX2)
	simdInt16Width = 16

	// Number of int32 values processed per SIMD iteration (256-bit AVX2)
	simdInt32Width = 8
)

// Linear computes the dense quantized layer using int32 accumulation.
// The int8 multiply has no VPMADDUBSW equivalent in the experimental SIMD
// package yet, so the dot product itself stays scalar; with O=32 and I=512
// this is not the dominant cost of an evaluation.
func Linear(input []int8, weight []int8, bias []int32, output []int32) {
	refLinear(input, weight, bias, output)
}

// PartialRefresh computes out = bias + sum of active weight rows.
func PartialRefresh(active []uint16, weight, bias, out []int16) {
	width := len(out)

	i := 0
	for ; i+simdInt16Width <= width; i += simdInt16Width {
		acc := archsimd.LoadInt16x16(bias[i:])
		for _, a := range active {
			w := archsimd.LoadInt16x16(weight[int(a)*width+i:])
			acc = acc.Add(w)
		}
		archsimd.StoreInt16x16(out[i:], acc)
	}

	// Handle remaining elements
	for ; i < width; i++ {
		v := bias[i]
		for _, a := range active {
			v += weight[int(a)*width+i]
		}
		out[i] = v
	}
}

// PartialUpdate subtracts removed rows and adds added rows in place.
func PartialUpdate(added, removed []uint16, weight, acc []int16) {
	width := len(acc)

	i := 0
	for ; i+simdInt16Width <= width; i += simdInt16Width {
		v := archsimd.LoadInt16x16(acc[i:])
		for _, r := range removed {
			w := archsimd.LoadInt16x16(weight[int(r)*width+i:])
			v = v.Sub(w)
		}
		for _, a := range added {
			w := archsimd.LoadInt16x16(weight[int(a)*width+i:])
			v = v.Add(w)
		}
		archsimd.StoreInt16x16(acc[i:], v)
	}

	// Handle remaining elements
	for ; i < width; i++ {
		v := acc[i]
		for _, r := range removed {
			v -= weight[int(r)*width+i]
		}
		for _, a := range added {
			v += weight[int(a)*width+i]
		}
		acc[i] = v
	}
}

// CReLU16 clamps int16 accumulator lanes to [0, 127] and narrows to int8.
func CReLU16(input []int16, output []int8) {
	n := len(input)

	i := 0
	for ; i+simdInt16Width <= n; i += simdInt16Width {
		v := archsimd.LoadInt16x16(input[i:])

		zero := archsimd.Int16x16{}
		maxVal := archsimd.BroadcastInt16x16(127)
		v = v.Max(zero).Min(maxVal)

		// Narrow to int8 (no saturating pack in the experimental API)
		for j := 0; j < simdInt16Width; j++ {
			output[i+j] = int8(v.Get(j))
		}
	}

	for ; i < n; i++ {
		v := input[i]
		if v < 0 {
			v = 0
		} else if v > 127 {
			v = 127
		}
		output[i] = int8(v)
	}
}

// CReLU32 clamps int32 lanes to [0, 127] and narrows to int8.
func CReLU32(input []int32, output []int8) {
	n := len(input)

	i := 0
	for ; i+simdInt32Width <= n; i += simdInt32Width {
		v := archsimd.LoadInt32x8(input[i:])

		zero := archsimd.Int32x8{}
		maxVal := archsimd.BroadcastInt32x8(127)
		v = v.Max(zero).Min(maxVal)

		for j := 0; j < simdInt32Width; j++ {
			output[i+j] = int8(v.Get(j))
		}
	}

	for ; i < n; i++ {
		v := input[i]
		if v < 0 {
			v = 0
		} else if v > 127 {
			v = 127
		}
		output[i] = int8(v)
	}
}
