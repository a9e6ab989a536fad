// Package layers implements the quantized kernels of the network:
// the int16 feature-transformer accumulator (refresh and incremental
// update), clipped-ReLU reducers and the int8 dense layer.
//
// Every kernel has a vector implementation selected by build tags
// (simd.go on amd64 with GOEXPERIMENT=simd, simd_fallback.go elsewhere)
// and a scalar reference in this file. Vector and reference versions
// produce identical results; the tests rely on that.
package layers

const (
	// WeightScaleBits is the hidden-layer weight scale (2^6 = 64).
	WeightScaleBits = 6

	// OutputScaleBits is the weight scale of the single-output head (2^4 = 16).
	OutputScaleBits = 4
)

// refLinear is the scalar reference for the dense quantized layer:
// output[o] = (bias[o] + sum_i input[i]*weight[o*I+i]) >> shift.
// The single-output head uses OutputScaleBits, everything else
// WeightScaleBits.
func refLinear(input []int8, weight []int8, bias []int32, output []int32) {
	numInputs := len(input)
	numOutputs := len(output)

	if numOutputs == 1 {
		sum := bias[0]
		for i := 0; i < numInputs; i++ {
			sum += int32(input[i]) * int32(weight[i])
		}
		output[0] = sum >> OutputScaleBits
		return
	}

	for o := 0; o < numOutputs; o++ {
		row := weight[o*numInputs : (o+1)*numInputs]
		sum := bias[o]
		for i := 0; i < numInputs; i++ {
			sum += int32(input[i]) * int32(row[i])
		}
		output[o] = sum >> WeightScaleBits
	}
}

// refPartialRefresh is the scalar reference for the accumulator refresh:
// out = bias + sum of weight rows for the active features.
func refPartialRefresh(active []uint16, weight, bias, out []int16) {
	width := len(out)
	copy(out, bias)
	for _, a := range active {
		row := weight[int(a)*width : (int(a)+1)*width]
		for i := 0; i < width; i++ {
			out[i] += row[i]
		}
	}
}

// refPartialUpdate is the scalar reference for the incremental accumulator
// update: subtract removed rows, add added rows, in place.
func refPartialUpdate(added, removed []uint16, weight, acc []int16) {
	width := len(acc)
	for _, r := range removed {
		row := weight[int(r)*width : (int(r)+1)*width]
		for i := 0; i < width; i++ {
			acc[i] -= row[i]
		}
	}
	for _, a := range added {
		row := weight[int(a)*width : (int(a)+1)*width]
		for i := 0; i < width; i++ {
			acc[i] += row[i]
		}
	}
}

// refCReLU16 is the scalar reference for the int16 -> int8 clipped ReLU.
// Divide-free: clamp(x, 0, 127).
func refCReLU16(input []int16, output []int8) {
	for i, v := range input {
		if v < 0 {
			v = 0
		} else if v > 127 {
			v = 127
		}
		output[i] = int8(v)
	}
}

// refCReLU32 is the scalar reference for the int32 -> int8 clipped ReLU.
// The weight-scale shift already happened inside the dense layer, so this
// only saturates to [0, 127].
func refCReLU32(input []int32, output []int8) {
	for i, v := range input {
		if v < 0 {
			v = 0
		} else if v > 127 {
			v = 127
		}
		output[i] = int8(v)
	}
}
