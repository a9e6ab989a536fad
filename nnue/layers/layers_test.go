package layers

import (
	"testing"
	"unsafe"

	"github.com/mlomb/limbobot/nnue/common"
)

// deterministic pseudo-random stream for test tensors
type lcg struct{ state uint64 }

func (r *lcg) next() int32 {
	r.state = r.state*6364136223846793005 + 1442695040888963407
	return int32(r.state >> 40)
}

// TestLinearMatchesReference verifies the dispatched kernel against the
// plain scalar formula (sum of products + bias, shifted by the weight
// scale) on aligned buffers.
func TestLinearMatchesReference(t *testing.T) {
	const numInputs, numOutputs = 512, 32

	rng := &lcg{state: 1}

	input := common.NewInt8Buffer(numInputs)
	weight := common.NewInt8Buffer(numOutputs * numInputs)
	bias := common.NewInt32Buffer(numOutputs)

	for i := range input.Slice() {
		input.Slice()[i] = int8(rng.next())
	}
	for i := range weight.Slice() {
		weight.Slice()[i] = int8(rng.next())
	}
	for i := range bias.Slice() {
		bias.Slice()[i] = rng.next() % 1000
	}

	output := common.NewInt32Buffer(numOutputs)
	Linear(input.Slice(), weight.Slice(), bias.Slice(), output.Slice())

	for o := 0; o < numOutputs; o++ {
		sum := bias.Slice()[o]
		for i := 0; i < numInputs; i++ {
			sum += int32(input.Slice()[i]) * int32(weight.Slice()[o*numInputs+i])
		}
		want := sum >> WeightScaleBits
		if output.Slice()[o] != want {
			t.Fatalf("output[%d] = %d, want %d", o, output.Slice()[o], want)
		}
	}
}

// TestLinearSingleOutput verifies the O=1 head uses the output scale.
func TestLinearSingleOutput(t *testing.T) {
	const numInputs = 32

	input := common.NewInt8Buffer(numInputs)
	weight := common.NewInt8Buffer(numInputs)
	bias := common.NewInt32Buffer(1)

	for i := 0; i < numInputs; i++ {
		input.Slice()[i] = int8(i)
		weight.Slice()[i] = int8(numInputs - i)
	}
	bias.Slice()[0] = 123

	output := common.NewInt32Buffer(1)
	Linear(input.Slice(), weight.Slice(), bias.Slice(), output.Slice())

	sum := int32(123)
	for i := 0; i < numInputs; i++ {
		sum += int32(i) * int32(numInputs-i)
	}
	if want := sum >> OutputScaleBits; output.Slice()[0] != want {
		t.Fatalf("head output = %d, want %d", output.Slice()[0], want)
	}
}

// TestPartialRefreshUpdate verifies that refreshing with a feature list
// equals starting from a subset and applying incremental updates.
func TestPartialRefreshUpdate(t *testing.T) {
	const numFeatures, width = 96, 256

	rng := &lcg{state: 7}

	weight := common.NewInt16Buffer(numFeatures * width)
	bias := common.NewInt16Buffer(width)
	for i := range weight.Slice() {
		weight.Slice()[i] = int16(rng.next() % 64)
	}
	for i := range bias.Slice() {
		bias.Slice()[i] = int16(rng.next() % 64)
	}

	initial := []uint16{3, 17, 20, 41, 64, 80}
	final := []uint16{3, 5, 17, 41, 80, 95}

	acc := common.NewInt16Buffer(width)
	PartialRefresh(initial, weight.Slice(), bias.Slice(), acc.Slice())
	PartialUpdate([]uint16{5, 95}, []uint16{20, 64}, weight.Slice(), acc.Slice())

	fresh := common.NewInt16Buffer(width)
	PartialRefresh(final, weight.Slice(), bias.Slice(), fresh.Slice())

	for i := 0; i < width; i++ {
		if acc.Slice()[i] != fresh.Slice()[i] {
			t.Fatalf("accumulator[%d] = %d after updates, refresh gives %d",
				i, acc.Slice()[i], fresh.Slice()[i])
		}
	}
}

// TestCReLU verifies saturation bounds of both reducers.
func TestCReLU(t *testing.T) {
	in16 := []int16{-32768, -1, 0, 1, 64, 127, 128, 32767}
	out16 := make([]int8, len(in16))
	CReLU16(in16, out16)

	want := []int8{0, 0, 0, 1, 64, 127, 127, 127}
	for i := range want {
		if out16[i] != want[i] {
			t.Errorf("CReLU16(%d) = %d, want %d", in16[i], out16[i], want[i])
		}
	}

	in32 := []int32{-1 << 30, -1, 0, 1, 64, 127, 128, 1 << 30}
	out32 := make([]int8, len(in32))
	CReLU32(in32, out32)

	for i := range want {
		if out32[i] != want[i] {
			t.Errorf("CReLU32(%d) = %d, want %d", in32[i], out32[i], want[i])
		}
	}
}

// TestBufferAlignment verifies the aligned buffers actually align.
func TestBufferAlignment(t *testing.T) {
	for i := 0; i < 16; i++ {
		b := common.NewInt16Buffer(256)
		if len(b.Slice()) != 256 {
			t.Fatal("wrong length")
		}
		if addr := uintptr(unsafe.Pointer(&b.Slice()[0])); addr%common.Alignment != 0 {
			t.Fatalf("buffer at %#x is not %d-byte aligned", addr, common.Alignment)
		}
	}
}
