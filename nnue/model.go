// Package nnue implements the efficiently-updatable evaluation network:
// loading quantized weights, the per-perspective accumulator and the
// forward pass over the quantized layers.
package nnue

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/mlomb/limbobot/nnue/common"
	"github.com/mlomb/limbobot/nnue/features"
	"github.com/mlomb/limbobot/nnue/layers"
)

// Default layer sizes of the shipped architecture. Actual sizes come from
// the network file; these are used by the random test networks.
const (
	L1Size = 256
	L2Size = 32
)

// Model holds the quantized network weights. It is immutable once loaded
// and shared read-only by every accumulator.
type Model struct {
	fs *features.FeatureSet

	numFeatures int
	numL1       int
	numL2       int

	// feature transformer (first layer), weights laid out row-major by feature
	l1Weight *common.Int16Buffer // numFeatures x numL1
	l1Bias   *common.Int16Buffer // numL1

	l2Weight *common.Int8Buffer  // numL2 x 2*numL1
	l2Bias   *common.Int32Buffer // numL2

	outWeight *common.Int8Buffer  // numL2
	outBias   *common.Int32Buffer // 1

	// forward-pass buffers, reused across evaluations
	l2Input  *common.Int8Buffer  // 2*numL1
	l2Output *common.Int32Buffer // numL2
	outInput *common.Int8Buffer  // numL2
	output   *common.Int32Buffer // 1
}

// Load reads a serialized network from a .nn file.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening network file: %w", err)
	}
	defer f.Close()

	m, err := Read(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("loading network %s: %w", path, err)
	}
	return m, nil
}

// FromBytes reads a serialized network from memory.
func FromBytes(data []byte) (*Model, error) {
	return Read(bytes.NewReader(data))
}

// Read parses the .nn format: a null-terminated feature-set tag, the
// feature count, L1 and L2 sizes as little-endian uint32, then the raw
// quantized tensors with no padding.
func Read(r io.Reader) (*Model, error) {
	tag, err := readTag(r)
	if err != nil {
		return nil, fmt.Errorf("reading feature set tag: %w", err)
	}

	fs, err := features.Build(tag)
	if err != nil {
		return nil, err
	}

	numFeatures, err := common.ReadLittleEndian[uint32](r)
	if err != nil {
		return nil, fmt.Errorf("reading feature count: %w", err)
	}
	numL1, err := common.ReadLittleEndian[uint32](r)
	if err != nil {
		return nil, fmt.Errorf("reading L1 size: %w", err)
	}
	numL2, err := common.ReadLittleEndian[uint32](r)
	if err != nil {
		return nil, fmt.Errorf("reading L2 size: %w", err)
	}

	if int(numFeatures) != fs.NumFeatures() {
		return nil, fmt.Errorf("feature count mismatch: file says %d, feature set %q has %d",
			numFeatures, tag, fs.NumFeatures())
	}

	m := newModel(fs, int(numL1), int(numL2))

	if m.l1Weight, err = common.ReadInt16Buffer(r, m.numFeatures*m.numL1); err != nil {
		return nil, fmt.Errorf("L1 weights: %w", err)
	}
	if m.l1Bias, err = common.ReadInt16Buffer(r, m.numL1); err != nil {
		return nil, fmt.Errorf("L1 bias: %w", err)
	}
	if m.l2Weight, err = common.ReadInt8Buffer(r, m.numL2*2*m.numL1); err != nil {
		return nil, fmt.Errorf("L2 weights: %w", err)
	}
	if m.l2Bias, err = common.ReadInt32Buffer(r, m.numL2); err != nil {
		return nil, fmt.Errorf("L2 bias: %w", err)
	}
	if m.outWeight, err = common.ReadInt8Buffer(r, m.numL2); err != nil {
		return nil, fmt.Errorf("output weights: %w", err)
	}
	if m.outBias, err = common.ReadInt32Buffer(r, 1); err != nil {
		return nil, fmt.Errorf("output bias: %w", err)
	}

	return m, nil
}

func readTag(r io.Reader) (string, error) {
	var tag []byte
	var b [1]byte
	for {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return "", err
		}
		if b[0] == 0 {
			return string(tag), nil
		}
		if len(tag) > 64 {
			return "", fmt.Errorf("unterminated feature set tag")
		}
		tag = append(tag, b[0])
	}
}

// newModel allocates a model with zeroed tensors and forward buffers.
func newModel(fs *features.FeatureSet, numL1, numL2 int) *Model {
	m := &Model{
		fs:          fs,
		numFeatures: fs.NumFeatures(),
		numL1:       numL1,
		numL2:       numL2,
	}

	m.l1Weight = common.NewInt16Buffer(m.numFeatures * numL1)
	m.l1Bias = common.NewInt16Buffer(numL1)
	m.l2Weight = common.NewInt8Buffer(numL2 * 2 * numL1)
	m.l2Bias = common.NewInt32Buffer(numL2)
	m.outWeight = common.NewInt8Buffer(numL2)
	m.outBias = common.NewInt32Buffer(1)

	m.l2Input = common.NewInt8Buffer(2 * numL1)
	m.l2Output = common.NewInt32Buffer(numL2)
	m.outInput = common.NewInt8Buffer(numL2)
	m.output = common.NewInt32Buffer(1)

	return m
}

// NewRandomModel builds a model with small deterministic pseudo-random
// weights. Intended for tests and for running without a network file; the
// evaluation is meaningless but well-formed.
func NewRandomModel(tag string, seed uint64) (*Model, error) {
	fs, err := features.Build(tag)
	if err != nil {
		return nil, err
	}

	m := newModel(fs, L1Size, L2Size)

	state := seed
	next := func() int32 {
		state = state*6364136223846793005 + 1442695040888963407
		return int32(state>>48)&0xFF - 128
	}

	w1 := m.l1Weight.Slice()
	for i := range w1 {
		w1[i] = int16(next() >> 5)
	}
	b1 := m.l1Bias.Slice()
	for i := range b1 {
		b1[i] = int16(next() >> 3)
	}
	w2 := m.l2Weight.Slice()
	for i := range w2 {
		w2[i] = int8(next() >> 2)
	}
	b2 := m.l2Bias.Slice()
	for i := range b2 {
		b2[i] = next()
	}
	wo := m.outWeight.Slice()
	for i := range wo {
		wo[i] = int8(next() >> 2)
	}
	m.outBias.Slice()[0] = next()

	return m, nil
}

// FeatureSet returns the feature set the model was trained with.
func (m *Model) FeatureSet() *features.FeatureSet { return m.fs }

// NumFeatures returns the input feature count.
func (m *Model) NumFeatures() int { return m.numFeatures }

// NumL1 returns the per-perspective accumulator width.
func (m *Model) NumL1() int { return m.numL1 }

// Arch returns a human-readable architecture summary.
func (m *Model) Arch() string {
	return fmt.Sprintf("(%s[%d]->%d)x2->%d->1", m.fs.Tag(), m.numFeatures, m.numL1, m.numL2)
}

// RefreshAccumulator sets acc = bias + sum of the weight rows of the
// active features. The feature list must hold distinct indices.
func (m *Model) RefreshAccumulator(acc *common.Int16Buffer, active []uint16) {
	layers.PartialRefresh(active, m.l1Weight.Slice(), m.l1Bias.Slice(), acc.Slice())
}

// UpdateAccumulator adds and subtracts weight rows in place. It does not
// know which features were already active; the caller guarantees rows are
// not added or removed twice.
func (m *Model) UpdateAccumulator(acc *common.Int16Buffer, added, removed []uint16) {
	layers.PartialUpdate(added, removed, m.l1Weight.Slice(), acc.Slice())
}

// Forward runs the network on the two perspectives' accumulators, side to
// move first, and returns the raw centipawn output.
func (m *Model) Forward(toMove, notToMove *common.Int16Buffer) int32 {
	l2in := m.l2Input.Slice()

	// the first layer is already computed in the accumulators
	layers.CReLU16(toMove.Slice(), l2in[:m.numL1])
	layers.CReLU16(notToMove.Slice(), l2in[m.numL1:])

	layers.Linear(l2in, m.l2Weight.Slice(), m.l2Bias.Slice(), m.l2Output.Slice())
	layers.CReLU32(m.l2Output.Slice(), m.outInput.Slice())

	layers.Linear(m.outInput.Slice(), m.outWeight.Slice(), m.outBias.Slice(), m.output.Slice())

	return m.output.Slice()[0]
}
