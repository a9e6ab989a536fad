package nnue

import (
	"slices"

	"github.com/mlomb/limbobot/internal/board"
	"github.com/mlomb/limbobot/nnue/common"
)

// Reusable index buffers for feature gathering. The search is
// single-threaded; buffers are cleared on entry instead of reallocated.
var (
	featureBuf []uint16 = make([]uint16, 0, 128)
	addedBuf   []uint16 = make([]uint16, 0, 128)
	removedBuf []uint16 = make([]uint16, 0, 128)
	addRowsBuf []uint16 = make([]uint16, 0, 128)
	remRowsBuf []uint16 = make([]uint16, 0, 128)
)

// Accumulator holds the first-layer pre-activations of both perspectives
// plus the multiplicity of every feature. Feature blocks may activate the
// same index more than once (features compose); a weight row is added only
// when a count crosses 0 to 1 and removed only when it crosses 1 to 0.
type Accumulator struct {
	model *Model

	accumulation [2]*common.Int16Buffer // indexed by perspective color
	counts       [2][]uint8
}

// NewAccumulator creates a zeroed accumulator for the model.
func NewAccumulator(model *Model) *Accumulator {
	return &Accumulator{
		model: model,
		accumulation: [2]*common.Int16Buffer{
			common.NewInt16Buffer(model.numL1),
			common.NewInt16Buffer(model.numL1),
		},
		counts: [2][]uint8{
			make([]uint8, model.numFeatures),
			make([]uint8, model.numFeatures),
		},
	}
}

// Forward evaluates the position held in the accumulator from the side to
// move's point of view.
func (a *Accumulator) Forward(sideToMove board.Color) int32 {
	return a.model.Forward(
		a.accumulation[sideToMove],
		a.accumulation[sideToMove.Other()],
	)
}

// Refresh rebuilds one perspective from scratch: gather active features,
// histogram them into the multiplicity map, and refresh the accumulator
// with the distinct rows.
func (a *Accumulator) Refresh(pos *board.Position, perspective board.Color) {
	fs := a.model.FeatureSet()

	featureBuf = featureBuf[:0]
	fs.ActiveFeatures(pos, perspective, &featureBuf)

	counts := a.counts[perspective]
	for i := range counts {
		counts[i] = 0
	}
	for _, f := range featureBuf {
		counts[f]++
	}

	slices.Sort(featureBuf)
	featureBuf = slices.Compact(featureBuf)
	a.model.RefreshAccumulator(a.accumulation[perspective], featureBuf)
}

// Update applies a move incrementally to one perspective. pos must be the
// position BEFORE the move: the feature delta is defined against the
// pre-move board. If the feature set demands a refresh, the move is played
// on a scratch board and the perspective rebuilt instead.
func (a *Accumulator) Update(pos *board.Position, m board.Move, perspective board.Color) {
	fs := a.model.FeatureSet()

	if fs.RequiresRefresh(pos, m, perspective) {
		next := *pos
		next.MakeMove(m)
		a.Refresh(&next, perspective)
		return
	}

	addedBuf = addedBuf[:0]
	removedBuf = removedBuf[:0]
	fs.ChangedFeatures(pos, m, perspective, &addedBuf, &removedBuf)

	// collapse the multisets into distinct row operations
	counts := a.counts[perspective]
	addRowsBuf = addRowsBuf[:0]
	remRowsBuf = remRowsBuf[:0]

	for _, f := range addedBuf {
		if counts[f] == 0 {
			addRowsBuf = append(addRowsBuf, f)
		}
		counts[f]++
	}
	for _, f := range removedBuf {
		counts[f]--
		if counts[f] == 0 {
			remRowsBuf = append(remRowsBuf, f)
		}
	}

	a.model.UpdateAccumulator(a.accumulation[perspective], addRowsBuf, remRowsBuf)
}

// CopyFrom deep-copies both perspectives from another accumulator.
func (a *Accumulator) CopyFrom(other *Accumulator) {
	a.accumulation[0].CopyFrom(other.accumulation[0])
	a.accumulation[1].CopyFrom(other.accumulation[1])
	copy(a.counts[0], other.counts[0])
	copy(a.counts[1], other.counts[1])
}

// Values returns the raw accumulator vector of a perspective, for tests
// and round-trip checks.
func (a *Accumulator) Values(perspective board.Color) []int16 {
	return a.accumulation[perspective].Slice()
}
