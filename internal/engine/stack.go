package engine

import (
	"fmt"

	"github.com/mlomb/limbobot/internal/board"
	"github.com/mlomb/limbobot/nnue"
)

// frame is one level of the position stack: the position, its zobrist
// hash (kept inside the position), and the network accumulator for both
// perspectives.
type frame struct {
	pos   board.Position
	accum *nnue.Accumulator
}

// PositionStack is a fixed-depth stack of positions driven by the search.
// Index 0 holds the search root; DoMove copies the current frame up and
// applies the move, UndoMove just steps back down. Frames above the index
// stay allocated and are overwritten later, so steady-state play performs
// no allocations.
type PositionStack struct {
	index int
	stack [MaxPly]frame

	// zobrist keys of the game positions before the search root,
	// for threefold repetition detection
	repetitions []uint64
}

// NewPositionStack creates a stack whose accumulators evaluate with model.
func NewPositionStack(model *nnue.Model) *PositionStack {
	ps := &PositionStack{
		repetitions: make([]uint64, 0, 128),
	}
	for i := range ps.stack {
		ps.stack[i].accum = nnue.NewAccumulator(model)
	}

	root := board.NewPosition()
	ps.stack[0].pos = *root
	ps.stack[0].accum.Refresh(root, board.White)
	ps.stack[0].accum.Refresh(root, board.Black)

	return ps
}

// Reset replays the given UCI moves from the starting position to compute
// the search root, recording each pre-root zobrist key for repetition
// detection. An illegal or unparseable move fails the whole reset and
// leaves the previous state untouched.
func (ps *PositionStack) Reset(start *board.Position, moves []string) error {
	pos := *start

	keys := make([]uint64, 0, len(moves))
	var legal board.MoveList

	for _, uci := range moves {
		m, err := board.ParseMove(uci, &pos)
		if err != nil {
			return fmt.Errorf("move %q: %w", uci, err)
		}

		pos.GenerateLegalMovesInto(&legal)
		if !legal.Contains(m) {
			return fmt.Errorf("move %q is not legal in %s", uci, pos.ToFEN())
		}

		keys = append(keys, pos.Hash)
		pos.MakeMove(m)
	}

	ps.index = 0
	ps.repetitions = append(ps.repetitions[:0], keys...)
	ps.stack[0].pos = pos
	ps.stack[0].accum.Refresh(&pos, board.White)
	ps.stack[0].accum.Refresh(&pos, board.Black)

	return nil
}

// Current returns the position on top of the stack.
func (ps *PositionStack) Current() *board.Position {
	return &ps.stack[ps.index].pos
}

// HashKey returns the zobrist key of the current position.
func (ps *PositionStack) HashKey() uint64 {
	return ps.stack[ps.index].pos.Hash
}

// Rule50 returns the halfmove clock of the current position.
func (ps *PositionStack) Rule50() int {
	return ps.stack[ps.index].pos.HalfMoveClock
}

// DoMove pushes a new frame and plays the move on it. The accumulators
// are updated against the board BEFORE the move is applied; the feature
// delta is defined on the pre-move board.
func (ps *PositionStack) DoMove(m board.Move) {
	prev := &ps.stack[ps.index]
	ps.index++
	next := &ps.stack[ps.index]

	next.pos = prev.pos
	next.accum.CopyFrom(prev.accum)

	next.accum.Update(&next.pos, m, board.White)
	next.accum.Update(&next.pos, m, board.Black)

	next.pos.MakeMove(m)
}

// DoNullMove pushes a new frame and forfeits the turn. The board does not
// change, so the accumulators are carried over untouched.
func (ps *PositionStack) DoNullMove() {
	prev := &ps.stack[ps.index]
	ps.index++
	next := &ps.stack[ps.index]

	next.pos = prev.pos
	next.accum.CopyFrom(prev.accum)

	next.pos.MakeNullMove()
}

// UndoMove pops the top frame.
func (ps *PositionStack) UndoMove() {
	ps.index--
}

// Evaluate runs the network on the current accumulator.
func (ps *PositionStack) Evaluate() int32 {
	cur := &ps.stack[ps.index]
	return cur.accum.Forward(cur.pos.SideToMove)
}

// Accumulator exposes the current frame's accumulator, for tests.
func (ps *PositionStack) Accumulator() *nnue.Accumulator {
	return ps.stack[ps.index].accum
}

// IsDraw returns true for insufficient material, the 50-move rule, or
// threefold repetition counted across the pre-root game history and the
// stack below the current frame (the current occurrence included).
func (ps *PositionStack) IsDraw() bool {
	cur := &ps.stack[ps.index]

	if cur.pos.IsInsufficientMaterial() {
		return true
	}

	if cur.pos.HalfMoveClock >= 100 {
		return true
	}

	count := 0
	for _, key := range ps.repetitions {
		if key == cur.pos.Hash {
			count++
		}
	}
	for i := 0; i < ps.index; i++ {
		if ps.stack[i].pos.Hash == cur.pos.Hash {
			count++
		}
	}
	return count >= 2
}
