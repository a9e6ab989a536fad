package engine

import (
	"slices"
	"testing"

	"github.com/mlomb/limbobot/internal/board"
	"github.com/mlomb/limbobot/nnue"
)

func testStack(t *testing.T, tag string) *PositionStack {
	t.Helper()
	model, err := nnue.NewRandomModel(tag, 7)
	if err != nil {
		t.Fatal(err)
	}
	return NewPositionStack(model)
}

// TestNullMoveRoundTrip: a null move followed by undo must restore the
// zobrist key and the accumulator contents exactly.
func TestNullMoveRoundTrip(t *testing.T) {
	ps := testStack(t, "hv+mb")

	// middle-game position, no check
	pos, err := board.ParseFEN("r2q1rk1/1pp1b1pp/p2p4/2PPpb2/PP5N/2N1B2P/5PP1/R2Q1RK1 b - - 0 16")
	if err != nil {
		t.Fatal(err)
	}
	if err := ps.Reset(pos, nil); err != nil {
		t.Fatal(err)
	}

	hashBefore := ps.HashKey()
	whiteBefore := append([]int16(nil), ps.Accumulator().Values(board.White)...)
	blackBefore := append([]int16(nil), ps.Accumulator().Values(board.Black)...)

	ps.DoNullMove()

	if ps.HashKey() == hashBefore {
		t.Error("null move must change the zobrist key (side to move)")
	}
	if ps.Current().SideToMove != board.White {
		t.Error("null move must flip the side to move")
	}

	ps.UndoMove()

	if ps.HashKey() != hashBefore {
		t.Errorf("zobrist not restored: %016x != %016x", ps.HashKey(), hashBefore)
	}
	if !slices.Equal(ps.Accumulator().Values(board.White), whiteBefore) {
		t.Error("white accumulator changed across null move round trip")
	}
	if !slices.Equal(ps.Accumulator().Values(board.Black), blackBefore) {
		t.Error("black accumulator changed across null move round trip")
	}
}

// TestDoUndoRestoresFrames: do/undo across several moves must leave the
// lower frames untouched.
func TestDoUndoRestoresFrames(t *testing.T) {
	ps := testStack(t, "hv")
	if err := ps.Reset(board.NewPosition(), nil); err != nil {
		t.Fatal(err)
	}

	rootHash := ps.HashKey()

	e4, _ := board.ParseMove("e2e4", ps.Current())
	ps.DoMove(e4)
	e5, _ := board.ParseMove("e7e5", ps.Current())
	ps.DoMove(e5)

	ps.UndoMove()
	ps.UndoMove()

	if ps.HashKey() != rootHash {
		t.Error("root hash changed after do/undo sequence")
	}

	// accumulators on the root frame must still match a fresh refresh
	model, _ := nnue.NewRandomModel("hv", 7)
	fresh := nnue.NewAccumulator(model)
	fresh.Refresh(ps.Current(), board.White)
	if !slices.Equal(ps.Accumulator().Values(board.White), fresh.Values(board.White)) {
		t.Error("root accumulator corrupted by deeper frames")
	}
}

// TestStackAccumulatorMatchesRefresh drives the stack through a line with
// a capture, castling and an en-passant setup, checking the accumulators
// against a refresh after every move.
func TestStackAccumulatorMatchesRefresh(t *testing.T) {
	model, err := nnue.NewRandomModel("hv+mb", 7)
	if err != nil {
		t.Fatal(err)
	}
	ps := NewPositionStack(model)
	if err := ps.Reset(board.NewPosition(), nil); err != nil {
		t.Fatal(err)
	}

	line := []string{"e2e4", "d7d5", "e4d5", "g8f6", "g1f3", "f6d5", "f1e2", "b8c6", "e1g1"}

	for _, uci := range line {
		m, err := board.ParseMove(uci, ps.Current())
		if err != nil {
			t.Fatalf("%s: %v", uci, err)
		}
		ps.DoMove(m)

		fresh := nnue.NewAccumulator(model)
		fresh.Refresh(ps.Current(), board.White)
		fresh.Refresh(ps.Current(), board.Black)
		for _, persp := range []board.Color{board.White, board.Black} {
			if !slices.Equal(ps.Accumulator().Values(persp), fresh.Values(persp)) {
				t.Fatalf("after %s: accumulator diverges from refresh (%v)", uci, persp)
			}
		}
	}
}

// TestFiftyMoveRule verifies the halfmove clock triggers the draw.
func TestFiftyMoveRule(t *testing.T) {
	ps := testStack(t, "hv")
	pos, err := board.ParseFEN("8/8/8/4k3/8/4K3/8/R7 w - - 99 80")
	if err != nil {
		t.Fatal(err)
	}
	if err := ps.Reset(pos, nil); err != nil {
		t.Fatal(err)
	}

	if ps.IsDraw() {
		t.Error("99 halfmoves is not yet a draw")
	}

	m, _ := board.ParseMove("a1a2", ps.Current())
	ps.DoMove(m)
	if !ps.IsDraw() {
		t.Error("100 halfmoves must be a draw")
	}
}

// TestInsufficientMaterialDraw: bare kings are drawn.
func TestInsufficientMaterialDraw(t *testing.T) {
	ps := testStack(t, "hv")
	pos, err := board.ParseFEN("8/8/8/4k3/8/4K3/8/8 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	if err := ps.Reset(pos, nil); err != nil {
		t.Fatal(err)
	}
	if !ps.IsDraw() {
		t.Error("bare kings must be a draw")
	}
}
