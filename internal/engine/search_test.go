package engine

import (
	"testing"

	"github.com/mlomb/limbobot/internal/board"
	"github.com/mlomb/limbobot/nnue"
)

func testSearch(t *testing.T) *Search {
	t.Helper()
	model, err := nnue.NewRandomModel("hv", 12345)
	if err != nil {
		t.Fatal(err)
	}
	return NewSearch(model, 16)
}

func setFEN(t *testing.T, s *Search, fen string) {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	if err := s.SetPosition(pos, nil); err != nil {
		t.Fatal(err)
	}
}

// TestMateInOne finds the back-rank mate Ra8 at depth 2.
func TestMateInOne(t *testing.T) {
	s := testSearch(t)
	setFEN(t, s, "6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1")

	var lastScore int32
	s.OnInfo = func(info SearchInfo) { lastScore = info.Score }

	best := s.Go(SearchLimits{Depth: 2})

	if got := best.String(); got != "a1a8" {
		t.Fatalf("best move = %s, want a1a8", got)
	}
	if lastScore < MateScore-2 {
		t.Errorf("score = %d, want >= %d (mate in one)", lastScore, MateScore-2)
	}

	// the mating move must actually be checkmate
	pos := s.Position().Copy()
	pos.MakeMove(best)
	if !pos.IsCheckmate() {
		t.Error("returned move does not deliver mate")
	}
}

// TestMateInTwo finds a forced two-rook ladder mate and scores it as a
// mate within four plies.
func TestMateInTwo(t *testing.T) {
	s := testSearch(t)
	setFEN(t, s, "6k1/8/8/8/8/8/8/RR4K1 w - - 0 1")

	var lastScore int32
	var lastPV []board.Move
	s.OnInfo = func(info SearchInfo) {
		lastScore = info.Score
		lastPV = info.PV
	}

	best := s.Go(SearchLimits{Depth: 4})

	if lastScore < MateScore-4 {
		t.Fatalf("score = %d, want >= %d (mate in two)", lastScore, MateScore-4)
	}
	if len(lastPV) == 0 || lastPV[0] != best {
		t.Fatal("PV head does not match the returned best move")
	}

	// walking the PV must end in checkmate
	pos := s.Position().Copy()
	for _, m := range lastPV {
		pos.MakeMove(m)
	}
	if !pos.IsCheckmate() {
		t.Errorf("PV %v does not end in checkmate", lastPV)
	}
}

// TestMateScorePlyAwareness: from a position offering both a mate in one
// and slower mates, the reported score must be the shallowest.
func TestMateScorePlyAwareness(t *testing.T) {
	s := testSearch(t)
	setFEN(t, s, "6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1")

	var scoreAtDepth [8]int32
	s.OnInfo = func(info SearchInfo) { scoreAtDepth[info.Depth] = info.Score }

	s.Go(SearchLimits{Depth: 2})

	// mate at ply 1 scores MateScore-1
	if scoreAtDepth[2] != MateScore-1 {
		t.Errorf("depth 2 score = %d, want %d", scoreAtDepth[2], MateScore-1)
	}
}

// TestStartPositionSearch runs a short search from the start position and
// expects a legal move.
func TestStartPositionSearch(t *testing.T) {
	s := testSearch(t)
	if err := s.SetPosition(board.NewPosition(), nil); err != nil {
		t.Fatal(err)
	}

	best := s.Go(SearchLimits{Depth: 4})
	if best == board.NoMove {
		t.Fatal("no move returned from the start position")
	}

	if !s.Position().GenerateLegalMoves().Contains(best) {
		t.Errorf("returned move %s is not legal", best)
	}
	if s.Nodes() == 0 {
		t.Error("no nodes searched")
	}
}

// TestNodeLimitAborts verifies the node budget stops the search while
// still returning a playable move from a completed depth.
func TestNodeLimitAborts(t *testing.T) {
	s := testSearch(t)
	if err := s.SetPosition(board.NewPosition(), nil); err != nil {
		t.Fatal(err)
	}

	best := s.Go(SearchLimits{Depth: 30, Nodes: 5000})
	if best == board.NoMove {
		t.Fatal("abort must still yield a best move")
	}
	if s.Nodes() > 5000+2048 {
		t.Errorf("searched %d nodes, budget was 5000 (+checkup granularity)", s.Nodes())
	}
}

// TestRepetitionDraw replays a knight shuffle and expects the stack to
// flag the threefold repetition.
func TestRepetitionDraw(t *testing.T) {
	s := testSearch(t)
	moves := []string{"g1f3", "g8f6", "f3g1", "f6g8", "g1f3", "g8f6", "f3g1", "f6g8"}

	if err := s.SetPosition(board.NewPosition(), moves); err != nil {
		t.Fatal(err)
	}

	if !s.Stack().IsDraw() {
		t.Error("threefold repetition not detected at the root")
	}

	// one full shuffle is only a single recurrence, not a draw
	if err := s.SetPosition(board.NewPosition(), moves[:4]); err != nil {
		t.Fatal(err)
	}
	if s.Stack().IsDraw() {
		t.Error("single recurrence flagged as threefold repetition")
	}
}

// TestStalemateIsDrawScore: searching a stalemate position reports a draw
// score of zero and, with no legal move to fall back on, returns NoMove.
func TestStalemateIsDrawScore(t *testing.T) {
	s := testSearch(t)
	// black to move, classic corner stalemate
	setFEN(t, s, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")

	var lastScore int32 = -1
	s.OnInfo = func(info SearchInfo) { lastScore = info.Score }

	best := s.Go(SearchLimits{Depth: 3})
	if best != board.NoMove {
		t.Errorf("stalemated side has no move, got %s", best)
	}
	if lastScore != 0 {
		t.Errorf("stalemate score = %d, want 0", lastScore)
	}
}

// TestIllegalSetPositionKeepsState verifies a bad move list fails the
// command without touching the previous position.
func TestIllegalSetPositionKeepsState(t *testing.T) {
	s := testSearch(t)
	if err := s.SetPosition(board.NewPosition(), []string{"e2e4"}); err != nil {
		t.Fatal(err)
	}
	before := s.Stack().HashKey()

	if err := s.SetPosition(board.NewPosition(), []string{"e2e5"}); err == nil {
		t.Fatal("expected error for illegal move e2e5")
	}
	if s.Stack().HashKey() != before {
		t.Error("failed SetPosition mutated the search state")
	}
}

// TestTTSafety hammers the table with colliding writes and verifies reads
// never return entries whose move is illegal in the probing position.
func TestTTSafety(t *testing.T) {
	tt := NewTranspositionTable(1)
	pos := board.NewPosition()

	// garbage entries on every slot the probe key maps to
	junk := board.NewMove(board.A8, board.A1) // never legal at startpos
	state := uint64(5)
	for i := 0; i < 10000; i++ {
		state = state*6364136223846793005 + 1442695040888963407
		tt.WriteEntry(state, junk, 1234, 12, TTExact)
	}

	var hint board.Move
	for i := 0; i < 10000; i++ {
		state = state*6364136223846793005 + 1442695040888963407
		if score, hit := tt.ReadEntry(pos, state, -Infinity, Infinity, 1, &hint); hit {
			t.Fatalf("TT returned score %d for an entry with an illegal move", score)
		}
	}
	if hint != board.NoMove {
		t.Error("TT produced an ordering hint from an illegal move")
	}

	// a genuine entry round-trips
	legal := board.NewMove(board.E2, board.E4)
	key := pos.Hash
	tt.WriteEntry(key, legal, 42, 6, TTExact)
	score, hit := tt.ReadEntry(pos, key, -Infinity, Infinity, 3, &hint)
	if !hit || score != 42 {
		t.Errorf("exact entry not returned: hit=%v score=%d", hit, score)
	}
}

// TestTTBoundRules pins the lower/upper bound cutoff behavior.
func TestTTBoundRules(t *testing.T) {
	tt := NewTranspositionTable(1)
	pos := board.NewPosition()
	key := pos.Hash
	legal := board.NewMove(board.E2, board.E4)
	var hint board.Move

	tt.WriteEntry(key, legal, 100, 6, TTLowerBound)
	if score, hit := tt.ReadEntry(pos, key, 0, 50, 3, &hint); !hit || score != 50 {
		t.Errorf("lower bound >= beta must return beta: hit=%v score=%d", hit, score)
	}
	if _, hit := tt.ReadEntry(pos, key, 0, 500, 3, &hint); hit {
		t.Error("lower bound < beta must miss")
	}

	tt.WriteEntry(key, legal, -100, 6, TTUpperBound)
	if score, hit := tt.ReadEntry(pos, key, 0, 50, 3, &hint); !hit || score != 0 {
		t.Errorf("upper bound <= alpha must return alpha: hit=%v score=%d", hit, score)
	}

	// insufficient depth only yields the ordering hint
	hint = board.NoMove
	tt.WriteEntry(key, legal, 77, 2, TTExact)
	if _, hit := tt.ReadEntry(pos, key, 0, 50, 5, &hint); hit {
		t.Error("shallow entry must not cut off")
	}
	if hint != legal {
		t.Error("shallow entry must still provide the PV hint")
	}
}
