package engine

import (
	"github.com/mlomb/limbobot/internal/board"
)

// Move ordering priorities
const (
	PVMoveScore  = 20000 // move suggested by the transposition table
	CaptureBase  = 10000 // base for MVV-LVA scored captures
	KillerScore1 = 9000  // first killer move
	KillerScore2 = 8000  // second killer move
)

// MVV-LVA (Most Valuable Victim - Least Valuable Attacker) scores,
// indexed [victim][attacker]. The victim weight dominates:
// score = 10*victim - attacker + 15.
var mvvLva = [6][6]int32{
	//       P    N    B    R    Q    K  (attacker)
	/* P */ {15, 14, 13, 12, 11, 10},
	/* N */ {25, 24, 23, 22, 21, 20},
	/* B */ {35, 34, 33, 32, 31, 30},
	/* R */ {45, 44, 43, 42, 41, 40},
	/* Q */ {55, 54, 53, 52, 51, 50},
	/* K */ {65, 64, 63, 62, 61, 60},
}

// MoveOrderer scores moves for the search: PV hint first, then captures
// by MVV-LVA, then killers, then quiet moves by history.
type MoveOrderer struct {
	killers [MaxPly][2]board.Move

	// history counters, indexed by [piece-color-and-role][to square]
	history [12][64]int32
}

// NewMoveOrderer creates a new move orderer.
func NewMoveOrderer() *MoveOrderer {
	return &MoveOrderer{}
}

// Clear forgets all killers and history counters.
func (mo *MoveOrderer) Clear() {
	for ply := range mo.killers {
		mo.killers[ply][0] = board.NoMove
		mo.killers[ply][1] = board.NoMove
	}
	for i := range mo.history {
		for j := range mo.history[i] {
			mo.history[i][j] = 0
		}
	}
}

// historyIndex maps the moving piece to a history row.
func historyIndex(pos *board.Position, m board.Move) int {
	piece := pos.PieceAt(m.From())
	return int(piece.Color())*6 + int(piece.Type())
}

// ScoreMoves fills scores[i] with the ordering score of moves[i].
func (mo *MoveOrderer) ScoreMoves(pos *board.Position, moves *board.MoveList, scores []int32, ply int, pvMove board.Move) {
	for i := 0; i < moves.Len(); i++ {
		scores[i] = mo.scoreMove(pos, moves.Get(i), ply, pvMove)
	}
}

func (mo *MoveOrderer) scoreMove(pos *board.Position, m board.Move, ply int, pvMove board.Move) int32 {
	if m == pvMove {
		return PVMoveScore
	}

	if m.IsCapture(pos) {
		attacker := pos.PieceAt(m.From()).Type()
		victim := board.Pawn
		if !m.IsEnPassant() {
			victim = pos.PieceAt(m.To()).Type()
		}
		return CaptureBase + mvvLva[victim][attacker]
	}

	if m == mo.killers[ply][0] {
		return KillerScore1
	}
	if m == mo.killers[ply][1] {
		return KillerScore2
	}

	return mo.history[historyIndex(pos, m)][m.To()]
}

// PickMove selects the best remaining move and swaps it to position index,
// so only as much sorting happens as the search actually consumes.
func PickMove(moves *board.MoveList, scores []int32, index int) {
	best := index
	for j := index + 1; j < moves.Len(); j++ {
		if scores[j] > scores[best] {
			best = j
		}
	}
	if best != index {
		moves.Swap(index, best)
		scores[index], scores[best] = scores[best], scores[index]
	}
}

// UpdateKillers records a quiet move that caused a beta cutoff at ply.
func (mo *MoveOrderer) UpdateKillers(m board.Move, ply int) {
	if mo.killers[ply][0] == m {
		return
	}
	mo.killers[ply][1] = mo.killers[ply][0]
	mo.killers[ply][0] = m
}

// UpdateHistory rewards a quiet move that raised alpha.
func (mo *MoveOrderer) UpdateHistory(pos *board.Position, m board.Move, depth int) {
	mo.history[historyIndex(pos, m)][m.To()] += int32(depth * depth)
}
