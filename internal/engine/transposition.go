package engine

import (
	"github.com/mlomb/limbobot/internal/board"
)

// TTFlag indicates the type of bound stored in the transposition table.
type TTFlag uint8

const (
	TTExact      TTFlag = iota // Exact score
	TTLowerBound               // Failed high (beta cutoff)
	TTUpperBound               // Failed low
)

// TTEntry is one slot of the transposition table.
type TTEntry struct {
	Key   uint64
	Move  board.Move
	Score int32
	Depth int8
	Flag  TTFlag
}

// TranspositionTable is a fixed-size, replace-always cache of search
// results keyed by zobrist hash. Collisions are tolerated: the stored
// move is legality-checked against the probing position before any part
// of the entry is trusted.
type TranspositionTable struct {
	entries []TTEntry

	// scratch move list for the legality check
	legal board.MoveList
}

// NewTranspositionTable creates a table of the given size in MB.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	numEntries := sizeMB * 1024 * 1024 / 24 // sizeof(TTEntry), padded
	tt := &TranspositionTable{
		entries: make([]TTEntry, numEntries),
	}
	tt.Clear()
	return tt
}

// Clear empties the table.
func (tt *TranspositionTable) Clear() {
	for i := range tt.entries {
		tt.entries[i] = TTEntry{Depth: -1, Move: board.NoMove}
	}
}

// WriteEntry unconditionally overwrites the slot for key.
func (tt *TranspositionTable) WriteEntry(key uint64, mov board.Move, score int32, depth int, flag TTFlag) {
	tt.entries[key%uint64(len(tt.entries))] = TTEntry{
		Key:   key,
		Move:  mov,
		Score: score,
		Depth: int8(depth),
		Flag:  flag,
	}
}

// ReadEntry probes the table. On a usable hit it returns (score, true)
// applying the bound rules; otherwise it returns (0, false), writing the
// stored move into pvMove as an ordering hint when it is legal here.
func (tt *TranspositionTable) ReadEntry(pos *board.Position, key uint64, alpha, beta int32, depth int, pvMove *board.Move) (int32, bool) {
	entry := &tt.entries[key%uint64(len(tt.entries))]

	if entry.Key != key || entry.Move == board.NoMove {
		return 0, false
	}

	// The slot may hold a colliding position; only a move that is legal
	// right here is evidence the entry applies to this position.
	pos.GenerateLegalMovesInto(&tt.legal)
	if !tt.legal.Contains(entry.Move) {
		return 0, false
	}

	// Depth must be at least the requested one, otherwise the stored
	// information may be incorrect for this node.
	if int(entry.Depth) >= depth {
		switch entry.Flag {
		case TTExact:
			return entry.Score, true
		case TTLowerBound:
			if entry.Score >= beta {
				return beta, true
			}
		case TTUpperBound:
			if entry.Score <= alpha {
				return alpha, true
			}
		}
	}

	*pvMove = entry.Move
	return 0, false
}
