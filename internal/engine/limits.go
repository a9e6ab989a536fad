// Package engine implements the search core: an iterative-deepening
// negamax with alpha-beta pruning over a fixed-depth position stack, a
// transposition table, triangular PV collection and heuristic move
// ordering. Evaluation comes from the incrementally-updated network.
package engine

import "time"

// Score units are integer centipawns.
const (
	// Infinity is the score sentinel bounding every window.
	Infinity = 50000

	// MateScore is the base magnitude of mate scores; a mate found at
	// ply p scores +/-(MateScore - p) so shallower mates dominate.
	MateScore = 10000

	// MaxPly is the maximum number of plies the engine supports.
	MaxPly = 64
)

// SearchLimits bounds a search. Zero values mean unlimited; the driver
// falls back to MaxPly-1 when Depth is zero.
type SearchLimits struct {
	// Depth limit, do not exceed this depth
	Depth int
	// Nodes limit, do not visit more nodes than this
	Nodes uint64
	// Time limit, do not search for longer than this
	Time time.Duration
}
