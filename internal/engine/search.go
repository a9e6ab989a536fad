package engine

import (
	"time"

	"github.com/mlomb/limbobot/internal/board"
	"github.com/mlomb/limbobot/nnue"
)

// SearchInfo reports one completed iterative-deepening depth.
type SearchInfo struct {
	Depth int
	Time  time.Duration
	Nodes uint64
	Evals uint64
	Score int32
	PV    []board.Move
}

// Search owns the whole search state: position stack, transposition
// table, PV table, ordering heuristics and limit accounting. It is
// single-threaded and cooperatively aborted through the limits checkup.
type Search struct {
	pos     *PositionStack
	tt      *TranspositionTable
	orderer *MoveOrderer
	pv      PVTable

	// current ply of the recursion
	ply int
	// deepest fully completed iteration
	depthReached int

	nodes uint64
	evals uint64

	startTime time.Time
	aborted   bool
	limits    SearchLimits

	// per-ply move lists and score buffers, preallocated
	moves  [MaxPly]board.MoveList
	scores [MaxPly][256]int32

	// OnInfo, when set, is called after every completed depth.
	OnInfo func(SearchInfo)
}

// NewSearch creates a search evaluating with the given model.
func NewSearch(model *nnue.Model, ttSizeMB int) *Search {
	return &Search{
		pos:     NewPositionStack(model),
		tt:      NewTranspositionTable(ttSizeMB),
		orderer: NewMoveOrderer(),
	}
}

// SetPosition resets the position stack to the starting board plus the
// given UCI moves. The transposition table survives; killer and history
// hints are reset. On error the previous position is kept.
func (s *Search) SetPosition(start *board.Position, moves []string) error {
	if err := s.pos.Reset(start, moves); err != nil {
		return err
	}
	s.orderer.Clear()
	return nil
}

// Position returns the current search root.
func (s *Search) Position() *board.Position {
	return s.pos.Current()
}

// NewGame clears every carried-over hint: transposition table, killers
// and history.
func (s *Search) NewGame() {
	s.tt.Clear()
	s.orderer.Clear()
}

// Stack exposes the position stack, for tests.
func (s *Search) Stack() *PositionStack {
	return s.pos
}

// Nodes returns the number of nodes searched by the last Go.
func (s *Search) Nodes() uint64 { return s.nodes }

// Go runs iterative deepening under the given limits and returns the best
// move found. The reported move always belongs to the deepest COMPLETED
// depth: an aborted iteration never replaces the previous line.
func (s *Search) Go(limits SearchLimits) board.Move {
	s.ply = 0
	s.depthReached = 0
	s.nodes = 0
	s.evals = 0
	s.limits = limits
	s.startTime = time.Now()
	s.aborted = false

	var bestLine []board.Move

	maxDepth := limits.Depth
	if maxDepth == 0 {
		maxDepth = MaxPly - 1
	}

	for depth := 1; depth <= maxDepth; depth++ {
		score := s.negamax(-Infinity, Infinity, depth, false)

		if s.aborted {
			// limit reached mid-iteration, keep the previous line
			break
		}

		s.depthReached = depth
		bestLine = s.pv.Mainline()

		if s.OnInfo != nil {
			s.OnInfo(SearchInfo{
				Depth: depth,
				Time:  time.Since(s.startTime),
				Nodes: s.nodes,
				Evals: s.evals,
				Score: score,
				PV:    bestLine,
			})
		}

		if score >= MateScore-50 || score <= -(MateScore-50) {
			// mate found, no point going deeper
			break
		}
	}

	if len(bestLine) == 0 {
		// draw at the root or no legal move: fall back to the first
		// legal move so the host always gets an answer
		var legal board.MoveList
		s.pos.Current().GenerateLegalMovesInto(&legal)
		if legal.Len() > 0 {
			return legal.Get(0)
		}
		return board.NoMove
	}

	return bestLine[0]
}

func (s *Search) negamax(alpha, beta int32, depth int, allowNull bool) int32 {
	s.checkup()

	if s.aborted {
		return 0
	}

	s.pv.Reset(s.ply)

	// threefold repetition, 50-move rule, insufficient material
	if s.pos.IsDraw() {
		return 0
	}

	if s.ply >= MaxPly-1 {
		s.evals++
		return s.pos.Evaluate()
	}

	isPV := beta-alpha > 1
	pvMove := board.NoMove

	// Skip the table near the 50-move horizon: stored scores become
	// dependent on the counter.
	if !isPV && s.pos.Rule50() < 90 {
		if score, hit := s.tt.ReadEntry(s.pos.Current(), s.pos.HashKey(), alpha, beta, depth, &pvMove); hit {
			return score
		}
	}

	if depth == 0 {
		// escape from recursion, allow up to three checks
		return s.quiescence(alpha, beta, 3)
	}

	inCheck := s.pos.Current().InCheck()
	if inCheck {
		// extend, a forced sequence should not run out of depth
		depth++
	}

	// Null Move Pruning: forfeit the move and verify the opponent still
	// cannot reach beta with a reduced search. Skipped in check, at the
	// root, and twice in a row.
	const nullReduction = 2
	if allowNull && s.ply > 0 && depth >= nullReduction+1 && !inCheck {
		s.pos.DoNullMove()
		s.ply++
		score := -s.negamax(-beta, -beta+1, depth-nullReduction-1, false)
		s.ply--
		s.pos.UndoMove()

		if score >= beta {
			return beta
		}
	}

	s.nodes++

	moves := &s.moves[s.ply]
	scores := s.scores[s.ply][:]
	s.pos.Current().GenerateLegalMovesInto(moves)
	s.orderer.ScoreMoves(s.pos.Current(), moves, scores, s.ply, pvMove)

	bestMove := board.NoMove
	bestScore := int32(-Infinity)
	flag := TTUpperBound
	movesSearched := 0

	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		m := moves.Get(i)
		isQuiet := !m.IsCapture(s.pos.Current())

		var score int32

		s.ply++
		s.pos.DoMove(m)

		if movesSearched == 0 {
			// first move, full window; probably the PV line
			score = -s.negamax(-beta, -alpha, depth-1, true)
		} else {
			// Late Move Reductions: quiet non-promotions ordered late
			// get a reduced null-window try first.
			const lmrReduction = 3
			if movesSearched >= 2 && depth >= lmrReduction && !inCheck &&
				isQuiet && !m.IsPromotion() {
				score = -s.negamax(-(alpha + 1), -alpha, depth-lmrReduction, allowNull)
			} else {
				// make sure a full search is done
				score = alpha + 1
			}

			// PVS: verify with a null window at full depth, and only on
			// a surprise re-search the full window.
			if score > alpha {
				score = -s.negamax(-(alpha + 1), -alpha, depth-1, true)

				if score > alpha && score < beta {
					score = -s.negamax(-beta, -alpha, depth-1, true)
				}
			}
		}

		s.pos.UndoMove()
		s.ply--

		if s.aborted {
			// do not let scores from an aborted subtree into the
			// PV or the transposition table
			return 0
		}

		if score > bestScore {
			bestScore = score
			bestMove = m
		}

		// fail-hard beta cutoff
		if score >= beta {
			if isQuiet {
				s.orderer.UpdateKillers(m, s.ply)
			}
			s.tt.WriteEntry(s.pos.HashKey(), m, beta, depth, TTLowerBound)
			return beta
		}

		if score > alpha {
			if isQuiet {
				s.orderer.UpdateHistory(s.pos.Current(), m, depth)
			}

			flag = TTExact
			alpha = score

			s.pv.Write(s.ply, m)
		}

		movesSearched++
	}

	if bestMove == board.NoMove {
		if inCheck {
			// checkmate, shallower mates must dominate
			return -MateScore + int32(s.ply)
		}
		// stalemate
		return 0
	}

	s.tt.WriteEntry(s.pos.HashKey(), bestMove, alpha, depth, flag)

	// node fails low
	return alpha
}

// quiescence searches captures (plus a bounded number of checking
// replies) until the position goes quiet, to avoid horizon-effect
// misevaluation at depth zero.
func (s *Search) quiescence(alpha, beta int32, checks int) int32 {
	s.checkup()

	if s.aborted {
		return 0
	}

	s.nodes++

	if s.pos.IsDraw() {
		return 0
	}

	standPat := s.pos.Evaluate()
	s.evals++

	if s.ply >= MaxPly-1 {
		return standPat
	}

	// fail-hard beta cutoff on the static score
	if standPat >= beta {
		return beta
	}
	if standPat > alpha {
		alpha = standPat
	}

	if checks < 0 {
		// check budget exhausted
		return alpha
	}

	moves := &s.moves[s.ply]
	scores := s.scores[s.ply][:]
	s.pos.Current().GenerateCapturesInto(moves)
	s.orderer.ScoreMoves(s.pos.Current(), moves, scores, s.ply, board.NoMove)

	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		m := moves.Get(i)

		s.ply++
		s.pos.DoMove(m)

		childChecks := checks
		if s.pos.Current().InCheck() {
			// allow one less check down this line
			childChecks--
		}
		score := -s.quiescence(-beta, -alpha, childChecks)

		s.pos.UndoMove()
		s.ply--

		if s.aborted {
			return 0
		}

		if score >= beta {
			return beta
		}
		if score > alpha {
			alpha = score
		}
	}

	return alpha
}

// checkup polls the limits every 2048 nodes. It never aborts before the
// first iteration completes so the driver always has a move to return.
func (s *Search) checkup() {
	if s.nodes&2047 != 0 || s.depthReached == 0 {
		return
	}

	if s.limits.Time > 0 && time.Since(s.startTime) >= s.limits.Time {
		s.aborted = true
	}
	if s.limits.Nodes > 0 && s.nodes >= s.limits.Nodes {
		s.aborted = true
	}
}
