// Package uci implements the universal chess interface command loop: the
// host boundary between a GUI and the search core. Time arithmetic for
// clock-based controls lives here; the core only ever sees SearchLimits.
package uci

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mlomb/limbobot/internal/analysis"
	"github.com/mlomb/limbobot/internal/board"
	"github.com/mlomb/limbobot/internal/engine"
)

const (
	engineName   = "LimboBot"
	engineAuthor = "mlomb"
)

// Engine runs the UCI protocol over a search instance. Commands are
// processed serially; the search itself is single-threaded and bounded by
// its limits, so `go` blocks until a best move is found.
type Engine struct {
	search *engine.Search
	store  *analysis.Store // optional, may be nil
	log    zerolog.Logger

	out io.Writer

	// last completed-depth report, recorded for the analysis store
	lastInfo engine.SearchInfo
}

// New creates a UCI engine. store may be nil to disable persistence.
func New(search *engine.Search, store *analysis.Store, logger zerolog.Logger) *Engine {
	return &Engine{
		search: search,
		store:  store,
		log:    logger,
	}
}

// Run reads commands from r until quit or EOF, writing protocol output
// to w.
func (e *Engine) Run(r io.Reader, w io.Writer) error {
	e.out = w

	e.search.OnInfo = func(info engine.SearchInfo) {
		e.lastInfo = info
		e.printInfo(info)
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "uci":
			fmt.Fprintf(w, "id name %s\n", engineName)
			fmt.Fprintf(w, "id author %s\n", engineAuthor)
			fmt.Fprintln(w, "uciok")

		case "isready":
			fmt.Fprintln(w, "readyok")

		case "ucinewgame":
			e.search.NewGame()

		case "position":
			if err := e.handlePosition(fields[1:]); err != nil {
				e.log.Error().Err(err).Msg("position rejected")
			}

		case "go":
			e.handleGo(fields[1:])

		case "stop":
			// search runs synchronously and is already bounded by its
			// limits; nothing to interrupt here

		case "quit":
			return nil

		default:
			e.log.Debug().Str("command", fields[0]).Msg("ignoring unknown command")
		}
	}

	return scanner.Err()
}

// handlePosition parses `position [startpos | fen <fen>] [moves ...]`.
// On any error the previous search position is left unchanged.
func (e *Engine) handlePosition(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("position: missing arguments")
	}

	var start *board.Position
	var moves []string

	switch args[0] {
	case "startpos":
		start = board.NewPosition()
		args = args[1:]
	case "fen":
		idx := len(args)
		for i, a := range args {
			if a == "moves" {
				idx = i
				break
			}
		}
		pos, err := board.ParseFEN(strings.Join(args[1:idx], " "))
		if err != nil {
			return fmt.Errorf("position: %w", err)
		}
		start = pos
		args = args[idx:]
	default:
		return fmt.Errorf("position: expected startpos or fen, got %q", args[0])
	}

	if len(args) > 0 && args[0] == "moves" {
		moves = args[1:]
	}

	return e.search.SetPosition(start, moves)
}

// handleGo resolves limits, runs the search and reports the best move.
func (e *Engine) handleGo(args []string) {
	limits := e.parseLimits(args)

	hash := e.search.Stack().HashKey()
	if e.store != nil {
		if rec, err := e.store.Load(hash); err == nil {
			fmt.Fprintf(e.out, "info string previously analyzed to depth %d score cp %d best %s\n",
				rec.Depth, rec.Score, rec.BestMove)
		}
	}

	e.lastInfo = engine.SearchInfo{}
	best := e.search.Go(limits)

	if e.store != nil && e.lastInfo.Depth > 0 {
		pv := make([]string, len(e.lastInfo.PV))
		for i, m := range e.lastInfo.PV {
			pv[i] = m.String()
		}
		err := e.store.Save(hash, analysis.Record{
			Depth:      e.lastInfo.Depth,
			Score:      e.lastInfo.Score,
			BestMove:   best.String(),
			PV:         pv,
			Nodes:      e.lastInfo.Nodes,
			AnalyzedAt: time.Now(),
		})
		if err != nil {
			e.log.Warn().Err(err).Msg("failed to persist analysis")
		}
	}

	fmt.Fprintf(e.out, "bestmove %s\n", best.String())
}

// parseLimits converts go-command arguments into SearchLimits. Clock
// controls allocate increment + 2% of remaining time, minus a small
// margin so the flag is never overstepped.
func (e *Engine) parseLimits(args []string) engine.SearchLimits {
	var limits engine.SearchLimits
	var myTime, myInc, moveTime time.Duration

	us := e.search.Position().SideToMove

	intArg := func(i int) int64 {
		if i+1 >= len(args) {
			return 0
		}
		v, _ := strconv.ParseInt(args[i+1], 10, 64)
		return v
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "depth":
			limits.Depth = int(intArg(i))
		case "nodes":
			limits.Nodes = uint64(intArg(i))
		case "movetime":
			moveTime = time.Duration(intArg(i)) * time.Millisecond
		case "wtime":
			if us == board.White {
				myTime = time.Duration(intArg(i)) * time.Millisecond
			}
		case "btime":
			if us == board.Black {
				myTime = time.Duration(intArg(i)) * time.Millisecond
			}
		case "winc":
			if us == board.White {
				myInc = time.Duration(intArg(i)) * time.Millisecond
			}
		case "binc":
			if us == board.Black {
				myInc = time.Duration(intArg(i)) * time.Millisecond
			}
		case "infinite":
			// no limits
		}
	}

	budget := moveTime
	if budget == 0 && myTime > 0 {
		budget = myInc + myTime/50
	}

	if budget > 0 {
		// wiggle room to not time out
		if budget < 500*time.Millisecond {
			budget -= 10 * time.Millisecond
			if budget < 10*time.Millisecond {
				budget = 10 * time.Millisecond
			}
		} else {
			budget -= 100 * time.Millisecond
		}
		limits.Time = budget
	}

	return limits
}

func (e *Engine) printInfo(info engine.SearchInfo) {
	var pv strings.Builder
	for _, m := range info.PV {
		pv.WriteByte(' ')
		pv.WriteString(m.String())
	}

	fmt.Fprintf(e.out, "info depth %d time %d nodes %d evals %d score cp %d pv%s\n",
		info.Depth, info.Time.Milliseconds(), info.Nodes, info.Evals, info.Score, pv.String())
}
