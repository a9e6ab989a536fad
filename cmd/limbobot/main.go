// Command limbobot is the UCI chess engine binary.
package main

import (
	"flag"
	"os"

	"github.com/rs/zerolog"

	"github.com/mlomb/limbobot/internal/analysis"
	"github.com/mlomb/limbobot/internal/engine"
	"github.com/mlomb/limbobot/internal/uci"
	"github.com/mlomb/limbobot/nnue"
	"github.com/mlomb/limbobot/nnue/layers"
)

func main() {
	nnPath := flag.String("nn", "", "path to the network file (.nn)")
	hashMB := flag.Int("hash", 128, "transposition table size in MB")
	analysisDir := flag.String("analysis-dir", "", "directory for the persistent analysis store (empty to disable)")
	debug := flag.Bool("debug", false, "verbose diagnostics on stderr")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if !*debug {
		logger = logger.Level(zerolog.InfoLevel)
	}

	var model *nnue.Model
	var err error
	if *nnPath != "" {
		model, err = nnue.Load(*nnPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to load network")
		}
		logger.Info().Str("file", *nnPath).Str("arch", model.Arch()).Msg("network loaded")
	} else {
		// no network given: run with random weights so the protocol
		// still works, e.g. for driver testing
		model, err = nnue.NewRandomModel("hv+mb", 12345)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build fallback network")
		}
		logger.Warn().Msg("no --nn given, using random weights")
	}
	logger.Info().Str("backend", layers.Backend()).Msg("NNUE kernels")

	var store *analysis.Store
	if *analysisDir != "" {
		store, err = analysis.Open(*analysisDir)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open analysis store")
		}
		defer store.Close()
	}

	search := engine.NewSearch(model, *hashMB)

	if err := uci.New(search, store, logger).Run(os.Stdin, os.Stdout); err != nil {
		logger.Fatal().Err(err).Msg("command loop failed")
	}
}
