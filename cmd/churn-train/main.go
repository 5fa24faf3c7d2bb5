package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"churn-predictor/internal/common"
	"churn-predictor/internal/training"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	defaults := training.DefaultConfig()
	var (
		dataPath  = flag.String("data", defaults.DataPath, "Path to the labeled dataset (.csv, .xls, .xlsx)")
		output    = flag.String("output", defaults.OutputDir, "Models directory; each run is written to a versioned subdirectory")
		target    = flag.String("target", defaults.Target, "Name of the target column")
		trainFrac = flag.Float64("train-fraction", defaults.TrainFraction, "Share of rows used for training")
		threshold = flag.Float64("missing-threshold", defaults.MissingThreshold, "Minimum share of present values to keep a column")
		seed      = flag.Uint64("seed", defaults.Seed, "Random seed for splits")
		logLevel  = flag.String("log-level", common.DefaultLogLevel, "Log level: debug, info, warn, error")
		list      = flag.Bool("list", false, "List registered versions in -output and exit")
		activate  = flag.String("activate", "", "Activate a registered version in -output and exit")
		rollback  = flag.Bool("rollback", false, "Activate the version before the active one and exit")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch {
	case *list:
		if err := training.PrintVersions(os.Stdout, *output); err != nil {
			log.Fatal().Err(err).Str("models", *output).Msg("failed to list versions")
		}
		return
	case *activate != "":
		if _, err := training.Activate(*output, *activate); err != nil {
			log.Fatal().Err(err).Str("models", *output).Msg("activation failed")
		}
		return
	case *rollback:
		if _, err := training.Rollback(*output); err != nil {
			log.Fatal().Err(err).Str("models", *output).Msg("rollback failed")
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := training.Run(ctx, training.Config{
		DataPath:         *dataPath,
		OutputDir:        *output,
		Target:           *target,
		TrainFraction:    *trainFrac,
		MissingThreshold: *threshold,
		Seed:             *seed,
	})
	if err != nil {
		log.Fatal().Err(err).Str("data", *dataPath).Msg("training failed")
	}

	training.PrintSummary(os.Stdout, res)

	reportPath, err := training.WriteReport(res)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to write training report")
	}
	fmt.Printf("\nReport saved to: %s\n", reportPath)
}
