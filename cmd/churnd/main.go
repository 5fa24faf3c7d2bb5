package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"churn-predictor/internal/cfg"
	"churn-predictor/internal/common"
	"churn-predictor/internal/metrics"
	"churn-predictor/internal/ml"
	"churn-predictor/internal/preprocess"
	"churn-predictor/internal/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	setupLogging(c)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewWithRegistry(registry)

	// The model is loaded once; a missing or corrupt artifact is fatal.
	predictor, err := ml.NewWithMetrics(c.ModelPath, metrics.NewWrapper(m), c.TargetColumn)
	if err != nil {
		log.Fatal().Err(err).Str("path", c.ModelPath).Msg("model load failed")
	}
	md := predictor.Metadata()
	log.Info().
		Str("path", predictor.ModelPath()).
		Str("version", md.Version).
		Str("best_model", md.BestModel).
		Float64("validation_r2", md.ValidationScore).
		Msg("model loaded")

	pre, err := preprocess.New(c.SchemaMode, common.ExpectedColumns, common.IDColumn, c.TargetColumn)
	if err != nil {
		log.Fatal().Err(err).Msg("preprocessor init failed")
	}

	srv := server.New(predictor, pre, m, registry, server.Config{
		Addr:           c.ListenAddr,
		ReadTimeout:    c.ReadTimeout,
		WriteTimeout:   c.WriteTimeout,
		MaxUploadBytes: c.MaxUploadBytes,
		RateLimit:      c.RateLimit,
		RateBurst:      c.RateBurst,
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	waitForShutdown(srv, predictor, serverErr, c.ShutdownTimeout)
}

func setupLogging(c cfg.Settings) {
	zerolog.SetGlobalLevel(c.Level())
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if c.LogFormat == common.LogFormatConsole {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// waitForShutdown blocks until a signal arrives or the listener fails, then
// drains in-flight requests and releases the model.
func waitForShutdown(srv *server.Server, predictor *ml.Predictor, serverErr <-chan error, timeout time.Duration) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case err, ok := <-serverErr:
		if ok && err != nil {
			log.Error().Err(err).Msg("server failed")
			exitCode = 1
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		exitCode = 1
	}
	if err := predictor.Close(); err != nil {
		log.Warn().Err(err).Msg("predictor close failed")
	}

	log.Info().Msg("shutdown complete")
	if exitCode != 0 {
		cancel()
		os.Exit(exitCode)
	}
}
