// Package main provides the entrypoint for the turnstile aggregation run.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/turnstat/turnstat/internal/config"
	"github.com/turnstat/turnstat/internal/pipeline"
	"github.com/turnstat/turnstat/internal/store"
	"github.com/turnstat/turnstat/internal/telemetry"
	"github.com/turnstat/turnstat/internal/turnstile"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "turnstat-aggregate"

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitInput = 2
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	dataDir := flag.String("data-dir", "", "directory holding turnstile files")
	pattern := flag.String("pattern", "", "glob selecting turnstile files inside the data directory")
	out := flag.String("out", "", "snapshot output path for the file store")
	flag.Parse()

	bootLog := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *pattern != "" {
		cfg.FilePattern = *pattern
	}
	if *out != "" {
		cfg.OutputPath = *out
	}

	logger, err := cfg.Log.NewLogger(os.Stdout)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("failed to configure logging")
	}
	log := logger.With().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Str("data_dir", cfg.DataDir).
		Str("pattern", cfg.FilePattern).
		Str("store", cfg.Store).
		Msg("starting turnstile aggregation")

	os.Exit(run(cfg, log))
}

func run(cfg *config.Config, log zerolog.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Telemetry.Environment,
		OTLPEndpoint:   cfg.Telemetry.Endpoint,
		Enabled:        cfg.Telemetry.Enabled,
		ExportInterval: cfg.Telemetry.ExportInterval,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize telemetry")
		return exitError
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	instruments, err := pipeline.NewInstruments(tp.Meter)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		return exitError
	}

	files, err := turnstile.Discover(cfg.DataDir, cfg.FilePattern)
	if err != nil {
		log.Error().Err(err).Msg("no input")
		return exitInput
	}

	job := pipeline.NewJob(pipeline.JobConfig{
		Config:      cfg.Pipeline(),
		Logger:      log,
		Instruments: instruments,
	})

	result, err := job.Run(ctx, files)
	if err != nil {
		var fatal *turnstile.FatalInputError
		if errors.As(err, &fatal) {
			return exitInput
		}
		return exitError
	}

	repo, closeRepo, err := store.Open(ctx, cfg.Store, cfg.OutputPath, cfg.Database)
	if err != nil {
		log.Error().Err(err).Msg("failed to open store")
		return exitError
	}
	defer closeRepo()

	snapshot := store.Snapshot{
		RunID:     result.RunID,
		CreatedAt: result.EndTime,
		Totals:    result.Stations,
	}
	if err := repo.Save(ctx, snapshot); err != nil {
		log.Error().Err(err).Msg("failed to save snapshot")
		return exitError
	}

	log.Info().
		Str("run_id", result.RunID).
		Str("store", cfg.Store).
		Str("output", cfg.OutputPath).
		Int("files", len(result.Files)).
		Int("rows", result.Rows).
		Int("skipped_rows", result.SkippedRows).
		Int("outliers", result.Outliers).
		Int("stations", len(result.Stations)).
		Msg("snapshot saved")

	for i, st := range result.Stations[:min(10, len(result.Stations))] {
		log.Info().
			Int("rank", i+1).
			Str("station", st.Station).
			Int64("traffic", st.Total).
			Msg("top station")
	}

	log.Info().Fields(job.MetricsSnapshot()).Msg("job metrics")

	return exitOK
}
