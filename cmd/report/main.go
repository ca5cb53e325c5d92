// Package main provides the entrypoint for the station ranking report.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/turnstat/turnstat/internal/config"
	"github.com/turnstat/turnstat/internal/ranking"
	"github.com/turnstat/turnstat/internal/report"
	"github.com/turnstat/turnstat/internal/store"
	"github.com/turnstat/turnstat/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "turnstat-report"

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	contributions := flag.String("contributions", "", "contribution CSV path")
	reportPath := flag.String("report", "", "xlsx report output path")
	flag.Parse()

	bootLog := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}
	if *contributions != "" {
		cfg.ContributionsPath = *contributions
	}
	if *reportPath != "" {
		cfg.ReportPath = *reportPath
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
		Str("store", cfg.Store).
		Str("contributions", cfg.ContributionsPath).
		Msg("starting station report")

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("report failed")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
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
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	ctx, span := tp.Tracer.Start(ctx, "report.Run")
	defer span.End()

	repo, closeRepo, err := store.Open(ctx, cfg.Store, cfg.OutputPath, cfg.Database)
	if err != nil {
		return err
	}
	defer closeRepo()

	snapshot, err := repo.Load(ctx)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.String("run_id", snapshot.RunID))
	log.Info().
		Str("run_id", snapshot.RunID).
		Time("created_at", snapshot.CreatedAt).
		Int("stations", len(snapshot.Totals)).
		Msg("snapshot loaded")

	contributions, err := ranking.LoadContributionsFile(cfg.ContributionsPath)
	if err != nil {
		return err
	}

	ranker := ranking.NewRanker(ranking.RankerConfig{
		Exclude:     cfg.ExcludeStations,
		TrafficTopN: cfg.TrafficTopN,
		TopK:        cfg.ContributionTopK,
		Normalize:   cfg.NormalizeStationNames,
		Logger:      log,
	})

	traffic := ranking.TopByTraffic(snapshot.Totals, cfg.TrafficTopN)
	result := ranker.RankDetailed(snapshot.Totals, contributions)

	span.AddEvent("ranked", trace.WithAttributes(
		attribute.Int("ranked", len(result.Stations)),
		attribute.Int("excluded", len(result.Excluded)),
		attribute.Int("misses", len(result.Misses)),
	))

	if err := report.WriteWorkbook(cfg.ReportPath, traffic, result.Stations); err != nil {
		return err
	}

	log.Info().
		Str("report", cfg.ReportPath).
		Int("traffic_rows", len(traffic)).
		Int("ranked", len(result.Stations)).
		Strs("excluded", result.Excluded).
		Strs("misses", result.Misses).
		Msg("report written")

	for i, st := range result.Stations {
		log.Info().
			Int("rank", i+1).
			Str("station", st.Station).
			Int64("traffic", st.Traffic).
			Float64("median_contribution", st.MedianContribution).
			Float64("potential_contribution", st.PotentialContribution).
			Msg("ranked station")
	}

	return nil
}
