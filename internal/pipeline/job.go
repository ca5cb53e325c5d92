package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/turnstat/turnstat/internal/aggregate"
	"github.com/turnstat/turnstat/internal/turnstile"
)

const instrumentationName = "github.com/turnstat/turnstat/internal/pipeline"

// ErrNoFiles is returned when Run is called without input files.
var ErrNoFiles = errors.New("no files to process")

// Job runs parse, reduce, aggregate and totalize over a batch of files.
type Job struct {
	config  Config
	parser  *turnstile.Parser
	reducer *aggregate.Reducer
	logger  zerolog.Logger
	tracer  trace.Tracer

	instruments *Instruments
	metrics     *JobMetrics
}

// JobConfig holds configuration for creating a Job.
type JobConfig struct {
	Config      Config
	Logger      zerolog.Logger
	Instruments *Instruments
}

// NewJob creates a new aggregation job.
func NewJob(cfg JobConfig) *Job {
	config := cfg.Config
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConfig().Concurrency
	}

	parserCfg := config.Parser
	parserCfg.Logger = cfg.Logger
	reducerCfg := config.Reducer
	reducerCfg.Logger = cfg.Logger

	return &Job{
		config:      config,
		parser:      turnstile.NewParser(parserCfg),
		reducer:     aggregate.NewReducer(reducerCfg),
		logger:      cfg.Logger,
		tracer:      otel.Tracer(instrumentationName),
		instruments: cfg.Instruments,
		metrics:     &JobMetrics{},
	}
}

// FileResult summarizes one parsed input file.
type FileResult struct {
	Path        string
	Rows        int
	SkippedRows int
	Turnstiles  int
}

// Result contains the outcome of a run.
type Result struct {
	RunID     string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	Files       []FileResult
	Rows        int
	SkippedRows int

	Turnstiles   int
	ControlUnits int
	Days         int
	Outliers     int

	// Stations are the period totals, busiest first.
	Stations []aggregate.StationTotal
}

type fileOutcome struct {
	result *turnstile.ParseResult
	err    error
}

// Run aggregates files into per-station totals. Files are parsed
// concurrently; the first fatal input error cancels the remaining work and is
// returned with no result.
func (j *Job) Run(ctx context.Context, files []string) (*Result, error) {
	if len(files) == 0 {
		return nil, &turnstile.FatalInputError{Err: ErrNoFiles}
	}

	startTime := time.Now()
	result := &Result{
		RunID:     uuid.NewString(),
		StartTime: startTime,
	}

	ctx, span := j.tracer.Start(ctx, "pipeline.Run", trace.WithAttributes(
		attribute.String("run_id", result.RunID),
		attribute.Int("files", len(files)),
	))
	defer span.End()

	logger := j.logger.With().Str("run_id", result.RunID).Logger()
	logger.Info().
		Int("files", len(files)).
		Int("concurrency", j.config.Concurrency).
		Msg("starting aggregation run")

	readings, err := j.parseAll(ctx, files, result)
	if err != nil {
		j.fail(ctx, span, logger, startTime, err)
		return nil, err
	}

	perTurnstile, stats, err := j.reduceAll(ctx, readings)
	if err != nil {
		j.fail(ctx, span, logger, startTime, err)
		return nil, err
	}
	result.Turnstiles = stats.Turnstiles
	result.Days = stats.Days
	result.Outliers = stats.Outliers

	units := aggregate.ByControlUnit(perTurnstile)
	result.ControlUnits = len(units)
	result.Stations = aggregate.Totalize(aggregate.ByStation(units))

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)
	j.instruments.recordRun(ctx, result.Outliers, result.Duration, false)
	span.SetAttributes(attribute.Int("stations", len(result.Stations)))

	logger.Info().
		Dur("duration", result.Duration).
		Int("rows", result.Rows).
		Int("skipped_rows", result.SkippedRows).
		Int("turnstiles", result.Turnstiles).
		Int("control_units", result.ControlUnits).
		Int("outliers", result.Outliers).
		Int("stations", len(result.Stations)).
		Msg("aggregation run completed")

	return result, nil
}

func (j *Job) fail(ctx context.Context, span trace.Span, logger zerolog.Logger, start time.Time, err error) {
	j.metrics.mu.Lock()
	j.metrics.TotalRuns++
	j.metrics.FailedRuns++
	j.metrics.mu.Unlock()

	j.instruments.recordRun(ctx, 0, time.Since(start), true)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	logger.Error().Err(err).Msg("aggregation run failed")
}

// parseAll parses every file on a worker pool and merges the readings.
func (j *Job) parseAll(ctx context.Context, files []string, result *Result) (turnstile.Readings, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	filesChan := make(chan string, len(files))
	outcomes := make(chan fileOutcome, len(files))

	var wg sync.WaitGroup
	for i := 0; i < min(j.config.Concurrency, len(files)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.parseWorker(ctx, filesChan, outcomes)
		}()
	}

	for _, f := range files {
		filesChan <- f
	}
	close(filesChan)

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	merged := make(turnstile.Readings)
	var firstErr error
	for out := range outcomes {
		if out.err != nil {
			if firstErr == nil {
				firstErr = out.err
				cancel()
			}
			continue
		}
		if firstErr != nil {
			continue
		}

		pr := out.result
		merged.Merge(pr.Readings)
		result.Rows += pr.Rows
		result.SkippedRows += pr.SkippedRows
		result.Files = append(result.Files, FileResult{
			Path:        pr.File,
			Rows:        pr.Rows,
			SkippedRows: pr.SkippedRows,
			Turnstiles:  len(pr.Readings),
		})
		j.instruments.recordFile(ctx, pr.Rows, pr.SkippedRows)
	}

	if firstErr != nil {
		return nil, firstErr
	}
	// Workers drop files silently once the parent context is done.
	if err := ctx.Err(); err != nil && len(result.Files) < len(files) {
		return nil, err
	}

	return merged, nil
}

func (j *Job) parseWorker(ctx context.Context, files <-chan string, outcomes chan<- fileOutcome) {
	for path := range files {
		select {
		case <-ctx.Done():
			return
		default:
			pr, err := j.parser.ParseFile(ctx, path)
			outcomes <- fileOutcome{result: pr, err: err}
		}
	}
}

// reduceAll shards turnstiles across workers. Shards own disjoint keys, so
// their outputs combine with a plain merge.
func (j *Job) reduceAll(ctx context.Context, readings turnstile.Readings) (aggregate.Grouped[turnstile.Key], aggregate.ReduceStats, error) {
	shardCount := j.config.Concurrency
	shards := make([]turnstile.Readings, shardCount)
	for i := range shards {
		shards[i] = make(turnstile.Readings)
	}
	i := 0
	for key, rs := range readings {
		shards[i%shardCount][key] = rs
		i++
	}

	type shardOutcome struct {
		grouped aggregate.Grouped[turnstile.Key]
		stats   aggregate.ReduceStats
	}
	outcomes := make(chan shardOutcome, shardCount)

	var wg sync.WaitGroup
	for _, shard := range shards {
		wg.Add(1)
		go func(shard turnstile.Readings) {
			defer wg.Done()
			grouped, stats := j.reducer.Reduce(shard)
			outcomes <- shardOutcome{grouped: grouped, stats: stats}
		}(shard)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	merged := make(aggregate.Grouped[turnstile.Key], len(readings))
	var stats aggregate.ReduceStats
	for out := range outcomes {
		aggregate.Merge(merged, out.grouped)
		stats.Add(out.stats)
	}

	if err := ctx.Err(); err != nil {
		return nil, aggregate.ReduceStats{}, err
	}

	return merged, stats, nil
}

func (j *Job) updateMetrics(result *Result) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.SuccessfulRuns++
	j.metrics.FilesProcessed += int64(len(result.Files))
	j.metrics.RowsParsed += int64(result.Rows)
	j.metrics.RowsSkipped += int64(result.SkippedRows)
	j.metrics.Outliers += int64(result.Outliers)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.LastStationCount = len(result.Stations)
	j.metrics.TotalDuration += result.Duration
}
