package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instruments holds the OpenTelemetry instruments recorded by a run.
type Instruments struct {
	filesProcessed metric.Int64Counter
	rowsParsed     metric.Int64Counter
	rowsSkipped    metric.Int64Counter
	outliers       metric.Int64Counter
	runDuration    metric.Float64Histogram
}

// NewInstruments creates the pipeline instruments on meter.
func NewInstruments(meter metric.Meter) (*Instruments, error) {
	filesProcessed, err := meter.Int64Counter(
		"turnstat.files.processed",
		metric.WithDescription("Number of input files parsed"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, err
	}

	rowsParsed, err := meter.Int64Counter(
		"turnstat.rows.parsed",
		metric.WithDescription("Number of data rows read from input files"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, err
	}

	rowsSkipped, err := meter.Int64Counter(
		"turnstat.rows.skipped",
		metric.WithDescription("Number of malformed rows skipped"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, err
	}

	outliers, err := meter.Int64Counter(
		"turnstat.deltas.outliers",
		metric.WithDescription("Number of implausible daily deltas dropped"),
		metric.WithUnit("{delta}"),
	)
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram(
		"turnstat.run.duration",
		metric.WithDescription("Duration of aggregation runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Instruments{
		filesProcessed: filesProcessed,
		rowsParsed:     rowsParsed,
		rowsSkipped:    rowsSkipped,
		outliers:       outliers,
		runDuration:    runDuration,
	}, nil
}

func (i *Instruments) recordFile(ctx context.Context, rows, skipped int) {
	if i == nil {
		return
	}
	i.filesProcessed.Add(ctx, 1)
	i.rowsParsed.Add(ctx, int64(rows))
	i.rowsSkipped.Add(ctx, int64(skipped))
}

func (i *Instruments) recordRun(ctx context.Context, outliers int, duration time.Duration, failed bool) {
	if i == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool("error", failed))
	i.outliers.Add(ctx, int64(outliers))
	i.runDuration.Record(ctx, duration.Seconds(), attrs)
}
