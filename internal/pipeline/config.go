// Package pipeline runs the aggregation stages over a set of input files.
package pipeline

import (
	"github.com/turnstat/turnstat/internal/aggregate"
	"github.com/turnstat/turnstat/internal/turnstile"
)

// Config holds configuration for an aggregation run.
type Config struct {
	// Concurrency is the number of files parsed, and turnstile shards
	// reduced, at once.
	// Default: 4
	Concurrency int

	// Parser controls record parsing and the per-file error budget.
	Parser turnstile.ParserConfig

	// Reducer controls the plausible daily delta range.
	Reducer aggregate.ReducerConfig
}

// DefaultConfig returns the default run configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency: 4,
		Parser: turnstile.ParserConfig{
			TimeLayouts: turnstile.DefaultTimeLayouts,
			ErrorBudget: turnstile.DefaultErrorBudgetConfig(),
		},
		Reducer: aggregate.DefaultReducerConfig(),
	}
}
