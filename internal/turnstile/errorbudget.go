package turnstile

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrorBudgetConfig bounds how many malformed rows a single file may carry
// before the whole file is rejected.
type ErrorBudgetConfig struct {
	// MaxErrorRatio is the tolerated fraction of malformed rows (0-1).
	// The budget trips once the observed ratio exceeds it.
	// Default: 1.0 (never trips; malformed rows are skipped)
	MaxErrorRatio float64

	// MinRows is the number of rows that must be seen before the ratio is
	// evaluated, so one bad row early in a file does not trip the budget.
	// Default: 100
	MinRows uint32
}

// DefaultErrorBudgetConfig skips malformed rows without ever rejecting a file.
func DefaultErrorBudgetConfig() ErrorBudgetConfig {
	return ErrorBudgetConfig{
		MaxErrorRatio: 1.0,
		MinRows:       100,
	}
}

// StrictErrorBudgetConfig rejects a file on its first malformed row.
func StrictErrorBudgetConfig() ErrorBudgetConfig {
	return ErrorBudgetConfig{
		MaxErrorRatio: 0,
		MinRows:       1,
	}
}

// ErrorBudget tracks row failures for one file. It is a circuit breaker whose
// requests are rows: once it opens, the file is abandoned.
type ErrorBudget struct {
	cfg ErrorBudgetConfig
	cb  *gobreaker.CircuitBreaker[Reading]
}

// NewErrorBudget creates a fresh budget for the named file.
func NewErrorBudget(name string, cfg ErrorBudgetConfig) *ErrorBudget {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		// Stay open for the remainder of the file.
		Timeout:     24 * time.Hour,
		ReadyToTrip: cfg.exceeded,
	}

	return &ErrorBudget{
		cfg: cfg,
		cb:  gobreaker.NewCircuitBreaker[Reading](settings),
	}
}

func (cfg ErrorBudgetConfig) exceeded(counts gobreaker.Counts) bool {
	if counts.Requests == 0 || counts.Requests < cfg.MinRows {
		return false
	}
	ratio := float64(counts.TotalFailures) / float64(counts.Requests)
	return ratio > cfg.MaxErrorRatio
}

// Do parses one row through the budget. It reports whether the budget is
// exhausted after this row.
func (b *ErrorBudget) Do(parse func() (Reading, error)) (Reading, bool, error) {
	reading, err := b.cb.Execute(parse)
	return reading, b.cb.State() == gobreaker.StateOpen, err
}

// Exhausted reports whether the rows seen so far break the budget. The
// breaker only re-evaluates on a failed row, so this is checked again once
// the file ends.
func (b *ErrorBudget) Exhausted() bool {
	return b.cb.State() == gobreaker.StateOpen || b.cfg.exceeded(b.cb.Counts())
}
