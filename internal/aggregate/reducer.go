package aggregate

import (
	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/turnstat/turnstat/internal/turnstile"
)

// ReducerConfig holds configuration for the daily delta reducer.
type ReducerConfig struct {
	// MinDelta is the smallest daily delta kept. Default: 0
	MinDelta int64

	// MaxDelta is the largest daily delta kept. Default: 5000
	MaxDelta int64

	// Logger for outlier diagnostics.
	Logger zerolog.Logger
}

// DefaultReducerConfig returns the default plausible delta range.
func DefaultReducerConfig() ReducerConfig {
	return ReducerConfig{
		MinDelta: DefaultMinDelta,
		MaxDelta: DefaultMaxDelta,
		Logger:   zerolog.Nop(),
	}
}

// ReduceStats counts what a reduction kept and dropped.
type ReduceStats struct {
	Turnstiles int
	Days       int
	Outliers   int
}

// Add accumulates other into s.
func (s *ReduceStats) Add(other ReduceStats) {
	s.Turnstiles += other.Turnstiles
	s.Days += other.Days
	s.Outliers += other.Outliers
}

// Reducer turns cumulative readings into one delta per turnstile per day.
type Reducer struct {
	minDelta int64
	maxDelta int64
	logger   zerolog.Logger
}

// NewReducer creates a new reducer. A config with both bounds zero uses the
// default range.
func NewReducer(cfg ReducerConfig) *Reducer {
	if cfg.MinDelta == 0 && cfg.MaxDelta == 0 {
		cfg.MinDelta = DefaultMinDelta
		cfg.MaxDelta = DefaultMaxDelta
	}

	return &Reducer{
		minDelta: cfg.MinDelta,
		maxDelta: cfg.MaxDelta,
		logger:   cfg.Logger,
	}
}

// Reduce derives daily deltas for every turnstile. Turnstiles left with no
// plausible day are omitted.
func (r *Reducer) Reduce(readings turnstile.Readings) (Grouped[turnstile.Key], ReduceStats) {
	out := make(Grouped[turnstile.Key], len(readings))
	var stats ReduceStats

	for key, rs := range readings {
		daily, outliers := r.ReduceTurnstile(rs)
		stats.Outliers += outliers
		if outliers > 0 {
			r.logger.Trace().
				Stringer("turnstile", key).
				Int("outliers", outliers).
				Msg("dropped implausible daily deltas")
		}
		if len(daily) == 0 {
			continue
		}
		out[key] = daily
		stats.Turnstiles++
		stats.Days += len(daily)
	}

	return out, stats
}

// ReduceTurnstile groups one turnstile's readings by calendar date and keeps
// max-min per date when it lies within the plausible range. A date with a
// single reading yields 0. It returns the number of dates dropped.
func (r *Reducer) ReduceTurnstile(readings []turnstile.Reading) (Daily, int) {
	type span struct{ lo, hi int64 }
	spans := make(map[civil.Date]span)

	for _, rd := range readings {
		date := civil.DateOf(rd.Time)
		s, ok := spans[date]
		if !ok {
			spans[date] = span{lo: rd.Count, hi: rd.Count}
			continue
		}
		s.lo = min(s.lo, rd.Count)
		s.hi = max(s.hi, rd.Count)
		spans[date] = s
	}

	daily := make(Daily, len(spans))
	outliers := 0
	for date, s := range spans {
		delta := s.hi - s.lo
		if delta < r.minDelta || delta > r.maxDelta {
			outliers++
			continue
		}
		daily[date] = delta
	}

	return daily, outliers
}
