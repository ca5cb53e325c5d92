package pipeline

import (
	"sync"
	"time"
)

// JobMetrics tracks aggregation job statistics across runs.
type JobMetrics struct {
	mu sync.RWMutex

	// Counters
	TotalRuns      int64
	SuccessfulRuns int64
	FailedRuns     int64
	FilesProcessed int64
	RowsParsed     int64
	RowsSkipped    int64
	Outliers       int64

	// Last run
	LastRunAt        time.Time
	LastRunDuration  time.Duration
	LastStationCount int

	TotalDuration time.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *Job) GetMetrics() JobMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return JobMetrics{
		TotalRuns:        j.metrics.TotalRuns,
		SuccessfulRuns:   j.metrics.SuccessfulRuns,
		FailedRuns:       j.metrics.FailedRuns,
		FilesProcessed:   j.metrics.FilesProcessed,
		RowsParsed:       j.metrics.RowsParsed,
		RowsSkipped:      j.metrics.RowsSkipped,
		Outliers:         j.metrics.Outliers,
		LastRunAt:        j.metrics.LastRunAt,
		LastRunDuration:  j.metrics.LastRunDuration,
		LastStationCount: j.metrics.LastStationCount,
		TotalDuration:    j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *Job) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":         m.TotalRuns,
		"successful_runs":    m.SuccessfulRuns,
		"failed_runs":        m.FailedRuns,
		"files_processed":    m.FilesProcessed,
		"rows_parsed":        m.RowsParsed,
		"rows_skipped":       m.RowsSkipped,
		"outliers":           m.Outliers,
		"last_run_at":        m.LastRunAt,
		"last_run_duration":  m.LastRunDuration.String(),
		"last_station_count": m.LastStationCount,
		"total_duration":     m.TotalDuration.String(),
	}
}
