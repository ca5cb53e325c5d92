// Package store persists per-station period totals between the aggregate and
// report steps.
package store

import (
	"errors"
	"time"

	"github.com/turnstat/turnstat/internal/aggregate"
)

var (
	// ErrSnapshotNotFound is returned when no snapshot has been saved.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrInvalidSnapshot is returned when a snapshot cannot be saved as given.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// Snapshot is the persisted result of one aggregation run.
type Snapshot struct {
	RunID     string
	CreatedAt time.Time
	Totals    []aggregate.StationTotal
}

// TotalsMap returns the totals keyed by station.
func (s *Snapshot) TotalsMap() map[string]int64 {
	return aggregate.TotalsMap(s.Totals)
}
