package store

import (
	"context"
	"sync"

	"github.com/turnstat/turnstat/internal/aggregate"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing and dry runs.
type InMemoryRepository struct {
	mu       sync.RWMutex
	snapshot *Snapshot
}

// NewInMemoryRepository creates a new in-memory snapshot repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

// Save stores a copy of snapshot.
func (r *InMemoryRepository) Save(_ context.Context, snapshot Snapshot) error {
	if snapshot.RunID == "" {
		return ErrInvalidSnapshot
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := snapshot
	cpy.Totals = append([]aggregate.StationTotal(nil), snapshot.Totals...)
	r.snapshot = &cpy
	return nil
}

// Load returns a copy of the stored snapshot.
func (r *InMemoryRepository) Load(_ context.Context) (*Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.snapshot == nil {
		return nil, ErrSnapshotNotFound
	}

	cpy := *r.snapshot
	cpy.Totals = append([]aggregate.StationTotal(nil), r.snapshot.Totals...)
	return &cpy, nil
}
