package store

import "context"

// Repository defines the interface for snapshot persistence.
type Repository interface {
	// Save stores a snapshot, replacing what Load returns.
	Save(ctx context.Context, snapshot Snapshot) error

	// Load returns the most recently saved snapshot.
	// Returns ErrSnapshotNotFound if nothing has been saved.
	Load(ctx context.Context) (*Snapshot, error)
}
