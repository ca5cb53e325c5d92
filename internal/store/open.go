package store

import (
	"context"
	"fmt"

	"github.com/turnstat/turnstat/internal/database"
)

// Backend names accepted by Open.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Open returns the repository for backend. The returned close function
// releases any connection and is never nil.
func Open(ctx context.Context, backend, path string, db database.Config) (Repository, func(), error) {
	switch backend {
	case BackendFile, "":
		return NewFileRepository(path), func() {}, nil
	case BackendMemory:
		return NewInMemoryRepository(), func() {}, nil
	case BackendPostgres:
		pool, err := database.Connect(ctx, db)
		if err != nil {
			return nil, func() {}, err
		}
		repo := NewPostgresRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, func() {}, err
		}
		return repo, pool.Close, nil
	default:
		return nil, func() {}, fmt.Errorf("unknown store backend %q", backend)
	}
}
