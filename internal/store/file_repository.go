package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/turnstat/turnstat/internal/aggregate"
)

// FileRepository stores a snapshot as a JSON document on disk.
type FileRepository struct {
	path string
}

// NewFileRepository creates a repository backed by the file at path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// Path returns the artifact location.
func (r *FileRepository) Path() string {
	return r.path
}

type fileSnapshot struct {
	RunID     string           `json:"run_id"`
	CreatedAt time.Time        `json:"created_at"`
	Totals    map[string]int64 `json:"totals"`
}

// Save writes the snapshot to a temporary file in the target directory and
// renames it into place, so readers never observe a partial artifact.
func (r *FileRepository) Save(ctx context.Context, snapshot Snapshot) error {
	if snapshot.RunID == "" {
		return ErrInvalidSnapshot
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(fileSnapshot{
		RunID:     snapshot.RunID,
		CreatedAt: snapshot.CreatedAt.UTC(),
		Totals:    aggregate.TotalsMap(snapshot.Totals),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}

	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}

	return nil
}

// Load reads the snapshot from disk.
func (r *FileRepository) Load(_ context.Context) (*Snapshot, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var doc fileSnapshot
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", r.path, err)
	}

	return &Snapshot{
		RunID:     doc.RunID,
		CreatedAt: doc.CreatedAt,
		Totals:    aggregate.FromMap(doc.Totals),
	}, nil
}
