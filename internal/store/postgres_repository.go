package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turnstat/turnstat/internal/aggregate"
)

const schema = `
	CREATE TABLE IF NOT EXISTS station_totals (
		run_id     uuid        NOT NULL,
		station    text        NOT NULL,
		total      bigint      NOT NULL,
		created_at timestamptz NOT NULL,
		PRIMARY KEY (run_id, station)
	);
	CREATE INDEX IF NOT EXISTS station_totals_created_at_idx ON station_totals (created_at DESC);
`

// PostgresRepository is a PostgreSQL implementation of Repository. Every run
// is kept; Load returns the newest.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL snapshot repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the station_totals table if it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Save copies the snapshot rows in a single transaction.
func (r *PostgresRepository) Save(ctx context.Context, snapshot Snapshot) error {
	runID, err := uuid.Parse(snapshot.RunID)
	if err != nil {
		return fmt.Errorf("%w: run id: %v", ErrInvalidSnapshot, err)
	}

	// Runs are found through their rows, so an empty run cannot be stored.
	if len(snapshot.Totals) == 0 {
		return fmt.Errorf("%w: no station totals", ErrInvalidSnapshot)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	rows := make([][]any, 0, len(snapshot.Totals))
	for _, t := range snapshot.Totals {
		rows = append(rows, []any{[16]byte(runID), t.Station, t.Total, snapshot.CreatedAt})
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"station_totals"},
		[]string{"run_id", "station", "total", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy station totals: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Load returns the totals of the newest run. Runs sharing a timestamp are
// ordered by run id.
func (r *PostgresRepository) Load(ctx context.Context) (*Snapshot, error) {
	var snapshot Snapshot
	err := r.pool.QueryRow(ctx, `
		SELECT run_id::text, created_at
		FROM station_totals
		ORDER BY created_at DESC, run_id DESC
		LIMIT 1
	`).Scan(&snapshot.RunID, &snapshot.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT station, total
		FROM station_totals
		WHERE run_id = $1::uuid
	`, snapshot.RunID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make(map[string]int64)
	for rows.Next() {
		var station string
		var total int64
		if err := rows.Scan(&station, &total); err != nil {
			return nil, err
		}
		totals[station] = total
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	snapshot.Totals = aggregate.FromMap(totals)
	return &snapshot, nil
}
