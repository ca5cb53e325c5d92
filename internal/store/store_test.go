package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turnstat/turnstat/internal/aggregate"
	"github.com/turnstat/turnstat/internal/database"
	"github.com/turnstat/turnstat/internal/store"
)

func sampleSnapshot() store.Snapshot {
	return store.Snapshot{
		RunID:     uuid.NewString(),
		CreatedAt: time.Date(2015, 5, 1, 12, 0, 0, 0, time.UTC),
		Totals: []aggregate.StationTotal{
			{Station: "TIMES SQ-42 ST", Total: 9007199254740993},
			{Station: "34 ST-PENN STA", Total: 1000000},
			{Station: "59 ST", Total: 250},
		},
	}
}

// repositoryContract exercises behavior every Repository shares.
func repositoryContract(t *testing.T, repo store.Repository) {
	t.Helper()
	ctx := context.Background()

	_, err := repo.Load(ctx)
	require.ErrorIs(t, err, store.ErrSnapshotNotFound)

	first := sampleSnapshot()
	require.NoError(t, repo.Save(ctx, first))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.RunID, got.RunID)
	assert.True(t, first.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, first.Totals, got.Totals)

	second := sampleSnapshot()
	second.CreatedAt = first.CreatedAt.Add(time.Hour)
	second.Totals = []aggregate.StationTotal{{Station: "FULTON ST", Total: 42}}
	require.NoError(t, repo.Save(ctx, second))

	got, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.RunID, got.RunID)
	assert.Equal(t, map[string]int64{"FULTON ST": 42}, got.TotalsMap())

	assert.ErrorIs(t, repo.Save(ctx, store.Snapshot{}), store.ErrInvalidSnapshot)
}

func TestInMemoryRepository(t *testing.T) {
	repositoryContract(t, store.NewInMemoryRepository())
}

func TestInMemoryRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := store.NewInMemoryRepository()

	snapshot := sampleSnapshot()
	require.NoError(t, repo.Save(ctx, snapshot))
	snapshot.Totals[0].Total = 1

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	got.Totals[1].Total = 2

	again, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot().Totals[0].Total, again.Totals[0].Total)
	assert.Equal(t, int64(1000000), again.Totals[1].Total)
}

func TestFileRepository(t *testing.T) {
	repositoryContract(t, store.NewFileRepository(filepath.Join(t.TempDir(), "mta-data.json")))
}

func TestFileRepository_Format(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mta-data.json")
	repo := store.NewFileRepository(path)

	snapshot := sampleSnapshot()
	require.NoError(t, repo.Save(context.Background(), snapshot))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id": "`+snapshot.RunID+`"`)
	assert.Contains(t, string(data), `"TIMES SQ-42 ST": 9007199254740993`)
	assert.Contains(t, string(data), `"created_at": "2015-05-01T12:00:00Z"`)
}

func TestFileRepository_NoPartialArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing", "mta-data.json")
	repo := store.NewFileRepository(path)

	err := repo.Save(context.Background(), sampleSnapshot())
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 0)
}

func TestFileRepository_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mta-data.json")
	repo := store.NewFileRepository(path)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, repo.Save(ctx, sampleSnapshot()), context.Canceled)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileRepository_CorruptArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mta-data.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := store.NewFileRepository(path).Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrSnapshotNotFound)
}

func TestPostgresRepository(t *testing.T) {
	url := os.Getenv("TURNSTAT_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TURNSTAT_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	cfg := database.DefaultConfig()
	cfg.URL = url
	pool, err := database.Connect(ctx, cfg)
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Exec(ctx, "DROP TABLE IF EXISTS station_totals")
	require.NoError(t, err)

	repo := store.NewPostgresRepository(pool)
	require.NoError(t, repo.EnsureSchema(ctx))

	repositoryContract(t, repo)

	err = repo.Save(ctx, store.Snapshot{RunID: uuid.NewString()})
	assert.ErrorIs(t, err, store.ErrInvalidSnapshot)

	// Runs sharing a timestamp resolve by run id, whatever the save order.
	createdAt := time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		a, b := sampleSnapshot(), sampleSnapshot()
		a.CreatedAt = createdAt.Add(time.Duration(i) * time.Hour)
		b.CreatedAt = a.CreatedAt
		require.NoError(t, repo.Save(ctx, a))
		require.NoError(t, repo.Save(ctx, b))

		got, err := repo.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, max(a.RunID, b.RunID), got.RunID)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mta-data.json")

	repo, closeFn, err := store.Open(ctx, store.BackendFile, path, database.Config{})
	require.NoError(t, err)
	defer closeFn()
	fileRepo, ok := repo.(*store.FileRepository)
	require.True(t, ok)
	assert.Equal(t, path, fileRepo.Path())

	repo, closeFn, err = store.Open(ctx, store.BackendMemory, "", database.Config{})
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &store.InMemoryRepository{}, repo)

	_, closeFn, err = store.Open(ctx, "s3", "", database.Config{})
	assert.Error(t, err)
	assert.NotNil(t, closeFn)
}
