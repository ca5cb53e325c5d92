package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turnstat/turnstat/internal/config"
	"github.com/turnstat/turnstat/internal/turnstile"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "turnstat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "*.txt", cfg.FilePattern)
	assert.Equal(t, "mta-data.json", cfg.OutputPath)
	assert.Equal(t, int64(0), cfg.MinDailyDelta)
	assert.Equal(t, int64(5000), cfg.MaxDailyDelta)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 25, cfg.TrafficTopN)
	assert.Equal(t, 10, cfg.ContributionTopK)
	assert.Len(t, cfg.ExcludeStations, 9)
	assert.False(t, cfg.NormalizeStationNames)
	assert.Equal(t, config.StoreFile, cfg.Store)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_DefaultsOnly(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, config.Default(), *cfg)
}

func TestLoad_FileThenEnv(t *testing.T) {
	chdir(t, t.TempDir())
	path := writeYAML(t, `
data_dir: /srv/turnstile
max_daily_delta: 8000
concurrency: 2
exclude_stations: ["59 ST"]
store: memory
log:
  level: debug
`)
	t.Setenv("TURNSTAT_CONCURRENCY", "6")
	t.Setenv("TURNSTAT_TRAFFIC_TOP_N", "40")
	t.Setenv("TURNSTAT_DB_HOST", "db.internal")
	t.Setenv("TURNSTAT_DB_PORT", "6432")
	t.Setenv("TURNSTAT_DB_CONN_MAX_LIFETIME", "1m")
	t.Setenv("TURNSTAT_OTEL_EXPORT_INTERVAL", "30s")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/turnstile", cfg.DataDir)
	assert.Equal(t, int64(8000), cfg.MaxDailyDelta)
	assert.Equal(t, 6, cfg.Concurrency)
	assert.Equal(t, 40, cfg.TrafficTopN)
	assert.Equal(t, []string{"59 ST"}, cfg.ExcludeStations)
	assert.Equal(t, config.StoreMemory, cfg.Store)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6432, cfg.Database.Port)
	assert.Equal(t, time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, "turnstat", cfg.Database.User)
	assert.Equal(t, 30*time.Second, cfg.Telemetry.ExportInterval)
	// Untouched keys keep their defaults.
	assert.Equal(t, "*.txt", cfg.FilePattern)
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	path := writeYAML(t, "file_pattern: \"turnstile_*.txt\"\n")
	t.Setenv("TURNSTAT_CONFIG", path)

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "turnstile_*.txt", cfg.FilePattern)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TURNSTAT_CONTRIBUTION_TOP_K=3\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("TURNSTAT_CONTRIBUTION_TOP_K") })

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.ContributionTopK)
}

func TestLoad_MissingFile(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "inverted delta range", yaml: "min_daily_delta: 100\nmax_daily_delta: 10\n"},
		{name: "zero max delta", yaml: "max_daily_delta: 0\n"},
		{name: "zero concurrency", yaml: "concurrency: 0\n"},
		{name: "ratio above one", yaml: "max_row_error_ratio: 1.5\n"},
		{name: "unknown store", yaml: "store: s3\n"},
		{name: "unknown log level", yaml: "log:\n  level: loud\n"},
		{name: "malformed yaml", yaml: "concurrency: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t, t.TempDir())
			_, err := config.Load(writeYAML(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestConfig_Pipeline(t *testing.T) {
	cfg := config.Default()
	cfg.MinDailyDelta = 10
	cfg.MaxDailyDelta = 100
	cfg.MaxRowErrorRatio = 0.25
	cfg.MinRowsForBudget = 20

	p := cfg.Pipeline()

	assert.Equal(t, 4, p.Concurrency)
	assert.Equal(t, int64(10), p.Reducer.MinDelta)
	assert.Equal(t, int64(100), p.Reducer.MaxDelta)
	assert.Equal(t, turnstile.ErrorBudgetConfig{MaxErrorRatio: 0.25, MinRows: 20}, p.Parser.ErrorBudget)
	assert.Equal(t, cfg.TimeLayouts, p.Parser.TimeLayouts)
}

func TestLogConfig_NewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := config.LogConfig{Level: "warn"}.NewLogger(&buf)
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	_, err = config.LogConfig{Level: "loud"}.NewLogger(&buf)
	assert.Error(t, err)
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent of testing.T.Chdir, Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
