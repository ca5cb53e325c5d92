package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turnstat/turnstat/internal/config"
)

const header = "C/A,UNIT,SCP,STATION,LINENAME,DIVISION,DATE,TIME,DESC,ENTRIES,EXITS\n"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.OutputPath = filepath.Join(t.TempDir(), "mta-data.json")
	return &cfg
}

func TestRun(t *testing.T) {
	cfg := testConfig(t)
	body := header +
		"A002,R051,02-00-00,59 ST,NQR456,BMT,04/25/2015,00:00:00,REGULAR,100,50\n" +
		"A002,R051,02-00-00,59 ST,NQR456,BMT,04/25/2015,04:00:00,REGULAR,150,60\n"
	require.NoError(t, os.WriteFile(filepath.Join(cfg.DataDir, "turnstile_150425.txt"), []byte(body), 0o600))

	assert.Equal(t, exitOK, run(cfg, zerolog.Nop()))

	data, err := os.ReadFile(cfg.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"59 ST": 60`)
}

func TestRun_NoInput(t *testing.T) {
	cfg := testConfig(t)

	assert.Equal(t, exitInput, run(cfg, zerolog.Nop()))

	_, err := os.Stat(cfg.OutputPath)
	assert.True(t, os.IsNotExist(err))
}

func TestRun_RejectedFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxRowErrorRatio = 0
	cfg.MinRowsForBudget = 1
	body := header + "A002,R051,02-00-00,59 ST,NQR456,BMT,04/25/2015,00:00:00,REGULAR,x,50\n"
	require.NoError(t, os.WriteFile(filepath.Join(cfg.DataDir, "turnstile_150425.txt"), []byte(body), 0o600))

	assert.Equal(t, exitInput, run(cfg, zerolog.Nop()))
}
