// Package config loads turnstat configuration from defaults, an optional YAML
// file and TURNSTAT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/turnstat/turnstat/internal/aggregate"
	"github.com/turnstat/turnstat/internal/database"
	"github.com/turnstat/turnstat/internal/pipeline"
	"github.com/turnstat/turnstat/internal/store"
	"github.com/turnstat/turnstat/internal/telemetry"
	"github.com/turnstat/turnstat/internal/turnstile"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TURNSTAT"

// Store backends.
const (
	StoreFile     = store.BackendFile
	StorePostgres = store.BackendPostgres
	StoreMemory   = store.BackendMemory
)

// DefaultExcludeStations are station names that alias other stations in
// the contribution table and are dropped before joining.
var DefaultExcludeStations = []string{
	"86 ST",
	"125 ST",
	"96 ST",
	"CANAL ST",
	"CHURCH AVE",
	"50 ST",
	"59 ST",
	"28 ST",
	"23 ST",
}

// Config represents the complete application configuration.
type Config struct {
	// Input
	DataDir     string   `yaml:"data_dir" split_words:"true" validate:"required"`
	FilePattern string   `yaml:"file_pattern" split_words:"true" validate:"required"`
	TimeLayouts []string `yaml:"time_layouts" split_words:"true" validate:"required,min=1,dive,required"`

	// Outputs
	OutputPath        string `yaml:"output_path" split_words:"true" validate:"required_if=Store file"`
	ContributionsPath string `yaml:"contributions_path" split_words:"true"`
	ReportPath        string `yaml:"report_path" split_words:"true" validate:"required"`

	// Reduction
	MinDailyDelta int64 `yaml:"min_daily_delta" split_words:"true" validate:"gte=0"`
	MaxDailyDelta int64 `yaml:"max_daily_delta" split_words:"true" validate:"gte=1,gtefield=MinDailyDelta"`
	Concurrency   int   `yaml:"concurrency" split_words:"true" validate:"gte=1,lte=256"`

	// Row error budget
	MaxRowErrorRatio float64 `yaml:"max_row_error_ratio" split_words:"true" validate:"gte=0,lte=1"`
	MinRowsForBudget uint32  `yaml:"min_rows_for_budget" split_words:"true" validate:"gte=1"`

	// Ranking
	ExcludeStations       []string `yaml:"exclude_stations" split_words:"true"`
	NormalizeStationNames bool     `yaml:"normalize_station_names" split_words:"true"`
	TrafficTopN           int      `yaml:"traffic_top_n" split_words:"true" validate:"gte=1"`
	ContributionTopK      int      `yaml:"contribution_top_k" split_words:"true" validate:"gte=1"`

	Store    string          `yaml:"store" split_words:"true" validate:"oneof=file postgres memory"`
	Database database.Config `yaml:"database" envconfig:"DB"`

	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"OTEL"`
	Log       LogConfig       `yaml:"log" envconfig:"LOG"`
}

// TelemetryConfig contains OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" split_words:"true"`
	Endpoint    string `yaml:"endpoint" split_words:"true" validate:"required_if=Enabled true"`
	Environment string `yaml:"environment" split_words:"true"`

	// ExportInterval is the metric push period.
	ExportInterval time.Duration `yaml:"export_interval" split_words:"true" validate:"gte=0"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	Level   string `yaml:"level" split_words:"true" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Console bool   `yaml:"console" split_words:"true"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir:               "data",
		FilePattern:           "*.txt",
		TimeLayouts:           append([]string(nil), turnstile.DefaultTimeLayouts...),
		OutputPath:            "mta-data.json",
		ContributionsPath:     "contributions.csv",
		ReportPath:            "report.xlsx",
		MinDailyDelta:         aggregate.DefaultMinDelta,
		MaxDailyDelta:         aggregate.DefaultMaxDelta,
		Concurrency:           4,
		MaxRowErrorRatio:      1.0,
		MinRowsForBudget:      100,
		ExcludeStations:       append([]string(nil), DefaultExcludeStations...),
		NormalizeStationNames: false,
		TrafficTopN:           25,
		ContributionTopK:      10,
		Store:                 StoreFile,
		Database:              database.DefaultConfig(),
		Telemetry: TelemetryConfig{
			Endpoint:       "localhost:4317",
			Environment:    "development",
			ExportInterval: telemetry.DefaultExportInterval,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds a validated Config. The YAML file at path is optional when
// path is empty; a named file that does not exist is an error. A .env file
// in the working directory is loaded into the environment first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadFile overlays the YAML file onto c. Keys absent from the file keep
// their current values.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// ErrorBudget returns the parser error budget settings.
func (c *Config) ErrorBudget() turnstile.ErrorBudgetConfig {
	return turnstile.ErrorBudgetConfig{
		MaxErrorRatio: c.MaxRowErrorRatio,
		MinRows:       c.MinRowsForBudget,
	}
}

// Pipeline returns the aggregation run settings.
func (c *Config) Pipeline() pipeline.Config {
	return pipeline.Config{
		Concurrency: c.Concurrency,
		Parser: turnstile.ParserConfig{
			TimeLayouts: c.TimeLayouts,
			ErrorBudget: c.ErrorBudget(),
		},
		Reducer: aggregate.ReducerConfig{
			MinDelta: c.MinDailyDelta,
			MaxDelta: c.MaxDailyDelta,
		},
	}
}

// NewLogger returns a zerolog logger writing to w at the configured level.
func (l LogConfig) NewLogger(w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(l.Level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parse log level: %w", err)
	}
	if l.Console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}
