// Package database provides PostgreSQL connection management.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds database connection configuration.
type Config struct {
	// URL, when set, is used as the connection string as is.
	URL string `yaml:"url" split_words:"true"`

	Host            string        `yaml:"host" split_words:"true"`
	Port            int           `yaml:"port" split_words:"true" validate:"gte=0,lte=65535"`
	User            string        `yaml:"user" split_words:"true"`
	Password        string        `yaml:"password" split_words:"true"`
	Database        string        `yaml:"database" split_words:"true"`
	SSLMode         string        `yaml:"ssl_mode" split_words:"true"`
	MaxOpenConns    int           `yaml:"max_open_conns" split_words:"true" validate:"gte=0,lte=1000"`
	MaxIdleConns    int           `yaml:"max_idle_conns" split_words:"true" validate:"gte=0,lte=1000"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" split_words:"true"`

	// ConnectRetries bounds the initial ping retries.
	ConnectRetries uint64 `yaml:"connect_retries" split_words:"true"`
}

// DefaultConfig returns the local development connection settings.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            5432,
		User:            "turnstat",
		Password:        "localdev",
		Database:        "turnstat",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
		ConnectRetries:  5,
	}
}

// ConnectionString returns the PostgreSQL connection string.
func (c Config) ConnectionString() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// Connect creates a new database connection pool. The first ping is retried
// with exponential backoff.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns) //nolint:gosec // MaxOpenConns is bounded by config validation
	}
	poolConfig.MinConns = int32(cfg.MaxIdleConns) //nolint:gosec // MaxIdleConns is bounded by config validation
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	ping := func() error {
		return pool.Ping(ctx)
	}
	if err := backoff.Retry(ping, backoff.WithContext(backoff.WithMaxRetries(bo, cfg.ConnectRetries), ctx)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}
