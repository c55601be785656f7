package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config tunes the run history connection pool. The CLI opens one short-lived
// pool per invocation; the API server keeps one for its lifetime.
type Config struct {
	DatabaseURL     string
	ApplicationName string
	MaxConns        int32
	MinConns        int32
	MaxConnIdleTime time.Duration
	// StatementTimeout bounds every query server-side; zero leaves the
	// server default.
	StatementTimeout time.Duration
}

// DefaultConfig returns pool settings for databaseURL
func DefaultConfig(databaseURL string) *Config {
	return &Config{
		DatabaseURL:      databaseURL,
		ApplicationName:  "lactl",
		MaxConns:         4,
		MinConns:         0,
		MaxConnIdleTime:  5 * time.Minute,
		StatementTimeout: 30 * time.Second,
	}
}

// NewPool opens and pings a pool built from cfg
func NewPool(ctx context.Context, cfg *Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	params := poolConfig.ConnConfig.RuntimeParams
	if cfg.ApplicationName != "" {
		params["application_name"] = cfg.ApplicationName
	}
	if cfg.StatementTimeout > 0 {
		params["statement_timeout"] = fmt.Sprintf("%d", cfg.StatementTimeout.Milliseconds())
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}
