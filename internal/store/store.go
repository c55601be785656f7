package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// migrationLockID keys the advisory lock that serializes concurrent Migrate
// calls from the CLI and the API server.
const migrationLockID = 0x6c6163746c

// Store is the run history database. Each table has its own sub-store
// sharing one pool.
type Store struct {
	pool *pgxpool.Pool

	Runs         *RunStore
	Clusters     *ClusterStore
	LinkOutcomes *LinkOutcomeStore
	Usage        *UsageStore
	Audit        *AuditStore
}

// New wraps an open pool
func New(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:         pool,
		Runs:         &RunStore{pool: pool},
		Clusters:     &ClusterStore{pool: pool},
		LinkOutcomes: &LinkOutcomeStore{pool: pool},
		Usage:        &UsageStore{pool: pool},
		Audit:        &AuditStore{pool: pool},
	}
}

// NewStore connects to databaseURL with DefaultConfig
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := NewPool(ctx, DefaultConfig(databaseURL))
	if err != nil {
		return nil, err
	}
	return New(pool), nil
}

// WithTx runs fn in a transaction, committing only when fn returns nil
func (s *Store) WithTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Migrate creates any missing tables and indexes
func (s *Store) Migrate(ctx context.Context) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(migrationLockID)); err != nil {
			return fmt.Errorf("lock schema: %w", err)
		}
		for i, stmt := range schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply schema statement %d: %w", i, err)
			}
		}
		return nil
	})
}

// Ping verifies the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool
func (s *Store) Close() {
	s.pool.Close()
}
