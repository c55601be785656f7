package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tsanders-rh/lactl/pkg/types"
)

const auditColumns = `id, actor, action, target_cluster_id, target_run_id, status, metadata, created_at`

// execer is satisfied by both the pool and a transaction
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// AuditStore is an append-only log of cluster, link and analysis actions
type AuditStore struct {
	pool *pgxpool.Pool
}

// Log appends event outside any transaction
func (s *AuditStore) Log(ctx context.Context, event *types.AuditEvent) error {
	return insertAudit(ctx, s.pool, event)
}

// LogTx appends event as part of tx, so it commits with the records it
// describes
func (s *AuditStore) LogTx(ctx context.Context, tx pgx.Tx, event *types.AuditEvent) error {
	return insertAudit(ctx, tx, event)
}

func insertAudit(ctx context.Context, db execer, event *types.AuditEvent) error {
	_, err := db.Exec(ctx,
		`INSERT INTO audit_events (`+auditColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.ID, event.Actor, event.Action, event.TargetClusterID, event.TargetRunID,
		event.Status, event.Metadata, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit event %s: %w", event.Action, err)
	}
	return nil
}

// ListByRun returns the events recorded for a run in the order they happened
func (s *AuditStore) ListByRun(ctx context.Context, runID string) ([]*types.AuditEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+auditColumns+` FROM audit_events WHERE target_run_id = $1 ORDER BY created_at, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*types.AuditEvent, error) {
		var e types.AuditEvent
		err := row.Scan(&e.ID, &e.Actor, &e.Action, &e.TargetClusterID, &e.TargetRunID,
			&e.Status, &e.Metadata, &e.CreatedAt)
		return &e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan audit events: %w", err)
	}
	return events, nil
}
