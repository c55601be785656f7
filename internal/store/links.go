package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tsanders-rh/lactl/pkg/types"
)

// LinkOutcomeStore handles per-workspace link results
type LinkOutcomeStore struct {
	pool *pgxpool.Pool
}

// RecordBatch inserts the outcomes of one linking batch within a transaction
func (s *LinkOutcomeStore) RecordBatch(ctx context.Context, tx pgx.Tx, runID string, outcomes []types.LinkOutcome) error {
	query := `
		INSERT INTO link_outcomes (
			id, run_id, position, workspace_id, workspace_name, subscription_id,
			success, already_linked, error, attempted_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	batch := &pgx.Batch{}
	for i, o := range outcomes {
		id := o.ID
		if id == "" {
			id = types.GenerateID()
		}
		batch.Queue(query,
			id,
			runID,
			i,
			o.WorkspaceID,
			o.WorkspaceName,
			o.SubscriptionID,
			o.Success,
			o.AlreadyLinked,
			o.Error,
			o.AttemptedAt,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert link outcomes: %w", err)
	}

	return nil
}

// ListByRun retrieves the outcomes of a run in attempt order
func (s *LinkOutcomeStore) ListByRun(ctx context.Context, runID string) ([]types.LinkOutcome, error) {
	query := `
		SELECT id, run_id, workspace_id, workspace_name, subscription_id,
			success, already_linked, error, attempted_at
		FROM link_outcomes
		WHERE run_id = $1
		ORDER BY position ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query link outcomes: %w", err)
	}
	defer rows.Close()

	outcomes := []types.LinkOutcome{}
	for rows.Next() {
		var o types.LinkOutcome
		err := rows.Scan(
			&o.ID,
			&o.RunID,
			&o.WorkspaceID,
			&o.WorkspaceName,
			&o.SubscriptionID,
			&o.Success,
			&o.AlreadyLinked,
			&o.Error,
			&o.AttemptedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan link outcome: %w", err)
		}
		outcomes = append(outcomes, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate link outcomes: %w", err)
	}

	return outcomes, nil
}
