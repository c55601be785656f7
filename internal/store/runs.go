package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tsanders-rh/lactl/pkg/types"
)

// RunStore handles run database operations
type RunStore struct {
	pool *pgxpool.Pool
}

// RunFilter narrows a run listing
type RunFilter struct {
	RunType *types.RunType
	Status  *types.RunStatus
	Limit   int
	Offset  int
}

const runColumns = `id, run_type, status, profile, region, tag_key, tag_value,
	cluster_id, error_code, error_message, started_at, ended_at, metadata`

func scanRun(row pgx.Row) (*types.Run, error) {
	var run types.Run
	err := row.Scan(
		&run.ID,
		&run.RunType,
		&run.Status,
		&run.Profile,
		&run.Region,
		&run.TagKey,
		&run.TagValue,
		&run.ClusterID,
		&run.ErrorCode,
		&run.ErrorMessage,
		&run.StartedAt,
		&run.EndedAt,
		&run.Metadata,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Create inserts a new run record
func (s *RunStore) Create(ctx context.Context, run *types.Run) error {
	query := `
		INSERT INTO runs (
			id, run_type, status, profile, region, tag_key, tag_value,
			cluster_id, started_at, metadata
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	_, err := s.pool.Exec(ctx, query,
		run.ID,
		run.RunType,
		run.Status,
		run.Profile,
		run.Region,
		run.TagKey,
		run.TagValue,
		run.ClusterID,
		run.StartedAt,
		run.Metadata,
	)

	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	return nil
}

// GetByID retrieves a run by ID
func (s *RunStore) GetByID(ctx context.Context, id string) (*types.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = $1`

	run, err := scanRun(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}

	return run, nil
}

// List returns runs newest first along with the total matching count
func (s *RunStore) List(ctx context.Context, filter RunFilter) ([]*types.Run, int, error) {
	where := `WHERE ($1::text IS NULL OR run_type = $1) AND ($2::text IS NULL OR status = $2)`

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM runs `+where, filter.RunType, filter.Status).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count runs: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + runColumns + ` FROM runs ` + where + `
		ORDER BY started_at DESC
		LIMIT $3 OFFSET $4`

	rows, err := s.pool.Query(ctx, query, filter.RunType, filter.Status, limit, filter.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []*types.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, total, nil
}

// SetCluster records the cluster a run provisioned or linked against
func (s *RunStore) SetCluster(ctx context.Context, id, clusterID string) error {
	result, err := s.pool.Exec(ctx, `UPDATE runs SET cluster_id = $1 WHERE id = $2`, clusterID, id)
	if err != nil {
		return fmt.Errorf("set run cluster: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// MarkSucceeded marks a run as succeeded and sets ended_at
func (s *RunStore) MarkSucceeded(ctx context.Context, id string, endedAt time.Time, metadata types.RunMetadata) error {
	query := `
		UPDATE runs
		SET status = $1, ended_at = $2, metadata = COALESCE($3, metadata)
		WHERE id = $4 AND status = $5
	`

	result, err := s.pool.Exec(ctx, query, types.RunStatusSucceeded, endedAt, metadata, id, types.RunStatusRunning)
	if err != nil {
		return fmt.Errorf("mark run succeeded: %w", err)
	}

	if result.RowsAffected() == 0 {
		return s.finishMiss(ctx, id)
	}

	return nil
}

// MarkFailed marks a run as failed with error details
func (s *RunStore) MarkFailed(ctx context.Context, id string, endedAt time.Time, errorCode, errorMessage string) error {
	query := `
		UPDATE runs
		SET status = $1, error_code = $2, error_message = $3, ended_at = $4
		WHERE id = $5 AND status = $6
	`

	result, err := s.pool.Exec(ctx, query, types.RunStatusFailed, errorCode, errorMessage, endedAt, id, types.RunStatusRunning)
	if err != nil {
		return fmt.Errorf("mark run failed: %w", err)
	}

	if result.RowsAffected() == 0 {
		return s.finishMiss(ctx, id)
	}

	return nil
}

// finishMiss tells an unknown run apart from one that is no longer RUNNING
func (s *RunStore) finishMiss(ctx context.Context, id string) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM runs WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check run: %w", err)
	}
	if exists {
		return ErrRunFinished
	}
	return ErrNotFound
}

// ListStale returns runs still RUNNING that started before startedBefore
func (s *RunStore) ListStale(ctx context.Context, startedBefore time.Time) ([]*types.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs
		WHERE status = $1 AND started_at < $2
		ORDER BY started_at`

	rows, err := s.pool.Query(ctx, query, types.RunStatusRunning, startedBefore)
	if err != nil {
		return nil, fmt.Errorf("query stale runs: %w", err)
	}
	defer rows.Close()

	var runs []*types.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

// DeleteEndedBefore removes finished runs, and with them their link
// outcomes and usage reports, that ended before the cutoff
func (s *RunStore) DeleteEndedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.pool.Exec(ctx,
		`DELETE FROM runs WHERE status <> $1 AND ended_at < $2`,
		types.RunStatusRunning, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old runs: %w", err)
	}
	return result.RowsAffected(), nil
}
