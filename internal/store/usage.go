package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tsanders-rh/lactl/pkg/types"
)

// UsageStore handles usage reports and their per-workspace rows
type UsageStore struct {
	pool *pgxpool.Pool
}

// SaveReport inserts a report and its workspace rows within a transaction
func (s *UsageStore) SaveReport(ctx context.Context, tx pgx.Tx, runID string, report *types.UsageReport) error {
	recommendation, err := json.Marshal(report.Recommendation)
	if err != nil {
		return fmt.Errorf("marshal recommendation: %w", err)
	}

	query := `
		INSERT INTO usage_reports (
			run_id, window_start, window_end, days, workspaces_analyzed,
			query_failures, analytics_gb, basic_gb, auxiliary_gb, total_gb,
			avg_analytics_gb_per_day, recommendation
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`

	_, err = tx.Exec(ctx, query,
		runID,
		report.WindowStart,
		report.WindowEnd,
		report.Days,
		report.WorkspacesAnalyzed,
		report.QueryFailures,
		report.Totals.AnalyticsGB,
		report.Totals.BasicGB,
		report.Totals.AuxiliaryGB,
		report.Totals.TotalGB,
		report.AvgAnalyticsGBPerDay,
		recommendation,
	)
	if err != nil {
		return fmt.Errorf("insert usage report: %w", err)
	}

	if len(report.Workspaces) == 0 {
		return nil
	}

	rowQuery := `
		INSERT INTO workspace_usage (
			id, run_id, position, workspace_id, workspace_name, subscription_id,
			region, analytics_gb, basic_gb, auxiliary_gb, total_gb, query_failed, used_fallback
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
	`

	batch := &pgx.Batch{}
	for i, w := range report.Workspaces {
		id := w.ID
		if id == "" {
			id = types.GenerateID()
		}
		batch.Queue(rowQuery,
			id,
			runID,
			i,
			w.WorkspaceID,
			w.WorkspaceName,
			w.SubscriptionID,
			w.Region,
			w.Totals.AnalyticsGB,
			w.Totals.BasicGB,
			w.Totals.AuxiliaryGB,
			w.Totals.TotalGB,
			w.QueryFailed,
			w.UsedFallback,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert workspace usage: %w", err)
	}

	return nil
}

// GetReport retrieves the usage report recorded for a run
func (s *UsageStore) GetReport(ctx context.Context, runID string) (*types.UsageReport, error) {
	query := `
		SELECT window_start, window_end, days, workspaces_analyzed,
			query_failures, analytics_gb, basic_gb, auxiliary_gb, total_gb,
			avg_analytics_gb_per_day, recommendation
		FROM usage_reports
		WHERE run_id = $1
	`

	report := types.UsageReport{RunID: runID}
	var recommendation []byte
	err := s.pool.QueryRow(ctx, query, runID).Scan(
		&report.WindowStart,
		&report.WindowEnd,
		&report.Days,
		&report.WorkspacesAnalyzed,
		&report.QueryFailures,
		&report.Totals.AnalyticsGB,
		&report.Totals.BasicGB,
		&report.Totals.AuxiliaryGB,
		&report.Totals.TotalGB,
		&report.AvgAnalyticsGBPerDay,
		&recommendation,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query usage report: %w", err)
	}

	if err := json.Unmarshal(recommendation, &report.Recommendation); err != nil {
		return nil, fmt.Errorf("decode recommendation: %w", err)
	}

	workspaces, err := s.listWorkspaces(ctx, runID)
	if err != nil {
		return nil, err
	}
	report.Workspaces = workspaces

	return &report, nil
}

func (s *UsageStore) listWorkspaces(ctx context.Context, runID string) ([]types.WorkspaceUsage, error) {
	query := `
		SELECT id, run_id, workspace_id, workspace_name, subscription_id, region,
			analytics_gb, basic_gb, auxiliary_gb, total_gb, query_failed, used_fallback
		FROM workspace_usage
		WHERE run_id = $1
		ORDER BY position ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query workspace usage: %w", err)
	}
	defer rows.Close()

	usage := []types.WorkspaceUsage{}
	for rows.Next() {
		var w types.WorkspaceUsage
		err := rows.Scan(
			&w.ID,
			&w.RunID,
			&w.WorkspaceID,
			&w.WorkspaceName,
			&w.SubscriptionID,
			&w.Region,
			&w.Totals.AnalyticsGB,
			&w.Totals.BasicGB,
			&w.Totals.AuxiliaryGB,
			&w.Totals.TotalGB,
			&w.QueryFailed,
			&w.UsedFallback,
		)
		if err != nil {
			return nil, fmt.Errorf("scan workspace usage: %w", err)
		}
		usage = append(usage, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workspace usage: %w", err)
	}

	return usage, nil
}
