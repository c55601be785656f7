package runner

import (
	"context"
	"fmt"

	"github.com/coder/quartz"
	"github.com/jackc/pgx/v5"
	"github.com/tsanders-rh/lactl/internal/store"
	"github.com/tsanders-rh/lactl/pkg/types"
)

// Recorder persists run history. Recording is best effort: a failing
// recorder never fails the run it observes.
type Recorder interface {
	StartRun(ctx context.Context, run *types.Run) error
	FinishRun(ctx context.Context, run *types.Run) error
	RecordCluster(ctx context.Context, run *types.Run, cluster *types.Cluster) error
	RecordLinks(ctx context.Context, run *types.Run, summary types.LinkSummary) error
	RecordUsage(ctx context.Context, run *types.Run, report *types.UsageReport) error
}

// NopRecorder discards run history. It is used when no database is
// configured.
type NopRecorder struct{}

// StartRun implements Recorder
func (NopRecorder) StartRun(context.Context, *types.Run) error {
	return nil
}

// FinishRun implements Recorder
func (NopRecorder) FinishRun(context.Context, *types.Run) error {
	return nil
}

// RecordCluster implements Recorder
func (NopRecorder) RecordCluster(context.Context, *types.Run, *types.Cluster) error {
	return nil
}

// RecordLinks implements Recorder
func (NopRecorder) RecordLinks(context.Context, *types.Run, types.LinkSummary) error {
	return nil
}

// RecordUsage implements Recorder
func (NopRecorder) RecordUsage(context.Context, *types.Run, *types.UsageReport) error {
	return nil
}

// StoreRecorder writes run history and audit events to PostgreSQL
type StoreRecorder struct {
	store *store.Store
	actor string
	clock quartz.Clock
}

// NewStoreRecorder creates a recorder. actor identifies the Azure principal
// in audit events.
func NewStoreRecorder(st *store.Store, actor string, clock quartz.Clock) *StoreRecorder {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &StoreRecorder{store: st, actor: actor, clock: clock}
}

// StartRun inserts the run in RUNNING state
func (r *StoreRecorder) StartRun(ctx context.Context, run *types.Run) error {
	return r.store.Runs.Create(ctx, run)
}

// FinishRun records the terminal status of the run
func (r *StoreRecorder) FinishRun(ctx context.Context, run *types.Run) error {
	endedAt := r.clock.Now()
	if run.EndedAt != nil {
		endedAt = *run.EndedAt
	}

	if run.Status == types.RunStatusSucceeded {
		return r.store.Runs.MarkSucceeded(ctx, run.ID, endedAt, run.Metadata)
	}

	code, msg := "", ""
	if run.ErrorCode != nil {
		code = *run.ErrorCode
	}
	if run.ErrorMessage != nil {
		msg = *run.ErrorMessage
	}
	return r.store.Runs.MarkFailed(ctx, run.ID, endedAt, code, msg)
}

// RecordCluster stores the observed cluster and audits its creation or
// adoption
func (r *StoreRecorder) RecordCluster(ctx context.Context, run *types.Run, cluster *types.Cluster) error {
	if err := r.store.Clusters.Upsert(ctx, cluster); err != nil {
		return err
	}
	if err := r.store.Runs.SetCluster(ctx, run.ID, cluster.ID); err != nil {
		return fmt.Errorf("set run cluster: %w", err)
	}

	action := types.AuditActionClusterCreate
	if cluster.Adopted {
		action = types.AuditActionClusterAdopt
	}
	return r.audit(ctx, run, action, &cluster.ID, types.AuditEventStatusSuccess, types.RunMetadata{
		"capacity_gb_per_day": cluster.CapacityGBPerDay,
		"provisioning_state":  string(cluster.ProvisioningState),
	})
}

// RecordLinks stores every link outcome of the batch in one transaction
func (r *StoreRecorder) RecordLinks(ctx context.Context, run *types.Run, summary types.LinkSummary) error {
	if summary.DryRun || len(summary.Outcomes) == 0 {
		return nil
	}

	status := types.AuditEventStatusSuccess
	if summary.Failed > 0 {
		status = types.AuditEventStatusFailure
	}
	event := r.event(run, types.AuditActionWorkspaceLink, &summary.ClusterID, status, types.RunMetadata{
		"attempted": summary.Attempted,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
	})

	return r.store.WithTx(ctx, func(tx pgx.Tx) error {
		if err := r.store.LinkOutcomes.RecordBatch(ctx, tx, run.ID, summary.Outcomes); err != nil {
			return err
		}
		return r.store.Audit.LogTx(ctx, tx, event)
	})
}

// RecordUsage stores the usage report and its workspace rows
func (r *StoreRecorder) RecordUsage(ctx context.Context, run *types.Run, report *types.UsageReport) error {
	metadata := types.RunMetadata{
		"avg_analytics_gb_per_day": report.AvgAnalyticsGBPerDay,
		"total_gb":                 report.Totals.TotalGB,
		"workspaces_analyzed":      report.WorkspacesAnalyzed,
	}
	if report.Recommendation.Tier != nil {
		metadata["recommended_tier"] = report.Recommendation.Tier.CapacityGBPerDay
	}
	event := r.event(run, types.AuditActionUsageAnalyze, nil, types.AuditEventStatusSuccess, metadata)

	return r.store.WithTx(ctx, func(tx pgx.Tx) error {
		if err := r.store.Usage.SaveReport(ctx, tx, run.ID, report); err != nil {
			return err
		}
		return r.store.Audit.LogTx(ctx, tx, event)
	})
}

func (r *StoreRecorder) audit(ctx context.Context, run *types.Run, action string, clusterID *string, status types.AuditEventStatus, metadata types.RunMetadata) error {
	return r.store.Audit.Log(ctx, r.event(run, action, clusterID, status, metadata))
}

func (r *StoreRecorder) event(run *types.Run, action string, clusterID *string, status types.AuditEventStatus, metadata types.RunMetadata) *types.AuditEvent {
	runID := run.ID
	return &types.AuditEvent{
		ID:              types.GenerateID(),
		Actor:           r.actor,
		Action:          action,
		TargetClusterID: clusterID,
		TargetRunID:     &runID,
		Status:          status,
		Metadata:        metadata,
		CreatedAt:       r.clock.Now(),
	}
}
