package link

import (
	"context"
	"fmt"
	"strings"

	"cdr.dev/slog/v3"
	"github.com/coder/quartz"
	lerrors "github.com/tsanders-rh/lactl/pkg/errors"
	"github.com/tsanders-rh/lactl/pkg/types"
)

// Linker links a single workspace to a cluster. The workspace carries its
// own subscription, so no ambient subscription context is involved.
type Linker interface {
	LinkWorkspace(ctx context.Context, ws types.Workspace, clusterID string) (alreadyLinked bool, err error)
}

// Options controls a linking batch
type Options struct {
	DryRun bool
}

// Orchestrator links a batch of workspaces with per-workspace fault isolation
type Orchestrator struct {
	linker Linker
	clock  quartz.Clock
	log    slog.Logger
}

// NewOrchestrator creates a linking orchestrator
func NewOrchestrator(linker Linker, clock quartz.Clock, log slog.Logger) *Orchestrator {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Orchestrator{
		linker: linker,
		clock:  clock,
		log:    log.Named("link"),
	}
}

// LinkAll links every workspace to the cluster in order. A failed link is
// recorded and the batch continues; nothing is rolled back. Duplicate
// workspace IDs are linked once.
func (o *Orchestrator) LinkAll(ctx context.Context, clusterID string, workspaces []types.Workspace, opts Options) types.LinkSummary {
	summary := types.LinkSummary{
		ClusterID: clusterID,
		Outcomes:  []types.LinkOutcome{},
		DryRun:    opts.DryRun,
	}

	batch := dedupe(workspaces)
	if len(batch) == 0 {
		o.log.Warn(ctx, "no workspaces matched, nothing to link", slog.F("cluster_id", clusterID))
		return summary
	}

	for _, ws := range batch {
		if ctx.Err() != nil {
			break
		}
		outcome := o.linkOne(ctx, clusterID, ws, opts)
		summary = record(summary, outcome)
	}

	o.log.Info(ctx, fmt.Sprintf("linked %d/%d workspaces", summary.Succeeded, summary.Attempted),
		slog.F("cluster_id", clusterID),
		slog.F("succeeded", summary.Succeeded),
		slog.F("failed", summary.Failed),
		slog.F("attempted", summary.Attempted),
		slog.F("dry_run", opts.DryRun))

	return summary
}

func (o *Orchestrator) linkOne(ctx context.Context, clusterID string, ws types.Workspace, opts Options) types.LinkOutcome {
	outcome := types.LinkOutcome{
		ID:             types.GenerateID(),
		WorkspaceID:    ws.ID,
		WorkspaceName:  ws.Name,
		SubscriptionID: ws.SubscriptionID,
		AttemptedAt:    o.clock.Now(),
	}
	log := o.log.With(slog.F("workspace", ws.Name), slog.F("subscription_id", ws.SubscriptionID))

	if opts.DryRun {
		outcome.Success = true
		linkOutcomes.WithLabelValues("dry_run").Inc()
		log.Info(ctx, "would link workspace", slog.F("cluster_id", clusterID))
		return outcome
	}

	already, err := o.linker.LinkWorkspace(ctx, ws, clusterID)
	if err != nil {
		linkErr := lerrors.Wrap(lerrors.ErrCodeLink, fmt.Sprintf("link workspace %s", ws.Name), err)
		msg := linkErr.Error()
		outcome.Error = &msg
		linkOutcomes.WithLabelValues("failed").Inc()
		log.Warn(ctx, "workspace link failed", slog.Error(linkErr))
		return outcome
	}

	outcome.Success = true
	outcome.AlreadyLinked = already
	if already {
		linkOutcomes.WithLabelValues("already_linked").Inc()
		log.Info(ctx, "workspace already linked")
	} else {
		linkOutcomes.WithLabelValues("linked").Inc()
		log.Info(ctx, "workspace linked")
	}
	return outcome
}

// record folds one outcome into the summary
func record(s types.LinkSummary, outcome types.LinkOutcome) types.LinkSummary {
	s.Attempted++
	if outcome.Success {
		s.Succeeded++
	} else {
		s.Failed++
	}
	s.Outcomes = append(s.Outcomes, outcome)
	return s
}

// dedupe keeps the first occurrence of each workspace ID, ignoring case
func dedupe(workspaces []types.Workspace) []types.Workspace {
	seen := make(map[string]bool, len(workspaces))
	out := make([]types.Workspace, 0, len(workspaces))
	for _, ws := range workspaces {
		key := strings.ToLower(ws.ID)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ws)
	}
	return out
}
