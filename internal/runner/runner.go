package runner

import (
	"context"
	"fmt"

	"cdr.dev/slog/v3"
	"github.com/coder/quartz"
	"github.com/tsanders-rh/lactl/internal/discovery"
	"github.com/tsanders-rh/lactl/internal/link"
	"github.com/tsanders-rh/lactl/internal/policy"
	"github.com/tsanders-rh/lactl/internal/provision"
	"github.com/tsanders-rh/lactl/internal/tier"
	"github.com/tsanders-rh/lactl/internal/usage"
	lerrors "github.com/tsanders-rh/lactl/pkg/errors"
	"github.com/tsanders-rh/lactl/pkg/types"
)

// Deps holds the collaborators of a runner
type Deps struct {
	Discoverer *discovery.Discoverer
	Classifier *usage.Classifier
	Clusters   provision.ClusterClient
	Linker     link.Linker
	Recorder   Recorder
	Clock      quartz.Clock
	Log        slog.Logger
}

// Runner executes analyze, provision and link runs and records them
type Runner struct {
	discoverer *discovery.Discoverer
	classifier *usage.Classifier
	clusters   provision.ClusterClient
	linker     link.Linker
	recorder   Recorder
	clock      quartz.Clock
	log        slog.Logger
}

// New creates a runner
func New(deps Deps) *Runner {
	if deps.Recorder == nil {
		deps.Recorder = NopRecorder{}
	}
	if deps.Clock == nil {
		deps.Clock = quartz.NewReal()
	}
	return &Runner{
		discoverer: deps.Discoverer,
		classifier: deps.Classifier,
		clusters:   deps.Clusters,
		linker:     deps.Linker,
		recorder:   deps.Recorder,
		clock:      deps.Clock,
		log:        deps.Log.Named("runner"),
	}
}

// AnalyzeRequest describes a usage analysis
type AnalyzeRequest struct {
	Profile      string
	Filter       discovery.Filter
	Days         int
	IncludeEmpty bool
	// Recommender overrides the default pricing
	Recommender *tier.Recommender
}

// ProvisionResult is the outcome of a provision run
type ProvisionResult struct {
	Run     *types.Run        `json:"run"`
	Cluster *types.Cluster    `json:"cluster,omitempty"`
	Links   types.LinkSummary `json:"links"`
}

// LinkResult is the outcome of a link run
type LinkResult struct {
	Run   *types.Run        `json:"run"`
	Links types.LinkSummary `json:"links"`
}

// Analyze discovers workspaces, classifies their ingestion and recommends a
// commitment tier
func (r *Runner) Analyze(ctx context.Context, req AnalyzeRequest) (*types.UsageReport, error) {
	run := r.newRun(types.RunTypeAnalyze, req.Profile, req.Filter)
	r.start(ctx, run)

	report, err := r.analyze(ctx, req)
	if err != nil {
		r.finish(ctx, run, err, nil)
		return nil, err
	}

	report.RunID = run.ID
	r.record(ctx, "usage", r.recorder.RecordUsage(ctx, run, report))
	r.finish(ctx, run, nil, types.RunMetadata{
		"workspaces_analyzed": report.WorkspacesAnalyzed,
		"query_failures":      report.QueryFailures,
	})

	return report, nil
}

func (r *Runner) analyze(ctx context.Context, req AnalyzeRequest) (*types.UsageReport, error) {
	workspaces, err := r.discoverer.All(ctx, req.Filter)
	if err != nil {
		return nil, fmt.Errorf("discover workspaces: %w", err)
	}

	recommender := req.Recommender
	if recommender == nil {
		recommender = tier.NewRecommender(nil, nil)
	}

	analyzer := usage.NewAnalyzer(r.classifier, recommender, r.clock, r.log)
	return analyzer.Analyze(ctx, workspaces, usage.Options{
		Days:         req.Days,
		IncludeEmpty: req.IncludeEmpty,
	})
}

// Provision ensures the validated cluster exists and links every matching
// workspace to it. A dry run creates nothing and links nothing.
func (r *Runner) Provision(ctx context.Context, v *policy.ValidationResult, dryRun bool) (*ProvisionResult, error) {
	if err := v.Err(); err != nil {
		return nil, err
	}

	run := r.newRun(types.RunTypeProvision, profileName(v), v.Filter)
	clusterID := v.Spec.ResourceID()
	run.ClusterID = &clusterID
	r.start(ctx, run)

	result := &ProvisionResult{Run: run}

	if dryRun {
		r.log.Info(ctx, "dry run: cluster would be created or adopted",
			slog.F("cluster", v.Spec.String()),
			slog.F("capacity_gb_per_day", v.Spec.CapacityGBPerDay))
	} else {
		provisioner := provision.NewProvisioner(v.Provision, r.clusters, r.clock, r.log)
		cluster, err := provisioner.EnsureCluster(ctx, v.Spec)
		if err != nil {
			r.finish(ctx, run, err, nil)
			return result, err
		}
		result.Cluster = cluster
		clusterID = cluster.ID
		run.ClusterID = &clusterID
		r.record(ctx, "cluster", r.recorder.RecordCluster(ctx, run, cluster))
	}

	links, err := r.link(ctx, run, clusterID, v.Filter, dryRun)
	result.Links = links
	if err != nil {
		r.finish(ctx, run, err, nil)
		return result, err
	}

	r.finish(ctx, run, nil, linkMetadata(links))
	return result, nil
}

// Link links every matching workspace to an existing cluster
func (r *Runner) Link(ctx context.Context, v *policy.ValidationResult, dryRun bool) (*LinkResult, error) {
	if err := v.Err(); err != nil {
		return nil, err
	}

	run := r.newRun(types.RunTypeLink, profileName(v), v.Filter)
	clusterID := v.ClusterID
	run.ClusterID = &clusterID
	r.start(ctx, run)

	result := &LinkResult{Run: run}

	links, err := r.link(ctx, run, clusterID, v.Filter, dryRun)
	result.Links = links
	if err != nil {
		r.finish(ctx, run, err, nil)
		return result, err
	}

	r.finish(ctx, run, nil, linkMetadata(links))
	return result, nil
}

func (r *Runner) link(ctx context.Context, run *types.Run, clusterID string, filter discovery.Filter, dryRun bool) (types.LinkSummary, error) {
	workspaces, err := r.discoverer.Discover(ctx, filter)
	if err != nil {
		return types.LinkSummary{ClusterID: clusterID, Outcomes: []types.LinkOutcome{}}, fmt.Errorf("discover workspaces: %w", err)
	}

	orchestrator := link.NewOrchestrator(r.linker, r.clock, r.log)
	summary := orchestrator.LinkAll(ctx, clusterID, workspaces, link.Options{DryRun: dryRun})
	for i := range summary.Outcomes {
		summary.Outcomes[i].RunID = run.ID
	}

	r.record(ctx, "links", r.recorder.RecordLinks(ctx, run, summary))

	if err := ctx.Err(); err != nil {
		return summary, lerrors.Wrap(lerrors.ErrCodeInternal, "linking interrupted", err)
	}
	if err := summary.Err(); err != nil {
		r.log.Warn(ctx, "some workspaces were not linked", slog.Error(err))
	}

	return summary, nil
}

func (r *Runner) newRun(runType types.RunType, profile string, filter discovery.Filter) *types.Run {
	run := &types.Run{
		ID:        types.GenerateRunID(),
		RunType:   runType,
		Status:    types.RunStatusRunning,
		Region:    filter.Region,
		StartedAt: r.clock.Now(),
	}
	if profile != "" {
		run.Profile = &profile
	}
	if filter.HasTag() {
		key, value := filter.TagKey, filter.TagValue
		run.TagKey = &key
		run.TagValue = &value
	}
	return run
}

func (r *Runner) start(ctx context.Context, run *types.Run) {
	runsStarted.WithLabelValues(string(run.RunType)).Inc()
	r.log.Info(ctx, "run started",
		slog.F("run_id", run.ID),
		slog.F("run_type", run.RunType),
		slog.F("region", run.Region))
	r.record(ctx, "run start", r.recorder.StartRun(ctx, run))
}

// finish sets the terminal status of the run from err
func (r *Runner) finish(ctx context.Context, run *types.Run, err error, metadata types.RunMetadata) {
	ended := r.clock.Now()
	run.EndedAt = &ended
	run.Metadata = metadata

	if err != nil {
		code := string(lerrors.CodeOf(err))
		msg := err.Error()
		run.Status = types.RunStatusFailed
		run.ErrorCode = &code
		run.ErrorMessage = &msg
		r.log.Error(ctx, "run failed",
			slog.F("run_id", run.ID),
			slog.F("error_code", code),
			slog.Error(err))
	} else {
		run.Status = types.RunStatusSucceeded
		r.log.Info(ctx, "run succeeded",
			slog.F("run_id", run.ID),
			slog.F("duration", ended.Sub(run.StartedAt)))
	}

	runsFinished.WithLabelValues(string(run.RunType), string(run.Status)).Inc()
	// Record the outcome even if the run's context was cancelled
	r.record(ctx, "run finish", r.recorder.FinishRun(context.WithoutCancel(ctx), run))
}

// record logs a failed history write without failing the run
func (r *Runner) record(ctx context.Context, what string, err error) {
	if err == nil {
		return
	}
	recordFailures.Inc()
	r.log.Warn(ctx, "failed to record run history", slog.F("record", what), slog.Error(err))
}

func linkMetadata(s types.LinkSummary) types.RunMetadata {
	return types.RunMetadata{
		"attempted": s.Attempted,
		"succeeded": s.Succeeded,
		"failed":    s.Failed,
		"dry_run":   s.DryRun,
	}
}

func profileName(v *policy.ValidationResult) string {
	if v.Profile == nil {
		return ""
	}
	return v.Profile.Name
}
