package usage

import (
	"context"
	"fmt"

	"cdr.dev/slog/v3"
	"github.com/coder/quartz"
	"github.com/tsanders-rh/lactl/internal/decimal"
	"github.com/tsanders-rh/lactl/internal/tier"
	"github.com/tsanders-rh/lactl/pkg/types"
)

// DefaultDays is the lookback window of an analysis
const DefaultDays = 30

// Options controls an analysis
type Options struct {
	Days         int
	IncludeEmpty bool
}

// Analyzer classifies a set of workspaces and recommends a tier
type Analyzer struct {
	classifier  *Classifier
	recommender *tier.Recommender
	clock       quartz.Clock
	log         slog.Logger
}

// NewAnalyzer creates an analyzer
func NewAnalyzer(classifier *Classifier, recommender *tier.Recommender, clock quartz.Clock, log slog.Logger) *Analyzer {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Analyzer{
		classifier:  classifier,
		recommender: recommender,
		clock:       clock,
		log:         log.Named("usage"),
	}
}

// accumulator carries the unrounded fleet volume through the workspace loop
type accumulator struct {
	volume   Volume
	analyzed int
	failures int
	usage    []types.WorkspaceUsage
}

func (a accumulator) add(u types.WorkspaceUsage, v Volume, includeEmpty bool) accumulator {
	a.analyzed++
	if u.QueryFailed {
		a.failures++
	}
	a.volume = a.volume.Add(v)
	if includeEmpty || !u.Totals.IsZero() {
		a.usage = append(a.usage, u)
	}
	return a
}

// Analyze classifies each workspace in order over a window ending now and
// recommends a tier for the average daily Analytics volume.
func (a *Analyzer) Analyze(ctx context.Context, workspaces []types.Workspace, opts Options) (*types.UsageReport, error) {
	if opts.Days <= 0 {
		opts.Days = DefaultDays
	}
	window := NewWindow(a.clock.Now(), opts.Days)

	a.log.Info(ctx, "analyzing workspaces",
		slog.F("workspaces", len(workspaces)),
		slog.F("window_start", window.Start),
		slog.F("window_end", window.End))

	var acc accumulator
	for _, ws := range workspaces {
		u, v, err := a.classifier.classify(ctx, ws, window)
		if err != nil {
			return nil, fmt.Errorf("classify workspace %s: %w", ws.Name, err)
		}
		acc = acc.add(u, v, opts.IncludeEmpty)
	}

	totals := acc.volume.Totals()
	avg := decimal.FromFloat(totals.AnalyticsGB).Div(decimal.FromInt(int64(opts.Days))).Round(2).Float64()

	report := &types.UsageReport{
		WindowStart:          window.Start,
		WindowEnd:            window.End,
		Days:                 opts.Days,
		WorkspacesAnalyzed:   acc.analyzed,
		QueryFailures:        acc.failures,
		Workspaces:           acc.usage,
		Totals:               totals,
		AvgAnalyticsGBPerDay: avg,
		Recommendation:       a.recommender.Recommend(avg),
	}
	if report.Workspaces == nil {
		report.Workspaces = []types.WorkspaceUsage{}
	}

	a.log.Info(ctx, "analysis complete",
		slog.F("analyzed", acc.analyzed),
		slog.F("query_failures", acc.failures),
		slog.F("analytics_gb", totals.AnalyticsGB),
		slog.F("total_gb", totals.TotalGB),
		slog.F("avg_analytics_gb_per_day", avg),
		slog.F("recommendation", report.Recommendation.Reason))

	return report, nil
}
