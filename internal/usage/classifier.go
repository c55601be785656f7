package usage

import (
	"context"

	"cdr.dev/slog/v3"
	lerrors "github.com/tsanders-rh/lactl/pkg/errors"
	"github.com/tsanders-rh/lactl/pkg/types"
)

// Classifier classifies the ingestion of one workspace
type Classifier struct {
	query  QueryClient
	tables TableLister
	log    slog.Logger
}

// NewClassifier creates a workspace classifier
func NewClassifier(query QueryClient, tables TableLister, log slog.Logger) *Classifier {
	return &Classifier{
		query:  query,
		tables: tables,
		log:    log.Named("usage"),
	}
}

// Classify returns the classified ingestion of ws over the window. A query
// failure is logged and reported as zero ingestion with QueryFailed set;
// only context cancellation is returned as an error.
func (c *Classifier) Classify(ctx context.Context, ws types.Workspace, window Window) (types.WorkspaceUsage, error) {
	result, _, err := c.classify(ctx, ws, window)
	return result, err
}

// classify also returns the unrounded volume so callers can aggregate
// several workspaces exactly
func (c *Classifier) classify(ctx context.Context, ws types.Workspace, window Window) (types.WorkspaceUsage, Volume, error) {
	result := types.WorkspaceUsage{
		WorkspaceID:    ws.ID,
		WorkspaceName:  ws.Name,
		SubscriptionID: ws.SubscriptionID,
		Region:         ws.Region,
	}
	log := c.log.With(slog.F("workspace", ws.Name), slog.F("subscription_id", ws.SubscriptionID))

	raw, err := c.query.Query(ctx, ws.CustomerID, QueryBillableByDataType, window.Start, window.End)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, Volume{}, ctxErr
		}
		queryFailures.Inc()
		result.QueryFailed = true
		log.Warn(ctx, "usage query failed, counting workspace as zero ingestion",
			slog.Error(lerrors.Wrap(lerrors.ErrCodeQuery, "query billable usage", err)))
		return result, Volume{}, nil
	}

	if len(raw) == 0 {
		return c.classifyFallback(ctx, log, ws, window, result)
	}

	rows, issues := DecodeUsageRows(raw)
	for _, issue := range issues {
		log.Debug(ctx, "usage row field fallback", slog.F("issue", issue.String()))
	}

	tables, err := c.tables.ListTables(ctx, ws)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, Volume{}, ctxErr
		}
		log.Warn(ctx, "could not list tables, classifying all ingestion as Analytics", slog.Error(err))
	}

	volume := VolumeFromRows(rows, types.NewPlanLookup(tables))
	result.Totals = volume.Totals()
	c.observe(result.Totals)

	log.Debug(ctx, "classified workspace",
		slog.F("data_types", len(rows)),
		slog.F("analytics_gb", result.Totals.AnalyticsGB),
		slog.F("basic_gb", result.Totals.BasicGB),
		slog.F("auxiliary_gb", result.Totals.AuxiliaryGB),
		slog.F("total_gb", result.Totals.TotalGB))

	return result, volume, nil
}

func (c *Classifier) classifyFallback(ctx context.Context, log slog.Logger, ws types.Workspace, window Window, result types.WorkspaceUsage) (types.WorkspaceUsage, Volume, error) {
	raw, err := c.query.Query(ctx, ws.CustomerID, QueryBilledBytesFallback, window.Start, window.End)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, Volume{}, ctxErr
		}
		queryFailures.Inc()
		result.QueryFailed = true
		log.Warn(ctx, "fallback usage query failed, counting workspace as zero ingestion",
			slog.Error(lerrors.Wrap(lerrors.ErrCodeQuery, "query billed bytes", err)))
		return result, Volume{}, nil
	}

	total, ok := DecodeTotalBytes(raw)
	if !ok {
		log.Debug(ctx, "no billable ingestion in window")
		return result, Volume{}, nil
	}

	fallbackQueries.Inc()
	result.UsedFallback = true
	volume := VolumeFromBytes(total)
	result.Totals = volume.Totals()
	c.observe(result.Totals)

	log.Debug(ctx, "classified workspace from billed bytes",
		slog.F("total_bytes", total),
		slog.F("analytics_gb", result.Totals.AnalyticsGB))

	return result, volume, nil
}

func (c *Classifier) observe(t types.ClassifiedTotals) {
	workspacesClassified.Inc()
	classifiedGB.WithLabelValues(string(types.TablePlanAnalytics)).Add(t.AnalyticsGB)
	classifiedGB.WithLabelValues(string(types.TablePlanBasic)).Add(t.BasicGB)
	classifiedGB.WithLabelValues(string(types.TablePlanAuxiliary)).Add(t.AuxiliaryGB)
}
