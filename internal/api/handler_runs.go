package api

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/tsanders-rh/lactl/internal/store"
	"github.com/tsanders-rh/lactl/pkg/types"
)

// RunHandler serves recorded run history
type RunHandler struct {
	history History
}

// NewRunHandler creates a new run handler
func NewRunHandler(history History) *RunHandler {
	return &RunHandler{history: history}
}

func parseRunType(s string) (types.RunType, bool) {
	switch t := types.RunType(strings.ToUpper(s)); t {
	case types.RunTypeAnalyze, types.RunTypeProvision, types.RunTypeLink:
		return t, true
	default:
		return "", false
	}
}

func parseRunStatus(s string) (types.RunStatus, bool) {
	switch st := types.RunStatus(strings.ToUpper(s)); st {
	case types.RunStatusRunning, types.RunStatusSucceeded, types.RunStatusFailed:
		return st, true
	default:
		return "", false
	}
}

// List handles GET /api/v1/runs
func (h *RunHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	page := parsePageRequest(c)
	filter := store.RunFilter{
		Limit:  page.perPage,
		Offset: page.offset(),
	}
	filters := make(map[string]string)

	if v := c.QueryParam("type"); v != "" {
		runType, ok := parseRunType(v)
		if !ok {
			return ErrorBadRequest(c, "Invalid type. Must be one of ANALYZE, PROVISION, LINK")
		}
		filter.RunType = &runType
		filters["type"] = string(runType)
	}
	if v := c.QueryParam("status"); v != "" {
		status, ok := parseRunStatus(v)
		if !ok {
			return ErrorBadRequest(c, "Invalid status. Must be one of RUNNING, SUCCEEDED, FAILED")
		}
		filter.Status = &status
		filters["status"] = string(status)
	}

	runs, total, err := h.history.ListRuns(ctx, filter)
	if err != nil {
		return ErrorInternal(c, "Failed to list runs: "+err.Error())
	}

	return respondPage(c, page, runs, total, filters)
}

// requireRunID rejects a malformed :id before any lookup
func requireRunID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := types.ParseRunID(c.Param("id")); err != nil {
			return ErrorBadRequest(c, "Invalid run ID: "+err.Error())
		}
		return next(c)
	}
}

// Get handles GET /api/v1/runs/:id
func (h *RunHandler) Get(c echo.Context) error {
	run, err := h.history.GetRun(c.Request().Context(), c.Param("id"))
	if err != nil {
		return ErrorFromStore(c, "Run", err)
	}
	return SuccessOK(c, run)
}

// Links handles GET /api/v1/runs/:id/links
func (h *RunHandler) Links(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	run, err := h.history.GetRun(ctx, id)
	if err != nil {
		return ErrorFromStore(c, "Run", err)
	}

	outcomes, err := h.history.ListLinks(ctx, id)
	if err != nil {
		return ErrorInternal(c, "Failed to list link outcomes: "+err.Error())
	}

	summary := types.LinkSummary{Outcomes: []types.LinkOutcome{}}
	if run.ClusterID != nil {
		summary.ClusterID = *run.ClusterID
	}
	for _, o := range outcomes {
		summary.Attempted++
		if o.Success {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
		summary.Outcomes = append(summary.Outcomes, o)
	}

	return SuccessOK(c, summary)
}

// Usage handles GET /api/v1/runs/:id/usage
func (h *RunHandler) Usage(c echo.Context) error {
	report, err := h.history.GetUsage(c.Request().Context(), c.Param("id"))
	if err != nil {
		return ErrorFromStore(c, "Usage report", err)
	}
	return SuccessOK(c, report)
}

// Audit handles GET /api/v1/runs/:id/audit
func (h *RunHandler) Audit(c echo.Context) error {
	events, err := h.history.ListAudit(c.Request().Context(), c.Param("id"))
	if err != nil {
		return ErrorInternal(c, "Failed to list audit events: "+err.Error())
	}
	if events == nil {
		events = []*types.AuditEvent{}
	}
	return SuccessOK(c, events)
}
