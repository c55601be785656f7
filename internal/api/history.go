package api

import (
	"context"

	"github.com/tsanders-rh/lactl/internal/store"
	"github.com/tsanders-rh/lactl/pkg/types"
)

// History is the read side of run history served by the API
type History interface {
	Ping(ctx context.Context) error
	ListRuns(ctx context.Context, filter store.RunFilter) ([]*types.Run, int, error)
	GetRun(ctx context.Context, id string) (*types.Run, error)
	ListLinks(ctx context.Context, runID string) ([]types.LinkOutcome, error)
	GetUsage(ctx context.Context, runID string) (*types.UsageReport, error)
	ListAudit(ctx context.Context, runID string) ([]*types.AuditEvent, error)
	ListClusters(ctx context.Context) ([]*types.Cluster, error)
	GetCluster(ctx context.Context, id string) (*types.Cluster, error)
}

// StoreHistory serves History from the PostgreSQL store
type StoreHistory struct {
	store *store.Store
}

// NewStoreHistory creates a History backed by st
func NewStoreHistory(st *store.Store) *StoreHistory {
	return &StoreHistory{store: st}
}

func (h *StoreHistory) Ping(ctx context.Context) error {
	return h.store.Ping(ctx)
}

func (h *StoreHistory) ListRuns(ctx context.Context, filter store.RunFilter) ([]*types.Run, int, error) {
	return h.store.Runs.List(ctx, filter)
}

func (h *StoreHistory) GetRun(ctx context.Context, id string) (*types.Run, error) {
	return h.store.Runs.GetByID(ctx, id)
}

func (h *StoreHistory) ListLinks(ctx context.Context, runID string) ([]types.LinkOutcome, error) {
	return h.store.LinkOutcomes.ListByRun(ctx, runID)
}

func (h *StoreHistory) GetUsage(ctx context.Context, runID string) (*types.UsageReport, error) {
	return h.store.Usage.GetReport(ctx, runID)
}

func (h *StoreHistory) ListAudit(ctx context.Context, runID string) ([]*types.AuditEvent, error) {
	return h.store.Audit.ListByRun(ctx, runID)
}

func (h *StoreHistory) ListClusters(ctx context.Context) ([]*types.Cluster, error) {
	return h.store.Clusters.List(ctx)
}

func (h *StoreHistory) GetCluster(ctx context.Context, id string) (*types.Cluster, error) {
	return h.store.Clusters.GetByID(ctx, id)
}
