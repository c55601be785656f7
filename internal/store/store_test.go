package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsanders-rh/lactl/internal/store"
	"github.com/tsanders-rh/lactl/pkg/types"
)

// setupTestDB connects to the database named by LACTL_TEST_DATABASE_URL and
// applies the schema. Integration tests are skipped without it.
func setupTestDB(t *testing.T) *store.Store {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	url := os.Getenv("LACTL_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("LACTL_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	s, err := store.NewStore(ctx, url)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	require.NoError(t, s.Migrate(ctx))
	// Migrate is idempotent
	require.NoError(t, s.Migrate(ctx))

	return s
}

func newRun(runType types.RunType) *types.Run {
	return &types.Run{
		ID:        types.GenerateRunID(),
		RunType:   runType,
		Status:    types.RunStatusRunning,
		Region:    "eastus",
		StartedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestRunStore(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	t.Run("creates and completes a run", func(t *testing.T) {
		run := newRun(types.RunTypeAnalyze)
		require.NoError(t, s.Runs.Create(ctx, run))

		ended := run.StartedAt.Add(time.Minute)
		require.NoError(t, s.Runs.MarkSucceeded(ctx, run.ID, ended, types.RunMetadata{"workspaces": float64(3)}))

		got, err := s.Runs.GetByID(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, types.RunStatusSucceeded, got.Status)
		require.NotNil(t, got.EndedAt)
		assert.True(t, ended.Equal(*got.EndedAt))
		assert.Equal(t, float64(3), got.Metadata["workspaces"])
	})

	t.Run("terminal runs cannot be completed twice", func(t *testing.T) {
		run := newRun(types.RunTypeProvision)
		require.NoError(t, s.Runs.Create(ctx, run))
		require.NoError(t, s.Runs.MarkFailed(ctx, run.ID, time.Now(), "PROVISIONING_TIMEOUT", "timed out"))

		err := s.Runs.MarkSucceeded(ctx, run.ID, time.Now(), nil)
		assert.ErrorIs(t, err, store.ErrRunFinished)

		got, err := s.Runs.GetByID(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, types.RunStatusFailed, got.Status)
		require.NotNil(t, got.ErrorCode)
		assert.Equal(t, "PROVISIONING_TIMEOUT", *got.ErrorCode)
	})

	t.Run("returns ErrNotFound for unknown run", func(t *testing.T) {
		_, err := s.Runs.GetByID(ctx, "run_missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("lists runs by type", func(t *testing.T) {
		run := newRun(types.RunTypeLink)
		require.NoError(t, s.Runs.Create(ctx, run))

		runType := types.RunTypeLink
		runs, total, err := s.Runs.List(ctx, store.RunFilter{RunType: &runType, Limit: 100})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, total, 1)
		for _, r := range runs {
			assert.Equal(t, types.RunTypeLink, r.RunType)
		}
	})
}

func TestLinkOutcomeStore(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	run := newRun(types.RunTypeLink)
	require.NoError(t, s.Runs.Create(ctx, run))

	msg := "[LINK] link workspace ws-2: conflict"
	now := time.Now().UTC()
	outcomes := []types.LinkOutcome{
		{WorkspaceID: "/ws-1", WorkspaceName: "ws-1", SubscriptionID: "sub", Success: true, AttemptedAt: now},
		{WorkspaceID: "/ws-2", WorkspaceName: "ws-2", SubscriptionID: "sub", Error: &msg, AttemptedAt: now},
		{WorkspaceID: "/ws-3", WorkspaceName: "ws-3", SubscriptionID: "sub", Success: true, AlreadyLinked: true, AttemptedAt: now},
	}

	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		return s.LinkOutcomes.RecordBatch(ctx, tx, run.ID, outcomes)
	})
	require.NoError(t, err)

	got, err := s.LinkOutcomes.ListByRun(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "ws-1", got[0].WorkspaceName)
	assert.False(t, got[1].Success)
	require.NotNil(t, got[1].Error)
	assert.Equal(t, msg, *got[1].Error)
	assert.True(t, got[2].AlreadyLinked)
}

func TestUsageStore(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	run := newRun(types.RunTypeAnalyze)
	require.NoError(t, s.Runs.Create(ctx, run))

	tier := types.CommitmentTier{CapacityGBPerDay: 100, DailyCostUSD: 196, MonthlyCostUSD: 5880}
	report := &types.UsageReport{
		WindowStart:        time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		WindowEnd:          time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		Days:               30,
		WorkspacesAnalyzed: 2,
		Workspaces: []types.WorkspaceUsage{
			{WorkspaceID: "/w1", WorkspaceName: "w1", SubscriptionID: "sub", Region: "eastus",
				Totals: types.ClassifiedTotals{AnalyticsGB: 3600, TotalGB: 3600}},
			{WorkspaceID: "/w2", WorkspaceName: "w2", SubscriptionID: "sub", Region: "eastus",
				QueryFailed: true},
		},
		Totals:               types.ClassifiedTotals{AnalyticsGB: 3600, TotalGB: 3600},
		AvgAnalyticsGBPerDay: 120,
		Recommendation: types.Recommendation{
			Policy:               "round-down",
			AvgAnalyticsGBPerDay: 120,
			Tier:                 &tier,
		},
	}

	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		return s.Usage.SaveReport(ctx, tx, run.ID, report)
	})
	require.NoError(t, err)

	got, err := s.Usage.GetReport(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.RunID)
	assert.Equal(t, 120.0, got.AvgAnalyticsGBPerDay)
	require.NotNil(t, got.Recommendation.Tier)
	assert.Equal(t, 100, got.Recommendation.Tier.CapacityGBPerDay)
	require.Len(t, got.Workspaces, 2)
	assert.Equal(t, "w1", got.Workspaces[0].WorkspaceName)
	assert.Equal(t, 3600.0, got.Workspaces[0].Totals.TotalGB)
	assert.Equal(t, 3600.0, got.Totals.TotalGB)
	assert.True(t, got.Workspaces[1].QueryFailed)

	_, err = s.Usage.GetReport(ctx, "run_missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestClusterStore_Upsert(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	ref := types.ClusterRef{SubscriptionID: "sub", ResourceGroup: "rg", Name: "la-" + types.GenerateID()[:8]}
	cluster := &types.Cluster{
		ID:                ref.ResourceID(),
		Name:              ref.Name,
		SubscriptionID:    ref.SubscriptionID,
		ResourceGroup:     ref.ResourceGroup,
		Region:            "eastus",
		CapacityGBPerDay:  100,
		ProvisioningState: types.ProvisioningStateCreating,
		Tags:              types.Tags{"ManagedBy": "lactl"},
		ObservedAt:        time.Now().UTC(),
	}
	require.NoError(t, s.Clusters.Upsert(ctx, cluster))

	cluster.ProvisioningState = types.ProvisioningStateSucceeded
	require.NoError(t, s.Clusters.Upsert(ctx, cluster))

	got, err := s.Clusters.GetByID(ctx, ref.ResourceID())
	require.NoError(t, err)
	assert.Equal(t, types.ProvisioningStateSucceeded, got.ProvisioningState)
	assert.Equal(t, "lactl", got.Tags["ManagedBy"])
}

func TestAuditStore(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	run := newRun(types.RunTypeProvision)
	require.NoError(t, s.Runs.Create(ctx, run))

	event := &types.AuditEvent{
		ID:          types.GenerateID(),
		Actor:       "alice@example.com",
		Action:      types.AuditActionClusterCreate,
		TargetRunID: &run.ID,
		Status:      types.AuditEventStatusSuccess,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, s.Audit.Log(ctx, event))

	events, err := s.Audit.ListByRun(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, types.AuditActionClusterCreate, events[0].Action)
}
