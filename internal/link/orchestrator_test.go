package link_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"cdr.dev/slog/v3/sloggers/slogtest"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsanders-rh/lactl/internal/link"
	"github.com/tsanders-rh/lactl/pkg/types"
)

const clusterID = "/subscriptions/sub-1/resourceGroups/rg/providers/Microsoft.OperationalInsights/clusters/la"

type fakeLinker struct {
	failing map[string]bool
	linked  map[string]bool
	calls   []string
}

func (f *fakeLinker) LinkWorkspace(_ context.Context, ws types.Workspace, cluster string) (bool, error) {
	f.calls = append(f.calls, ws.ID)
	if f.failing[ws.ID] {
		return false, errors.New("conflict: workspace is being updated")
	}
	if f.linked[ws.ID] {
		return true, nil
	}
	f.linked[ws.ID] = true
	return false, nil
}

func newFakeLinker() *fakeLinker {
	return &fakeLinker{failing: map[string]bool{}, linked: map[string]bool{}}
}

func workspaces(n int) []types.Workspace {
	out := make([]types.Workspace, n)
	for i := range out {
		out[i] = types.Workspace{
			ID:             fmt.Sprintf("/subscriptions/sub-%d/workspaces/ws-%d", i%2, i+1),
			Name:           fmt.Sprintf("ws-%d", i+1),
			SubscriptionID: fmt.Sprintf("sub-%d", i%2),
		}
	}
	return out
}

func setup(t *testing.T, linker link.Linker) *link.Orchestrator {
	t.Helper()
	log := slogtest.Make(t, &slogtest.Options{IgnoreErrors: true})
	return link.NewOrchestrator(linker, quartz.NewMock(t), log)
}

func TestOrchestrator_LinkAll(t *testing.T) {
	ctx := context.Background()

	t.Run("failures at items 2 and 4 are isolated", func(t *testing.T) {
		ws := workspaces(5)
		linker := newFakeLinker()
		linker.failing[ws[1].ID] = true
		linker.failing[ws[3].ID] = true

		summary := setup(t, linker).LinkAll(ctx, clusterID, ws, link.Options{})

		assert.Equal(t, 5, summary.Attempted)
		assert.Equal(t, 3, summary.Succeeded)
		assert.Equal(t, 2, summary.Failed)
		require.Len(t, summary.Outcomes, 5)
		assert.Len(t, linker.calls, 5)

		for i, o := range summary.Outcomes {
			assert.Equal(t, ws[i].ID, o.WorkspaceID)
			assert.Equal(t, ws[i].SubscriptionID, o.SubscriptionID)
		}
		assert.False(t, summary.Outcomes[1].Success)
		require.NotNil(t, summary.Outcomes[1].Error)
		assert.Contains(t, *summary.Outcomes[1].Error, "[LINK]")
		assert.True(t, summary.Outcomes[4].Success)

		err := summary.Err()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ws-2")
		assert.Contains(t, err.Error(), "ws-4")
	})

	t.Run("relinking is idempotent success", func(t *testing.T) {
		ws := workspaces(2)
		linker := newFakeLinker()
		o := setup(t, linker)

		first := o.LinkAll(ctx, clusterID, ws, link.Options{})
		second := o.LinkAll(ctx, clusterID, ws, link.Options{})

		assert.Equal(t, 2, first.Succeeded)
		assert.Equal(t, 2, second.Succeeded)
		assert.Zero(t, second.Failed)
		assert.False(t, first.Outcomes[0].AlreadyLinked)
		assert.True(t, second.Outcomes[0].AlreadyLinked)
		assert.NoError(t, second.Err())
	})

	t.Run("duplicate workspaces are linked once", func(t *testing.T) {
		ws := workspaces(2)
		dup := ws[0]
		dup.ID = "/SUBSCRIPTIONS/SUB-0/WORKSPACES/WS-1"
		linker := newFakeLinker()

		summary := setup(t, linker).LinkAll(ctx, clusterID, append(ws, dup, ws[1]), link.Options{})

		assert.Equal(t, 2, summary.Attempted)
		assert.Equal(t, []string{ws[0].ID, ws[1].ID}, linker.calls)
	})

	t.Run("zero workspaces succeeds with empty summary", func(t *testing.T) {
		linker := newFakeLinker()

		summary := setup(t, linker).LinkAll(ctx, clusterID, nil, link.Options{})

		assert.Zero(t, summary.Attempted)
		assert.Zero(t, summary.Succeeded)
		assert.NotNil(t, summary.Outcomes)
		assert.Empty(t, linker.calls)
		assert.NoError(t, summary.Err())
	})

	t.Run("dry run does not call the linker", func(t *testing.T) {
		linker := newFakeLinker()

		summary := setup(t, linker).LinkAll(ctx, clusterID, workspaces(3), link.Options{DryRun: true})

		assert.True(t, summary.DryRun)
		assert.Equal(t, 3, summary.Attempted)
		assert.Equal(t, 3, summary.Succeeded)
		assert.Empty(t, linker.calls)
	})

	t.Run("cancelled context stops the batch", func(t *testing.T) {
		linker := newFakeLinker()
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		summary := setup(t, linker).LinkAll(cctx, clusterID, workspaces(3), link.Options{})

		assert.Zero(t, summary.Attempted)
		assert.Empty(t, linker.calls)
	})
}
