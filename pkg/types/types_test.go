package types_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsanders-rh/lactl/pkg/types"
)

func TestRunID(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		before := time.Now().Add(-time.Second)
		id := types.GenerateRunID()
		assert.True(t, len(id) > len("run_"))

		created, err := types.ParseRunID(id)
		require.NoError(t, err)
		assert.WithinDuration(t, before, created, 5*time.Second)
	})

	t.Run("rejects malformed IDs", func(t *testing.T) {
		for _, id := range []string{"", "run_", "run_missing", types.GenerateID()} {
			_, err := types.ParseRunID(id)
			assert.Error(t, err, id)
		}
	})

	t.Run("child IDs are unique", func(t *testing.T) {
		assert.NotEqual(t, types.GenerateID(), types.GenerateID())
	})
}

func TestParseProvisioningState(t *testing.T) {
	tests := map[string]types.ProvisioningState{
		"Succeeded":           types.ProvisioningStateSucceeded,
		" succeeded ":         types.ProvisioningStateSucceeded,
		"Canceled":            types.ProvisioningStateFailed,
		"Failed":              types.ProvisioningStateFailed,
		"ProvisioningAccount": types.ProvisioningStateCreating,
		"Updating":            types.ProvisioningStateCreating,
		"Deleting":            types.ProvisioningStateUnknown,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			got := types.ParseProvisioningState(in)
			assert.Equal(t, want, got)
			assert.Equal(t, want == types.ProvisioningStateSucceeded || want == types.ProvisioningStateFailed, got.IsTerminal())
		})
	}
}

func TestClusterRef(t *testing.T) {
	ref := types.ClusterRef{SubscriptionID: "sub-1", ResourceGroup: "rg", Name: "la-cluster"}
	assert.Equal(t,
		"/subscriptions/sub-1/resourceGroups/rg/providers/Microsoft.OperationalInsights/clusters/la-cluster",
		ref.ResourceID())
	assert.Equal(t, "rg/la-cluster", ref.String())
}

func TestTagsScan(t *testing.T) {
	var tags types.Tags
	require.NoError(t, tags.Scan([]byte(`{"Env":"prod"}`)))
	assert.Equal(t, types.Tags{"Env": "prod"}, tags)

	require.NoError(t, tags.Scan(nil))
	assert.Nil(t, tags)

	assert.Error(t, tags.Scan(42))
}

func TestLinkSummaryErr(t *testing.T) {
	conflict := "conflict"
	summary := types.LinkSummary{Outcomes: []types.LinkOutcome{
		{WorkspaceName: "ws-1", Success: true},
		{WorkspaceName: "ws-2", Error: &conflict},
		{WorkspaceName: "ws-3"},
	}}

	err := summary.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ws-2: conflict")
	assert.Contains(t, err.Error(), "ws-3: unknown error")

	assert.NoError(t, types.LinkSummary{}.Err())
}
