package discovery_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cdr.dev/slog/v3/sloggers/slogtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsanders-rh/lactl/internal/discovery"
	lerrors "github.com/tsanders-rh/lactl/pkg/errors"
	"github.com/tsanders-rh/lactl/pkg/types"
)

type fakeClient struct {
	subs       []types.Subscription
	subsErr    error
	workspaces map[string][]types.Workspace
	failing    map[string]bool
	listed     []string
}

func (f *fakeClient) ListSubscriptions(context.Context) ([]types.Subscription, error) {
	return f.subs, f.subsErr
}

func (f *fakeClient) ListWorkspaces(_ context.Context, sub string) ([]types.Workspace, error) {
	f.listed = append(f.listed, sub)
	if f.failing[sub] {
		return nil, errors.New("authorization failed")
	}
	return f.workspaces[sub], nil
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		subs: []types.Subscription{{ID: "sub-1"}, {ID: "sub-2"}, {ID: "sub-3"}},
		workspaces: map[string][]types.Workspace{
			"sub-1": {
				{ID: "ws-a", Name: "a", Region: "eastus", Tags: types.Tags{"env": "prod"}},
				{ID: "ws-b", Name: "b", Region: "westus", Tags: types.Tags{"env": "prod"}},
				{ID: "ws-c", Name: "c", Region: "East US", Tags: types.Tags{"env": "Prod"}},
			},
			"sub-2": {
				{ID: "ws-d", Name: "d", Region: "eastus", Tags: types.Tags{"env": "prod", "team": "x"}},
				{ID: "ws-e", Name: "e", Region: "eastus"},
			},
			"sub-3": {
				{ID: "ws-f", Name: "f", Region: "eastus", Tags: types.Tags{"env": "prod"}},
			},
		},
		failing: map[string]bool{},
	}
}

func names(workspaces []types.Workspace) []string {
	out := make([]string, len(workspaces))
	for i, ws := range workspaces {
		out[i] = ws.Name
	}
	return out
}

func TestDiscoverer_Discover(t *testing.T) {
	ctx := context.Background()
	log := slogtest.Make(t, &slogtest.Options{IgnoreErrors: true})

	t.Run("filters by region and exact tag in discovery order", func(t *testing.T) {
		d := discovery.NewDiscoverer(newFakeClient(), log, nil)

		got, err := d.Discover(ctx, discovery.Filter{Region: "eastus", TagKey: "env", TagValue: "prod"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "d", "f"}, names(got))
	})

	t.Run("region only", func(t *testing.T) {
		d := discovery.NewDiscoverer(newFakeClient(), log, nil)

		got, err := d.Discover(ctx, discovery.Filter{Region: "eastus"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "c", "d", "e", "f"}, names(got))
	})

	t.Run("skips failing subscription", func(t *testing.T) {
		client := newFakeClient()
		client.failing["sub-2"] = true
		d := discovery.NewDiscoverer(client, log, nil)

		got, err := d.Discover(ctx, discovery.Filter{Region: "eastus", TagKey: "env", TagValue: "prod"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "f"}, names(got))
		assert.Equal(t, []string{"sub-1", "sub-2", "sub-3"}, client.listed)
	})

	t.Run("empty result is not an error", func(t *testing.T) {
		d := discovery.NewDiscoverer(newFakeClient(), log, nil)

		got, err := d.Discover(ctx, discovery.Filter{Region: "northeurope"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("allow-list restricts subscriptions", func(t *testing.T) {
		client := newFakeClient()
		d := discovery.NewDiscoverer(client, log, []string{"sub-3"})

		got, err := d.Discover(ctx, discovery.Filter{Region: "eastus"})
		require.NoError(t, err)
		assert.Equal(t, []string{"f"}, names(got))
		assert.Equal(t, []string{"sub-3"}, client.listed)
	})

	t.Run("subscription enumeration failure is returned", func(t *testing.T) {
		client := newFakeClient()
		client.subsErr = errors.New("forbidden")
		d := discovery.NewDiscoverer(client, log, nil)

		_, err := d.Discover(ctx, discovery.Filter{Region: "eastus"})
		assert.Error(t, err)
	})

	t.Run("region is required", func(t *testing.T) {
		d := discovery.NewDiscoverer(newFakeClient(), log, nil)

		_, err := d.Discover(ctx, discovery.Filter{})
		require.Error(t, err)
		assert.Equal(t, lerrors.ErrCodeInvalidRequest, lerrors.CodeOf(err))
	})

	t.Run("tag key without value is rejected", func(t *testing.T) {
		d := discovery.NewDiscoverer(newFakeClient(), log, nil)

		_, err := d.Discover(ctx, discovery.Filter{Region: "eastus", TagKey: "env"})
		require.Error(t, err)
		assert.Equal(t, lerrors.ErrCodeInvalidRequest, lerrors.CodeOf(err))
	})
}

func TestDiscoverer_All(t *testing.T) {
	log := slogtest.Make(t, nil)
	d := discovery.NewDiscoverer(newFakeClient(), log, nil)

	got, err := d.All(context.Background(), discovery.Filter{TagKey: "env", TagValue: "prod"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "d", "f"}, names(got))
}

func TestFilter_Matches(t *testing.T) {
	ws := types.Workspace{Region: "West Europe", Tags: types.Tags{"env": "prod"}}

	assert.True(t, discovery.Filter{Region: "westeurope"}.Matches(ws))
	assert.True(t, discovery.Filter{Region: "WestEurope", TagKey: "env", TagValue: "prod"}.Matches(ws))
	assert.False(t, discovery.Filter{Region: "westeurope", TagKey: "env", TagValue: "PROD"}.Matches(ws))
	assert.False(t, discovery.Filter{Region: "westeurope", TagKey: "Env", TagValue: "prod"}.Matches(ws))
	assert.False(t, discovery.Filter{Region: "northeurope"}.Matches(ws))
}

func TestParseSubscriptionAllowList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "plain array",
			input: `["sub-1", "sub-2"]`,
			want:  []string{"sub-1", "sub-2"},
		},
		{
			name: "object with comments and trailing comma",
			input: `{
				// production subscriptions
				"subscriptions": ["sub-1", "SUB-1", "sub-2",],
			}`,
			want: []string{"sub-1", "sub-2"},
		},
		{
			name:  "object entries",
			input: `{"subscriptions": [{"id": "sub-1"}, {"subscriptionId": "sub-2"}]}`,
			want:  []string{"sub-1", "sub-2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := discovery.ParseSubscriptionAllowList([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("rejects empty id", func(t *testing.T) {
		_, err := discovery.ParseSubscriptionAllowList([]byte(`["sub-1", ""]`))
		assert.Error(t, err)
	})

	t.Run("rejects scalar document", func(t *testing.T) {
		_, err := discovery.ParseSubscriptionAllowList([]byte(`42`))
		assert.Error(t, err)
	})
}

func TestLoadSubscriptionAllowList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subscriptions.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`["sub-9"] // one`), 0o600))

	got, err := discovery.LoadSubscriptionAllowList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"sub-9"}, got)

	_, err = discovery.LoadSubscriptionAllowList(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
