package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cdr.dev/slog/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsanders-rh/lactl/internal/azure"
	"github.com/tsanders-rh/lactl/internal/usage"
	lerrors "github.com/tsanders-rh/lactl/pkg/errors"
	"github.com/tsanders-rh/lactl/pkg/types"
)

const profilesDir = "../profile/definitions"

// fakeCloud serves one subscription with tagged workspaces
type fakeCloud struct {
	workspaces []types.Workspace
	usage      map[string]float64
	cluster    *types.Cluster
	creates    int
	linked     []string
}

func (f *fakeCloud) ListSubscriptions(context.Context) ([]types.Subscription, error) {
	return []types.Subscription{{ID: "sub-1"}}, nil
}

func (f *fakeCloud) ListWorkspaces(context.Context, string) ([]types.Workspace, error) {
	return f.workspaces, nil
}

func (f *fakeCloud) Query(_ context.Context, customerID, query string, _, _ time.Time) ([]map[string]any, error) {
	if query == usage.QueryBilledBytesFallback {
		return nil, nil
	}
	mb, ok := f.usage[customerID]
	if !ok {
		return nil, nil
	}
	return []map[string]any{{"DataType": "AppTraces", "IngestionVolumeMB": mb}}, nil
}

func (f *fakeCloud) ListTables(context.Context, types.Workspace) ([]types.Table, error) {
	return nil, nil
}

func (f *fakeCloud) GetCluster(_ context.Context, ref types.ClusterRef) (*types.Cluster, error) {
	if f.cluster == nil {
		return nil, fmt.Errorf("get cluster %s: %w", ref, azure.ErrNotFound)
	}
	c := *f.cluster
	return &c, nil
}

func (f *fakeCloud) CreateCluster(_ context.Context, spec types.ClusterSpec) (*types.Cluster, error) {
	f.creates++
	f.cluster = &types.Cluster{
		ID:                spec.ResourceID(),
		Name:              spec.Name,
		Region:            spec.Region,
		CapacityGBPerDay:  spec.CapacityGBPerDay,
		ProvisioningState: types.ProvisioningStateSucceeded,
	}
	c := *f.cluster
	return &c, nil
}

func (f *fakeCloud) LinkWorkspace(_ context.Context, ws types.Workspace, _ string) (bool, error) {
	f.linked = append(f.linked, ws.Name)
	return false, nil
}

func newFakeCloud() *fakeCloud {
	workspace := func(name, region, env string) types.Workspace {
		return types.Workspace{
			ID:             "/subscriptions/sub-1/resourceGroups/rg/providers/Microsoft.OperationalInsights/workspaces/" + name,
			Name:           name,
			SubscriptionID: "sub-1",
			Region:         region,
			CustomerID:     "cust-" + name,
			Tags:           types.Tags{"environment": env},
		}
	}
	return &fakeCloud{
		workspaces: []types.Workspace{
			workspace("w1", "eastus", "production"),
			workspace("w2", "eastus", "staging"),
			workspace("w3", "westeurope", "production"),
		},
		usage: map[string]float64{
			"cust-w1": 3_600_000,
			"cust-w2": 120_000,
		},
	}
}

func connectTo(cloud Cloud) Connector {
	return func(context.Context, string, slog.Logger) (Cloud, string, error) {
		return cloud, "tester@example.com", nil
	}
}

// run executes the CLI and returns its standard output
func run(t *testing.T, connect Connector, args ...string) (string, error) {
	t.Helper()

	var stdout bytes.Buffer
	cmd := NewCommand(connect)
	cmd.Writer = &stdout
	cmd.ErrWriter = io.Discard

	argv := append([]string{name, "--profiles-dir", profilesDir}, args...)
	err := cmd.Run(context.Background(), argv)
	return stdout.String(), err
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "trace", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecommendCommand(t *testing.T) {
	t.Run("tier", func(t *testing.T) {
		out, err := run(t, nil, "--format", "json", "recommend", "--avg-gb-per-day", "120")
		require.NoError(t, err)

		var rec types.Recommendation
		require.NoError(t, json.Unmarshal([]byte(out), &rec))
		require.NotNil(t, rec.Tier)
		assert.Equal(t, 100, rec.Tier.CapacityGBPerDay)
		assert.Equal(t, 2400.0, rec.MonthlySavingsUSD)
	})

	t.Run("below floor", func(t *testing.T) {
		out, err := run(t, nil, "--format", "json", "recommend", "--avg-gb-per-day", "4")
		require.NoError(t, err)

		var rec types.Recommendation
		require.NoError(t, json.Unmarshal([]byte(out), &rec))
		assert.Nil(t, rec.Tier)
		assert.Contains(t, rec.Reason, "pay-as-you-go")
	})

	t.Run("profile pricing", func(t *testing.T) {
		out, err := run(t, nil, "--format", "json", "recommend", "--avg-gb-per-day", "10", "--profile", "dev-westeurope")
		require.NoError(t, err)

		var rec types.Recommendation
		require.NoError(t, json.Unmarshal([]byte(out), &rec))
		assert.Equal(t, 897.0, rec.PayAsYouGoMonthlyUSD)
	})

	t.Run("negative volume", func(t *testing.T) {
		_, err := run(t, nil, "recommend", "--avg-gb-per-day", "-1")
		assert.Error(t, err)
	})
}

func TestTiersCommand(t *testing.T) {
	out, err := run(t, nil, "tiers")
	require.NoError(t, err)
	assert.Contains(t, out, "CAPACITY GB/DAY")
	assert.Contains(t, out, "50000")
	assert.Contains(t, out, "$5880.00")
}

func TestProfilesCommand(t *testing.T) {
	out, err := run(t, nil, "profiles")
	require.NoError(t, err)
	assert.Contains(t, out, "prod-eastus")
	assert.Contains(t, out, "environment=production")
	assert.NotContains(t, out, "legacy-centralus")
}

func TestAnalyzeCommand(t *testing.T) {
	t.Run("all regions", func(t *testing.T) {
		out, err := run(t, connectTo(newFakeCloud()), "--format", "json", "analyze")
		require.NoError(t, err)

		var report types.UsageReport
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.Equal(t, 3, report.WorkspacesAnalyzed)
		assert.Len(t, report.Workspaces, 2)
		assert.Equal(t, 124.0, report.AvgAnalyticsGBPerDay)
		require.NotNil(t, report.Recommendation.Tier)
		assert.Equal(t, 100, report.Recommendation.Tier.CapacityGBPerDay)
		assert.NotEmpty(t, report.RunID)
	})

	t.Run("tag filter", func(t *testing.T) {
		out, err := run(t, connectTo(newFakeCloud()), "--format", "json", "analyze",
			"--region", "East US", "--tag-key", "environment", "--tag-value", "staging")
		require.NoError(t, err)

		var report types.UsageReport
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		require.Len(t, report.Workspaces, 1)
		assert.Equal(t, "w2", report.Workspaces[0].WorkspaceName)
		assert.Nil(t, report.Recommendation.Tier)
	})

	t.Run("tag key without value", func(t *testing.T) {
		_, err := run(t, connectTo(newFakeCloud()), "analyze", "--tag-key", "environment")
		require.Error(t, err)
		assert.Equal(t, lerrors.ErrCodeInvalidRequest, lerrors.CodeOf(err))
	})

	t.Run("non-positive days", func(t *testing.T) {
		for _, days := range []string{"0", "-3"} {
			_, err := run(t, connectTo(newFakeCloud()), "analyze", "--days="+days)
			require.Error(t, err)
			assert.Equal(t, lerrors.ErrCodeInvalidRequest, lerrors.CodeOf(err), "--days %s", days)
			assert.Contains(t, err.Error(), "--days must be positive")
		}
	})

	t.Run("authentication failure", func(t *testing.T) {
		connect := func(context.Context, string, slog.Logger) (Cloud, string, error) {
			return nil, "", lerrors.Wrap(lerrors.ErrCodeAuthentication, "acquire access token", errors.New("no credential"))
		}
		_, err := run(t, connect, "analyze")
		require.Error(t, err)
		assert.Equal(t, lerrors.ErrCodeAuthentication, lerrors.CodeOf(err))
	})
}

func TestProvisionCommand(t *testing.T) {
	t.Run("creates and links", func(t *testing.T) {
		cloud := newFakeCloud()
		out, err := run(t, connectTo(cloud), "--format", "json", "provision", "--profile", "prod-eastus")
		require.NoError(t, err)

		assert.Equal(t, 1, cloud.creates)
		assert.Equal(t, []string{"w1"}, cloud.linked)

		var res struct {
			Cluster *types.Cluster    `json:"cluster"`
			Links   types.LinkSummary `json:"links"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		require.NotNil(t, res.Cluster)
		assert.Equal(t, "la-cluster-prod-eastus", res.Cluster.Name)
		assert.Equal(t, 1, res.Links.Succeeded)
	})

	t.Run("dry run writes template only", func(t *testing.T) {
		cloud := newFakeCloud()
		template := filepath.Join(t.TempDir(), "cluster.json")

		out, err := run(t, connectTo(cloud), "provision", "--profile", "prod-eastus", "--dry-run", "--template", template)
		require.NoError(t, err)

		assert.Zero(t, cloud.creates)
		assert.Empty(t, cloud.linked)
		assert.Contains(t, out, "would link")

		data, err := os.ReadFile(template)
		require.NoError(t, err)
		assert.True(t, json.Valid(data))
		assert.Contains(t, string(data), "la-cluster-prod-eastus")
	})

	t.Run("invalid capacity", func(t *testing.T) {
		cloud := newFakeCloud()
		_, err := run(t, connectTo(cloud), "provision",
			"--subscription", "3f2b8c1e-6a4d-4e1f-9b7a-2c5d8e9f0a1b",
			"--resource-group", "rg-logging",
			"--name", "la-cluster",
			"--region", "eastus",
			"--capacity", "150")
		require.Error(t, err)
		assert.Equal(t, lerrors.ErrCodeInvalidRequest, lerrors.CodeOf(err))
		assert.Zero(t, cloud.creates)
	})
}

func TestLinkCommand(t *testing.T) {
	clusterID := "/subscriptions/3f2b8c1e-6a4d-4e1f-9b7a-2c5d8e9f0a1b/resourceGroups/rg-logging-prod/providers/Microsoft.OperationalInsights/clusters/la-cluster-prod-eastus"

	t.Run("links matching workspaces", func(t *testing.T) {
		cloud := newFakeCloud()
		out, err := run(t, connectTo(cloud), "--format", "json", "link",
			"--cluster-id", clusterID, "--region", "eastus")
		require.NoError(t, err)

		assert.ElementsMatch(t, []string{"w1", "w2"}, cloud.linked)

		var res struct {
			Links types.LinkSummary `json:"links"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		assert.Equal(t, 2, res.Links.Attempted)
		assert.Equal(t, 2, res.Links.Succeeded)
	})

	t.Run("rejects malformed cluster id", func(t *testing.T) {
		_, err := run(t, connectTo(newFakeCloud()), "link", "--cluster-id", "not-a-resource-id", "--region", "eastus")
		require.Error(t, err)
		assert.Equal(t, lerrors.ErrCodeInvalidRequest, lerrors.CodeOf(err))
	})
}
