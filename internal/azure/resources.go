package azure

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/monitor/query/azlogs"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/operationalinsights/armoperationalinsights/v2"
	"github.com/tsanders-rh/lactl/pkg/types"
)

// linkedServiceName is the fixed name of a workspace's cluster link
const linkedServiceName = "cluster"

// ListSubscriptions returns every subscription the credential can access
func (c *Client) ListSubscriptions(ctx context.Context) ([]types.Subscription, error) {
	var subs []types.Subscription

	pager := c.subscriptions.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list subscriptions: %w", err)
		}

		for _, s := range page.Value {
			if s == nil {
				continue
			}
			subs = append(subs, types.Subscription{
				ID:          deref(s.SubscriptionID),
				DisplayName: deref(s.DisplayName),
				TenantID:    deref(s.TenantID),
			})
		}
	}

	return subs, nil
}

// ListWorkspaces returns the Log Analytics workspaces in a subscription
func (c *Client) ListWorkspaces(ctx context.Context, subscriptionID string) ([]types.Workspace, error) {
	ic, err := c.insights(subscriptionID)
	if err != nil {
		return nil, err
	}

	var workspaces []types.Workspace

	pager := ic.workspaces.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list workspaces in subscription %s: %w", subscriptionID, err)
		}

		for _, w := range page.Value {
			if w == nil {
				continue
			}
			ws := types.Workspace{
				ID:             deref(w.ID),
				Name:           deref(w.Name),
				SubscriptionID: subscriptionID,
				Region:         deref(w.Location),
				Tags:           fromTags(w.Tags),
			}
			if w.Properties != nil {
				ws.CustomerID = deref(w.Properties.CustomerID)
			}
			if rid, err := arm.ParseResourceID(ws.ID); err == nil {
				ws.SubscriptionID = rid.SubscriptionID
				ws.ResourceGroup = rid.ResourceGroupName
			}
			workspaces = append(workspaces, ws)
		}
	}

	return workspaces, nil
}

// ListTables returns the tables of a workspace and their plans
func (c *Client) ListTables(ctx context.Context, ws types.Workspace) ([]types.Table, error) {
	sub, rg, name, err := workspaceCoordinates(ws)
	if err != nil {
		return nil, err
	}
	ic, err := c.insights(sub)
	if err != nil {
		return nil, err
	}

	var tables []types.Table

	pager := ic.tables.NewListByWorkspacePager(rg, name, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list tables of workspace %s: %w", ws.Name, err)
		}

		for _, t := range page.Value {
			if t == nil {
				continue
			}
			var plan string
			if t.Properties != nil && t.Properties.Plan != nil {
				plan = string(*t.Properties.Plan)
			}
			tables = append(tables, types.Table{
				Name: deref(t.Name),
				Plan: types.ParseTablePlan(plan),
			})
		}
	}

	return tables, nil
}

// GetCluster returns the current state of a dedicated cluster. A missing
// cluster yields an error matching ErrNotFound.
func (c *Client) GetCluster(ctx context.Context, ref types.ClusterRef) (*types.Cluster, error) {
	ic, err := c.insights(ref.SubscriptionID)
	if err != nil {
		return nil, err
	}

	resp, err := ic.clusters.Get(ctx, ref.ResourceGroup, ref.Name, nil)
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("get cluster %s: %w", ref, ErrNotFound)
		}
		return nil, fmt.Errorf("get cluster %s: %w", ref, err)
	}

	return toCluster(ref, &resp.Cluster), nil
}

// CreateCluster issues a single create request for a dedicated cluster.
// The long-running operation is not awaited; callers poll GetCluster.
func (c *Client) CreateCluster(ctx context.Context, spec types.ClusterSpec) (*types.Cluster, error) {
	ic, err := c.insights(spec.SubscriptionID)
	if err != nil {
		return nil, err
	}

	body := armoperationalinsights.Cluster{
		Location: to.Ptr(spec.Region),
		Tags:     toTags(spec.Tags),
		Identity: &armoperationalinsights.Identity{
			Type: to.Ptr(armoperationalinsights.IdentityTypeSystemAssigned),
		},
		SKU: &armoperationalinsights.ClusterSKU{
			Name:     to.Ptr(armoperationalinsights.ClusterSKUNameEnumCapacityReservation),
			Capacity: to.Ptr(armoperationalinsights.Capacity(spec.CapacityGBPerDay)),
		},
	}

	poller, err := ic.clusters.BeginCreateOrUpdate(ctx, spec.ResourceGroup, spec.Name, body, nil)
	if err != nil {
		return nil, fmt.Errorf("create cluster %s: %w", spec.ClusterRef, err)
	}

	res := body
	if poller.Done() {
		done, err := poller.Result(ctx)
		if err != nil {
			return nil, fmt.Errorf("create cluster %s: %w", spec.ClusterRef, err)
		}
		res = done.Cluster
		if res.Location == nil {
			res.Location = body.Location
		}
		if res.SKU == nil {
			res.SKU = body.SKU
		}
	}
	if res.Properties == nil || res.Properties.ProvisioningState == nil {
		res.Properties = &armoperationalinsights.ClusterProperties{
			ProvisioningState: to.Ptr(armoperationalinsights.ClusterEntityStatusCreating),
		}
	}

	return toCluster(spec.ClusterRef, &res), nil
}

// LinkWorkspace links a workspace to a dedicated cluster. It reports
// alreadyLinked when the workspace was linked to the cluster beforehand.
func (c *Client) LinkWorkspace(ctx context.Context, ws types.Workspace, clusterID string) (bool, error) {
	sub, rg, name, err := workspaceCoordinates(ws)
	if err != nil {
		return false, err
	}
	ic, err := c.insights(sub)
	if err != nil {
		return false, err
	}

	existing, err := ic.linkedServices.Get(ctx, rg, name, linkedServiceName, nil)
	switch {
	case err == nil:
		if props := existing.Properties; props != nil &&
			strings.EqualFold(deref(props.WriteAccessResourceID), clusterID) &&
			linkedState(props) != types.ProvisioningStateFailed {
			return true, nil
		}
	case IsNotFound(err):
	default:
		return false, fmt.Errorf("get linked service of workspace %s: %w", ws.Name, err)
	}

	body := armoperationalinsights.LinkedService{
		Properties: &armoperationalinsights.LinkedServiceProperties{
			WriteAccessResourceID: to.Ptr(clusterID),
		},
	}
	if _, err := ic.linkedServices.BeginCreateOrUpdate(ctx, rg, name, linkedServiceName, body, nil); err != nil {
		return false, fmt.Errorf("link workspace %s: %w", ws.Name, err)
	}

	return false, nil
}

// Query runs a KQL query against a workspace over [start, end)
func (c *Client) Query(ctx context.Context, customerID, query string, start, end time.Time) ([]map[string]any, error) {
	resp, err := c.logs.QueryWorkspace(ctx, customerID, azlogs.QueryBody{
		Query:    to.Ptr(query),
		Timespan: to.Ptr(azlogs.NewTimeInterval(start.UTC(), end.UTC())),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("query workspace %s: %w", customerID, err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("query workspace %s: partial result: %v", customerID, resp.Error)
	}

	return flattenRows(resp.Tables), nil
}

func toCluster(ref types.ClusterRef, res *armoperationalinsights.Cluster) *types.Cluster {
	cluster := &types.Cluster{
		ID:             deref(res.ID),
		Name:           ref.Name,
		SubscriptionID: ref.SubscriptionID,
		ResourceGroup:  ref.ResourceGroup,
		Region:         deref(res.Location),
		Tags:           fromTags(res.Tags),
		ObservedAt:     time.Now().UTC(),
	}
	if cluster.ID == "" {
		cluster.ID = ref.ResourceID()
	}
	if res.Properties != nil && res.Properties.ProvisioningState != nil {
		cluster.ProvisioningState = types.ParseProvisioningState(string(*res.Properties.ProvisioningState))
	} else {
		cluster.ProvisioningState = types.ParseProvisioningState("")
	}
	if res.SKU != nil && res.SKU.Capacity != nil {
		cluster.CapacityGBPerDay = int(*res.SKU.Capacity)
	}
	return cluster
}

func linkedState(props *armoperationalinsights.LinkedServiceProperties) types.ProvisioningState {
	if props.ProvisioningState == nil {
		return types.ParseProvisioningState("")
	}
	return types.ParseProvisioningState(string(*props.ProvisioningState))
}

// workspaceCoordinates splits a workspace ID into the parts the SDK
// clients address it by
func workspaceCoordinates(ws types.Workspace) (subscription, resourceGroup, name string, err error) {
	rid, err := arm.ParseResourceID(ws.ID)
	if err != nil {
		return "", "", "", fmt.Errorf("parse workspace id %q: %w", ws.ID, err)
	}
	return rid.SubscriptionID, rid.ResourceGroupName, rid.Name, nil
}

// flattenRows turns the first result table into column-keyed rows
func flattenRows(tables []azlogs.Table) []map[string]any {
	if len(tables) == 0 {
		return nil
	}

	t := tables[0]
	rows := make([]map[string]any, 0, len(t.Rows))
	for _, r := range t.Rows {
		row := make(map[string]any, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(r) {
				row[deref(col.Name)] = r[i]
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func toTags(tags types.Tags) map[string]*string {
	if len(tags) == 0 {
		return nil
	}
	out := make(map[string]*string, len(tags))
	for k, v := range tags {
		out[k] = to.Ptr(v)
	}
	return out
}

func fromTags(tags map[string]*string) types.Tags {
	if len(tags) == 0 {
		return nil
	}
	out := make(types.Tags, len(tags))
	for k, v := range tags {
		out[k] = deref(v)
	}
	return out
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
