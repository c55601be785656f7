package policy

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/google/uuid"
	"github.com/tsanders-rh/lactl/internal/discovery"
	"github.com/tsanders-rh/lactl/internal/profile"
	"github.com/tsanders-rh/lactl/internal/provision"
	"github.com/tsanders-rh/lactl/internal/tier"
	"github.com/tsanders-rh/lactl/pkg/types"
)

const clusterResourceType = "Microsoft.OperationalInsights/clusters"

// resourceGroupPattern follows the ARM naming rules for resource groups
var resourceGroupPattern = regexp.MustCompile(`^[-\w._()]{1,90}$`)

// Engine validates provisioning and linking requests against profiles
type Engine struct {
	renderer *profile.Renderer
	catalog  *tier.Catalog
}

// NewEngine creates a new policy validation engine. The catalog bounds
// capacity for requests without a profile; nil selects the default.
func NewEngine(renderer *profile.Renderer, catalog *tier.Catalog) *Engine {
	if catalog == nil {
		catalog = tier.DefaultCatalog()
	}
	return &Engine{
		renderer: renderer,
		catalog:  catalog,
	}
}

// Renderer returns the renderer used to resolve profiles
func (e *Engine) Renderer() *profile.Renderer {
	return e.renderer
}

func newResult() *ValidationResult {
	return &ValidationResult{
		Valid:      true,
		Errors:     []ValidationError{},
		MergedTags: make(map[string]string),
	}
}

// ValidateProvisionRequest validates a provisioning request. Profile fields
// fill anything the request leaves empty.
func (e *Engine) ValidateProvisionRequest(req *types.ProvisionRequest) (*ValidationResult, error) {
	result := newResult()

	resolved, prof, err := e.renderer.Resolve(*req)
	if err != nil {
		result.AddError("profile", fmt.Sprintf("invalid profile: %s", err))
		return result, nil
	}
	result.Profile = prof

	catalog := e.catalog
	if prof != nil {
		recommender, err := prof.Recommender()
		if err != nil {
			return nil, fmt.Errorf("profile %s pricing: %w", prof.Name, err)
		}
		catalog = recommender.Catalog()
	}

	e.validateSubscription("subscriptionId", resolved.SubscriptionID, result)
	e.validateResourceGroup(resolved.ResourceGroup, result)
	e.validateName(resolved.Name, result)
	e.validateCapacity(resolved.CapacityGBPerDay, catalog, result)
	e.validateFilter(resolved.Region, resolved.TagKey, resolved.TagValue, result)
	e.validatePolling(resolved, result)
	e.validateTags(resolved, prof, result)

	if result.Valid {
		result.Spec = e.renderer.RenderClusterSpec(resolved, result.MergedTags)
		config := provision.DefaultConfig()
		if resolved.PollInterval > 0 {
			config.PollInterval = resolved.PollInterval
		}
		if resolved.MaxWait > 0 {
			config.MaxWait = resolved.MaxWait
		}
		result.Provision = config
	}

	return result, nil
}

// ValidateLinkRequest validates a request to link workspaces to an
// existing cluster
func (e *Engine) ValidateLinkRequest(req *types.LinkRequest) (*ValidationResult, error) {
	result := newResult()

	resolved, prof, err := e.renderer.ResolveLink(*req)
	if err != nil {
		result.AddError("profile", fmt.Sprintf("invalid profile: %s", err))
		return result, nil
	}
	result.Profile = prof

	e.validateClusterID(resolved.ClusterID, result)
	e.validateFilter(resolved.Region, resolved.TagKey, resolved.TagValue, result)

	if result.Valid {
		result.ClusterID = resolved.ClusterID
	}

	return result, nil
}

// validateSubscription checks the subscription ID is a GUID
func (e *Engine) validateSubscription(field, id string, result *ValidationResult) {
	if id == "" {
		result.AddError(field, "subscription ID is required")
		return
	}
	if _, err := uuid.Parse(id); err != nil {
		result.AddError(field, fmt.Sprintf("subscription ID %q is not a GUID", id))
	}
}

func (e *Engine) validateResourceGroup(name string, result *ValidationResult) {
	if name == "" {
		result.AddError("resourceGroup", "resource group is required")
		return
	}
	if !resourceGroupPattern.MatchString(name) || strings.HasSuffix(name, ".") {
		result.AddError("resourceGroup", "resource group must be 1-90 alphanumerics, underscores, hyphens, periods or parentheses, not ending in a period")
	}
}

// validateName checks the cluster name is 4-63 alphanumerics and hyphens
func (e *Engine) validateName(name string, result *ValidationResult) {
	if name == "" {
		result.AddError("name", "cluster name is required")
		return
	}
	if !profile.ValidClusterName(name) {
		result.AddError("name", "cluster name must be 4-63 alphanumerics and hyphens, not starting or ending with a hyphen")
	}
}

// validateCapacity checks capacity is an offered commitment tier
func (e *Engine) validateCapacity(capacity int, catalog *tier.Catalog, result *ValidationResult) {
	if capacity <= 0 {
		result.AddError("capacityGBPerDay", "capacity is required")
		return
	}
	if _, ok := catalog.Lookup(capacity); !ok {
		result.AddError("capacityGBPerDay", fmt.Sprintf("capacity %d GB/day is not a commitment tier: %v", capacity, catalog.Capacities()))
	}
}

// validateFilter checks the discovery filter for linking
func (e *Engine) validateFilter(region, tagKey, tagValue string, result *ValidationResult) {
	filter := discovery.Filter{
		Region:   discovery.NormalizeRegion(region),
		TagKey:   tagKey,
		TagValue: tagValue,
	}
	if region == "" {
		result.AddError("region", "region is required")
	}
	if (tagKey == "") != (tagValue == "") {
		result.AddError("tag", "tag key and tag value must be provided together")
	}
	result.Filter = filter
}

func (e *Engine) validatePolling(req types.ProvisionRequest, result *ValidationResult) {
	if req.PollInterval < 0 {
		result.AddError("pollInterval", "poll interval must not be negative")
	}
	if req.MaxWait < 0 {
		result.AddError("maxWait", "max wait must not be negative")
	}
	if req.MaxWait >= provision.MaxWaitLimit {
		result.AddError("maxWait", fmt.Sprintf("max wait %s must be shorter than %s", req.MaxWait, provision.MaxWaitLimit))
	}
	if req.PollInterval > 0 && req.MaxWait > 0 && req.MaxWait < req.PollInterval {
		result.AddError("maxWait", fmt.Sprintf("max wait %s is shorter than poll interval %s", req.MaxWait, req.PollInterval))
	}
}

// validateClusterID checks the cluster is addressed by a full ARM ID
func (e *Engine) validateClusterID(id string, result *ValidationResult) {
	if id == "" {
		result.AddError("clusterId", "cluster resource ID is required")
		return
	}
	rid, err := arm.ParseResourceID(id)
	if err != nil {
		result.AddError("clusterId", fmt.Sprintf("invalid resource ID: %s", err))
		return
	}
	if !strings.EqualFold(rid.ResourceType.String(), clusterResourceType) {
		result.AddError("clusterId", fmt.Sprintf("resource type %s is not %s", rid.ResourceType, clusterResourceType))
		return
	}
	e.validateSubscription("clusterId", rid.SubscriptionID, result)
}

// validateTags merges required, default, and user tags
func (e *Engine) validateTags(req types.ProvisionRequest, prof *profile.Profile, result *ValidationResult) {
	allowUserTags := true
	profileName := profile.AdHocProfile

	if prof != nil {
		profileName = prof.Name
		allowUserTags = prof.Tags.AllowUserTags

		for k, v := range prof.Tags.Defaults {
			result.MergedTags[k] = v
		}
		for k, v := range prof.Tags.Required {
			result.MergedTags[k] = v
		}
	}

	if allowUserTags {
		for k, v := range req.ExtraTags {
			if profile.IsReservedTagKey(k) {
				result.AddError("extraTags", fmt.Sprintf("cannot override reserved tag key: %s", k))
				continue
			}
			if prof != nil {
				if _, required := prof.Tags.Required[k]; required {
					result.AddError("extraTags", fmt.Sprintf("cannot override required tag key: %s", k))
					continue
				}
			}
			result.MergedTags[k] = v
		}
	} else if len(req.ExtraTags) > 0 {
		result.AddError("extraTags", "user-defined tags not allowed by profile")
	}

	// System tags always override
	result.MergedTags[profile.TagManagedBy] = profile.ManagedByValue
	result.MergedTags[profile.TagProfile] = profileName
	if req.Name != "" {
		result.MergedTags["ClusterName"] = req.Name
	}
}
