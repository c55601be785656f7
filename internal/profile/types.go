package profile

import (
	"slices"
	"time"

	"github.com/tsanders-rh/lactl/internal/tier"
)

// Profile represents a dedicated-cluster profile loaded from YAML
type Profile struct {
	Name         string             `yaml:"name" json:"name" validate:"required"`
	DisplayName  string             `yaml:"displayName" json:"display_name" validate:"required"`
	Description  string             `yaml:"description" json:"description" validate:"required"`
	Enabled      bool               `yaml:"enabled" json:"enabled"`
	Cluster      ClusterConfig      `yaml:"cluster" json:"cluster" validate:"required"`
	Discovery    DiscoveryConfig    `yaml:"discovery" json:"discovery"`
	Provisioning ProvisioningConfig `yaml:"provisioning" json:"provisioning"`
	Pricing      *tier.Pricing      `yaml:"pricing,omitempty" json:"pricing,omitempty"`
	Tags         TagsConfig         `yaml:"tags" json:"tags"`
}

// ClusterConfig identifies the cluster a profile provisions
type ClusterConfig struct {
	SubscriptionID   string `yaml:"subscriptionId" json:"subscription_id" validate:"required,uuid"`
	ResourceGroup    string `yaml:"resourceGroup" json:"resource_group" validate:"required,max=90"`
	Name             string `yaml:"name" json:"name" validate:"required,clustername"`
	Region           string `yaml:"region" json:"region" validate:"required"`
	CapacityGBPerDay int    `yaml:"capacityGBPerDay" json:"capacity_gb_per_day" validate:"required,gt=0"`
}

// DiscoveryConfig narrows which workspaces are linked
type DiscoveryConfig struct {
	TagKey            string `yaml:"tagKey" json:"tag_key" validate:"required_with=TagValue"`
	TagValue          string `yaml:"tagValue" json:"tag_value" validate:"required_with=TagKey"`
	SubscriptionsFile string `yaml:"subscriptionsFile" json:"subscriptions_file,omitempty"`
}

// ProvisioningConfig controls cluster polling
type ProvisioningConfig struct {
	PollInterval time.Duration `yaml:"pollInterval" json:"poll_interval" validate:"min=0"`
	MaxWait      time.Duration `yaml:"maxWait" json:"max_wait" validate:"min=0"`
}

// TagsConfig defines tag requirements
type TagsConfig struct {
	Required      map[string]string `yaml:"required" json:"required"`
	Defaults      map[string]string `yaml:"defaults" json:"defaults"`
	AllowUserTags bool              `yaml:"allowUserTags" json:"allow_user_tags"`
}

// System tag keys set on every cluster
const (
	TagManagedBy = "ManagedBy"
	TagProfile   = "Profile"

	ManagedByValue = "lactl"
	// AdHocProfile is recorded when a cluster is provisioned without a profile
	AdHocProfile = "adhoc"
)

// ReservedTagKeys are tag keys that cannot be overridden by users
var ReservedTagKeys = []string{
	TagManagedBy,
	TagProfile,
	"ClusterName",
	"RunId",
}

// IsReservedTagKey reports whether key is set by lactl itself
func IsReservedTagKey(key string) bool {
	return slices.Contains(ReservedTagKeys, key)
}
