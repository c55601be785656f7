package types

import "time"

// ProvisionRequest represents a cluster provisioning request to validate.
// Empty fields are filled from the named profile, if any.
type ProvisionRequest struct {
	Profile          string            `json:"profile,omitempty"`
	SubscriptionID   string            `json:"subscription_id,omitempty"`
	ResourceGroup    string            `json:"resource_group,omitempty"`
	Name             string            `json:"name,omitempty"`
	Region           string            `json:"region,omitempty"`
	CapacityGBPerDay int               `json:"capacity_gb_per_day,omitempty"`
	TagKey           string            `json:"tag_key,omitempty"`
	TagValue         string            `json:"tag_value,omitempty"`
	PollInterval     time.Duration     `json:"poll_interval,omitempty"`
	MaxWait          time.Duration     `json:"max_wait,omitempty"`
	ExtraTags        map[string]string `json:"extra_tags,omitempty"`
}

// LinkRequest represents a request to link matching workspaces to an
// existing cluster
type LinkRequest struct {
	Profile   string `json:"profile,omitempty"`
	ClusterID string `json:"cluster_id,omitempty"`
	Region    string `json:"region,omitempty"`
	TagKey    string `json:"tag_key,omitempty"`
	TagValue  string `json:"tag_value,omitempty"`
	DryRun    bool   `json:"dry_run,omitempty"`
}
