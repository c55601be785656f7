package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ProvisioningState represents the lifecycle state of a dedicated cluster
type ProvisioningState string

const (
	ProvisioningStateAbsent    ProvisioningState = "Absent"
	ProvisioningStateCreating  ProvisioningState = "Creating"
	ProvisioningStateSucceeded ProvisioningState = "Succeeded"
	ProvisioningStateFailed    ProvisioningState = "Failed"
	ProvisioningStateUnknown   ProvisioningState = "Unknown"
)

// ParseProvisioningState maps a provider-reported provisioning state onto
// the states the provisioner understands. Unrecognised values are Unknown.
func ParseProvisioningState(s string) ProvisioningState {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "succeeded":
		return ProvisioningStateSucceeded
	case "failed", "canceled", "cancelled":
		return ProvisioningStateFailed
	case "creating", "provisioningaccount", "updating":
		return ProvisioningStateCreating
	default:
		return ProvisioningStateUnknown
	}
}

// IsTerminal reports whether no further polling can change the state
func (s ProvisioningState) IsTerminal() bool {
	return s == ProvisioningStateSucceeded || s == ProvisioningStateFailed
}

// Tags is a map of key-value pairs stored as JSONB
type Tags map[string]string

// Value implements driver.Valuer for database serialization
func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	return json.Marshal(t)
}

// Scan implements sql.Scanner for database deserialization
func (t *Tags) Scan(value any) error {
	if value == nil {
		*t = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	default:
		return fmt.Errorf("scan tags: unsupported type %T", value)
	}
}

// ClusterRef addresses a dedicated cluster within a subscription
type ClusterRef struct {
	SubscriptionID string `json:"subscription_id" yaml:"subscriptionId"`
	ResourceGroup  string `json:"resource_group" yaml:"resourceGroup"`
	Name           string `json:"name" yaml:"name"`
}

// ResourceID returns the ARM resource ID of the cluster
func (r ClusterRef) ResourceID() string {
	return fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/providers/Microsoft.OperationalInsights/clusters/%s",
		r.SubscriptionID, r.ResourceGroup, r.Name)
}

// String implements fmt.Stringer
func (r ClusterRef) String() string {
	return r.ResourceGroup + "/" + r.Name
}

// ClusterSpec is the desired configuration of a dedicated cluster
type ClusterSpec struct {
	ClusterRef
	Region           string `json:"region"`
	CapacityGBPerDay int    `json:"capacity_gb_per_day"`
	Tags             Tags   `json:"tags,omitempty"`
}

// Cluster represents a dedicated cluster as last observed
type Cluster struct {
	ID                string            `db:"id" json:"id"`
	Name              string            `db:"name" json:"name"`
	SubscriptionID    string            `db:"subscription_id" json:"subscription_id"`
	ResourceGroup     string            `db:"resource_group" json:"resource_group"`
	Region            string            `db:"region" json:"region"`
	CapacityGBPerDay  int               `db:"capacity_gb_per_day" json:"capacity_gb_per_day"`
	ProvisioningState ProvisioningState `db:"provisioning_state" json:"provisioning_state"`
	Adopted           bool              `db:"adopted" json:"adopted"`
	Tags              Tags              `db:"tags" json:"tags,omitempty"`
	ObservedAt        time.Time         `db:"observed_at" json:"observed_at"`
}
