package types

import "strings"

// Subscription is an accessible billing/authorization scope
type Subscription struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	TenantID    string `json:"tenant_id"`
}

// Workspace is a Log Analytics workspace as returned by discovery
type Workspace struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	SubscriptionID string `json:"subscription_id"`
	ResourceGroup  string `json:"resource_group"`
	Region         string `json:"region"`
	CustomerID     string `json:"customer_id"`
	Tags           Tags   `json:"tags,omitempty"`
}

// TablePlan is the billing plan of a workspace table
type TablePlan string

const (
	TablePlanAnalytics TablePlan = "Analytics"
	TablePlanBasic     TablePlan = "Basic"
	TablePlanAuxiliary TablePlan = "Auxiliary"
)

// ParseTablePlan normalises a reported plan. Empty and unknown values
// are billed as Analytics.
func ParseTablePlan(s string) TablePlan {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "basic":
		return TablePlanBasic
	case "auxiliary":
		return TablePlanAuxiliary
	default:
		return TablePlanAnalytics
	}
}

// Table is a workspace table and its billing plan
type Table struct {
	Name string    `json:"name"`
	Plan TablePlan `json:"plan"`
}

// PlanLookup maps table names to billing plans
type PlanLookup map[string]TablePlan

// NewPlanLookup builds a lookup from a table listing
func NewPlanLookup(tables []Table) PlanLookup {
	lookup := make(PlanLookup, len(tables))
	for _, t := range tables {
		lookup[t.Name] = ParseTablePlan(string(t.Plan))
	}
	return lookup
}

// PlanFor returns the plan of a table, defaulting to Analytics
func (l PlanLookup) PlanFor(table string) TablePlan {
	if plan, ok := l[table]; ok {
		return plan
	}
	return TablePlanAnalytics
}
