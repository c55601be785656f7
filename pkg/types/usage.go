package types

import "time"

// UsageRow is one row of the per-data-type billable ingestion query
type UsageRow struct {
	DataType          string  `json:"data_type"`
	IngestionVolumeMB float64 `json:"ingestion_volume_mb"`
}

// ClassifiedTotals is ingestion volume partitioned by billing plan, in GB.
// TotalGB is the rounded exact total; the categories add up to it.
type ClassifiedTotals struct {
	AnalyticsGB float64 `json:"analytics_gb" yaml:"analyticsGB"`
	BasicGB     float64 `json:"basic_gb" yaml:"basicGB"`
	AuxiliaryGB float64 `json:"auxiliary_gb" yaml:"auxiliaryGB"`
	TotalGB     float64 `json:"total_gb" yaml:"totalGB"`
}

// IsZero reports whether no ingestion was classified
func (c ClassifiedTotals) IsZero() bool {
	return c.TotalGB == 0 && c.AnalyticsGB == 0 && c.BasicGB == 0 && c.AuxiliaryGB == 0
}

// WorkspaceUsage is the classified ingestion of one workspace over a window
type WorkspaceUsage struct {
	ID             string           `db:"id" json:"id,omitempty"`
	RunID          string           `db:"run_id" json:"run_id,omitempty"`
	WorkspaceID    string           `db:"workspace_id" json:"workspace_id"`
	WorkspaceName  string           `db:"workspace_name" json:"workspace_name"`
	SubscriptionID string           `db:"subscription_id" json:"subscription_id"`
	Region         string           `db:"region" json:"region"`
	Totals         ClassifiedTotals `json:"totals"`
	QueryFailed    bool             `db:"query_failed" json:"query_failed"`
	UsedFallback   bool             `db:"used_fallback" json:"used_fallback"`
}

// CommitmentTier is a fixed-capacity pricing option
type CommitmentTier struct {
	CapacityGBPerDay int     `json:"capacity_gb_per_day" yaml:"capacityGBPerDay"`
	DailyCostUSD     float64 `json:"daily_cost_usd" yaml:"dailyCostUSD"`
	MonthlyCostUSD   float64 `json:"monthly_cost_usd" yaml:"monthlyCostUSD"`
}

// Recommendation is the outcome of a commitment-tier search
type Recommendation struct {
	Policy               string          `json:"policy"`
	AvgAnalyticsGBPerDay float64         `json:"avg_analytics_gb_per_day"`
	Tier                 *CommitmentTier `json:"tier,omitempty"`
	Reason               string          `json:"reason"`
	PayAsYouGoMonthlyUSD float64         `json:"pay_as_you_go_monthly_usd"`
	MonthlySavingsUSD    float64         `json:"monthly_savings_usd"`
	SavingsPercent       float64         `json:"savings_percent"`
}

// UsageReport aggregates classified ingestion across workspaces
type UsageReport struct {
	RunID                string           `json:"run_id,omitempty"`
	WindowStart          time.Time        `json:"window_start"`
	WindowEnd            time.Time        `json:"window_end"`
	Days                 int              `json:"days"`
	WorkspacesAnalyzed   int              `json:"workspaces_analyzed"`
	QueryFailures        int              `json:"query_failures"`
	Workspaces           []WorkspaceUsage `json:"workspaces"`
	Totals               ClassifiedTotals `json:"totals"`
	AvgAnalyticsGBPerDay float64          `json:"avg_analytics_gb_per_day"`
	Recommendation       Recommendation   `json:"recommendation"`
}
