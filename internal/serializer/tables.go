package serializer

import (
	"fmt"
	"strconv"

	"github.com/tsanders-rh/lactl/pkg/types"
)

// Tabler is implemented by values that render their own tables
type Tabler interface {
	Tables() []Table
}

// tablesFor renders known result types as purpose-built tables
func tablesFor(v any) ([]Table, bool) {
	switch val := v.(type) {
	case Tabler:
		return val.Tables(), true
	case *types.UsageReport:
		if val == nil {
			return nil, false
		}
		return usageReportTables(val), true
	case []types.CommitmentTier:
		return []Table{tierTable(val)}, true
	case types.Recommendation:
		return []Table{recommendationTable(val)}, true
	case *types.Recommendation:
		if val == nil {
			return nil, false
		}
		return []Table{recommendationTable(*val)}, true
	case types.LinkSummary:
		return []Table{LinkTable(val)}, true
	case *types.Cluster:
		if val == nil {
			return nil, false
		}
		return []Table{ClusterTable(val)}, true
	case []*types.Run:
		return []Table{runsTable(val)}, true
	default:
		return nil, false
	}
}

func gb(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func usd(f float64) string {
	return "$" + strconv.FormatFloat(f, 'f', 2, 64)
}

func usageReportTables(r *types.UsageReport) []Table {
	workspaces := Table{
		Title:  fmt.Sprintf("Ingestion %s to %s (%d days)", r.WindowStart.Format("2006-01-02"), r.WindowEnd.Format("2006-01-02"), r.Days),
		Header: []string{"WORKSPACE", "SUBSCRIPTION", "REGION", "ANALYTICS GB", "BASIC GB", "AUXILIARY GB", "TOTAL GB", "NOTE"},
	}
	for _, w := range r.Workspaces {
		note := ""
		switch {
		case w.QueryFailed:
			note = "query failed"
		case w.UsedFallback:
			note = "billed-size fallback"
		}
		workspaces.Rows = append(workspaces.Rows, []string{
			w.WorkspaceName, w.SubscriptionID, w.Region,
			gb(w.Totals.AnalyticsGB), gb(w.Totals.BasicGB), gb(w.Totals.AuxiliaryGB), gb(w.Totals.TotalGB), note,
		})
	}

	totals := Table{
		Title:  "Totals",
		Header: []string{"METRIC", "VALUE"},
		Rows: [][]string{
			{"Workspaces analyzed", strconv.Itoa(r.WorkspacesAnalyzed)},
			{"Query failures", strconv.Itoa(r.QueryFailures)},
			{"Analytics GB", gb(r.Totals.AnalyticsGB)},
			{"Basic GB", gb(r.Totals.BasicGB)},
			{"Auxiliary GB", gb(r.Totals.AuxiliaryGB)},
			{"Total GB", gb(r.Totals.TotalGB)},
			{"Avg Analytics GB/day", gb(r.AvgAnalyticsGBPerDay)},
		},
	}

	return []Table{workspaces, totals, recommendationTable(r.Recommendation)}
}

func recommendationTable(rec types.Recommendation) Table {
	t := Table{
		Title:  "Recommendation",
		Header: []string{"FIELD", "VALUE"},
		Rows: [][]string{
			{"Policy", rec.Policy},
			{"Avg Analytics GB/day", gb(rec.AvgAnalyticsGBPerDay)},
			{"Pay-as-you-go monthly", usd(rec.PayAsYouGoMonthlyUSD)},
		},
	}
	if rec.Tier != nil {
		t.Rows = append(t.Rows,
			[]string{"Commitment tier", fmt.Sprintf("%d GB/day", rec.Tier.CapacityGBPerDay)},
			[]string{"Tier monthly", usd(rec.Tier.MonthlyCostUSD)},
			[]string{"Monthly savings", usd(rec.MonthlySavingsUSD)},
			[]string{"Savings", gb(rec.SavingsPercent) + "%"},
		)
	}
	t.Rows = append(t.Rows, []string{"Reason", rec.Reason})
	return t
}

func tierTable(tiers []types.CommitmentTier) Table {
	t := Table{Header: []string{"CAPACITY GB/DAY", "DAILY USD", "MONTHLY USD"}}
	for _, tier := range tiers {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(tier.CapacityGBPerDay), usd(tier.DailyCostUSD), usd(tier.MonthlyCostUSD),
		})
	}
	return t
}

// LinkTable renders one row per linking outcome
func LinkTable(s types.LinkSummary) Table {
	title := fmt.Sprintf("Linked %d/%d workspaces", s.Succeeded, s.Attempted)
	if s.DryRun {
		title += " (dry run)"
	}
	t := Table{
		Title:  title,
		Header: []string{"WORKSPACE", "SUBSCRIPTION", "RESULT", "ERROR"},
	}
	for _, o := range s.Outcomes {
		result := "linked"
		switch {
		case !o.Success:
			result = "failed"
		case s.DryRun:
			result = "would link"
		case o.AlreadyLinked:
			result = "already linked"
		}
		errMsg := ""
		if o.Error != nil {
			errMsg = *o.Error
		}
		t.Rows = append(t.Rows, []string{o.WorkspaceName, o.SubscriptionID, result, errMsg})
	}
	return t
}

// ClusterTable renders a cluster as field/value rows
func ClusterTable(c *types.Cluster) Table {
	state := string(c.ProvisioningState)
	if c.Adopted {
		state += " (adopted)"
	}
	return Table{
		Title:  "Cluster",
		Header: []string{"FIELD", "VALUE"},
		Rows: [][]string{
			{"Name", c.Name},
			{"Resource group", c.ResourceGroup},
			{"Subscription", c.SubscriptionID},
			{"Region", c.Region},
			{"Capacity", fmt.Sprintf("%d GB/day", c.CapacityGBPerDay)},
			{"State", state},
			{"ID", c.ID},
		},
	}
}

// RunTable renders the identity and outcome of a run
func RunTable(r *types.Run) Table {
	return runsTable([]*types.Run{r})
}

func runsTable(runs []*types.Run) Table {
	t := Table{Header: []string{"RUN", "TYPE", "STATUS", "REGION", "STARTED", "ERROR"}}
	for _, r := range runs {
		errCode := ""
		if r.ErrorCode != nil {
			errCode = *r.ErrorCode
		}
		t.Rows = append(t.Rows, []string{
			r.ID, string(r.RunType), string(r.Status), r.Region,
			r.StartedAt.UTC().Format("2006-01-02 15:04:05"), errCode,
		})
	}
	return t
}
