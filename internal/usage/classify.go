package usage

import (
	"slices"

	"github.com/tsanders-rh/lactl/internal/decimal"
	"github.com/tsanders-rh/lactl/pkg/types"
)

var (
	mbPerGB    = decimal.FromInt(1000)
	bytesPerGB = decimal.FromInt(1_000_000_000)
	hundredth  = decimal.FromInt(1).Div(decimal.FromInt(100))
)

// Volume is unrounded ingestion per plan, in GB. Volumes add exactly, so
// fleet totals are rounded once rather than summed from rounded parts.
type Volume struct {
	Analytics decimal.Decimal
	Basic     decimal.Decimal
	Auxiliary decimal.Decimal
}

// VolumeFromRows partitions per-data-type volumes by table plan. Each row
// lands in exactly one category; tables missing from the lookup are
// Analytics.
func VolumeFromRows(rows []types.UsageRow, lookup types.PlanLookup) Volume {
	var analytics, basic, auxiliary decimal.Decimal

	for _, r := range rows {
		mb := decimal.FromFloat(r.IngestionVolumeMB)
		switch lookup.PlanFor(r.DataType) {
		case types.TablePlanBasic:
			basic = basic.Add(mb)
		case types.TablePlanAuxiliary:
			auxiliary = auxiliary.Add(mb)
		default:
			analytics = analytics.Add(mb)
		}
	}

	return Volume{
		Analytics: analytics.Div(mbPerGB),
		Basic:     basic.Div(mbPerGB),
		Auxiliary: auxiliary.Div(mbPerGB),
	}
}

// VolumeFromBytes treats a whole-workspace billed byte total as Analytics
func VolumeFromBytes(totalBytes float64) Volume {
	return Volume{Analytics: decimal.FromFloat(totalBytes).Div(bytesPerGB)}
}

// Add returns the category-wise sum of v and other
func (v Volume) Add(other Volume) Volume {
	return Volume{
		Analytics: v.Analytics.Add(other.Analytics),
		Basic:     v.Basic.Add(other.Basic),
		Auxiliary: v.Auxiliary.Add(other.Auxiliary),
	}
}

// Total returns the unrounded sum of all categories
func (v Volume) Total() decimal.Decimal {
	return v.Analytics.Add(v.Basic).Add(v.Auxiliary)
}

// Totals rounds v to two places. The total is the half-up rounding of the
// exact sum. Categories are truncated and the hundredths still missing from
// the total go to the largest remainders, ties in Analytics, Basic,
// Auxiliary order, so the categories always add up to the total.
func (v Volume) Totals() types.ClassifiedTotals {
	total := v.Total().Round(2)

	parts := []struct {
		floor     decimal.Decimal
		remainder decimal.Decimal
	}{
		{floor: v.Analytics.Truncate(2)},
		{floor: v.Basic.Truncate(2)},
		{floor: v.Auxiliary.Truncate(2)},
	}
	exact := []decimal.Decimal{v.Analytics, v.Basic, v.Auxiliary}

	var floors decimal.Decimal
	for i := range parts {
		parts[i].remainder = exact[i].Sub(parts[i].floor)
		floors = floors.Add(parts[i].floor)
	}

	order := []int{0, 1, 2}
	slices.SortStableFunc(order, func(a, b int) int {
		return parts[b].remainder.Cmp(parts[a].remainder)
	})

	missing := total.Sub(floors)
	for _, i := range order {
		if missing.Cmp(hundredth) < 0 {
			break
		}
		parts[i].floor = parts[i].floor.Add(hundredth)
		missing = missing.Sub(hundredth)
	}

	return types.ClassifiedTotals{
		AnalyticsGB: parts[0].floor.Float64(),
		BasicGB:     parts[1].floor.Float64(),
		AuxiliaryGB: parts[2].floor.Float64(),
		TotalGB:     total.Float64(),
	}
}

// Classify partitions rows by plan and rounds the result for reporting
func Classify(rows []types.UsageRow, lookup types.PlanLookup) types.ClassifiedTotals {
	return VolumeFromRows(rows, lookup).Totals()
}

// ClassifyBytes converts a whole-workspace billed byte total into Analytics GB
func ClassifyBytes(totalBytes float64) types.ClassifiedTotals {
	return VolumeFromBytes(totalBytes).Totals()
}
