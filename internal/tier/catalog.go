package tier

import (
	"errors"
	"fmt"
	"sort"

	"github.com/tsanders-rh/lactl/internal/decimal"
	"github.com/tsanders-rh/lactl/pkg/types"
)

// DaysPerMonth is the month length used for every monthly figure
const DaysPerMonth = 30

// ErrInvalidCatalog is returned when a tier catalog is not strictly increasing
var ErrInvalidCatalog = errors.New("invalid tier catalog")

// defaultDailyCosts is a list-price snapshot in USD per day
var defaultDailyCosts = []struct {
	capacity int
	daily    float64
}{
	{100, 196},
	{200, 368},
	{300, 540},
	{400, 704},
	{500, 865},
	{1000, 1700},
	{2000, 3320},
	{5000, 8050},
	{10000, 15500},
	{25000, 37500},
	{50000, 73500},
}

// Catalog is an ordered set of commitment tiers, ascending by capacity
type Catalog struct {
	tiers []types.CommitmentTier
}

// DefaultCatalog returns the built-in tier catalog
func DefaultCatalog() *Catalog {
	tiers := make([]types.CommitmentTier, 0, len(defaultDailyCosts))
	for _, d := range defaultDailyCosts {
		tiers = append(tiers, types.CommitmentTier{
			CapacityGBPerDay: d.capacity,
			DailyCostUSD:     d.daily,
		})
	}

	c, err := NewCatalog(tiers)
	if err != nil {
		panic(fmt.Sprintf("built-in tier catalog: %v", err))
	}
	return c
}

// NewCatalog validates and orders a tier catalog. Monthly costs left at zero
// are derived from the daily cost.
func NewCatalog(tiers []types.CommitmentTier) (*Catalog, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("%w: no tiers", ErrInvalidCatalog)
	}

	sorted := make([]types.CommitmentTier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CapacityGBPerDay < sorted[j].CapacityGBPerDay
	})

	for i := range sorted {
		t := &sorted[i]
		if t.CapacityGBPerDay <= 0 {
			return nil, fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidCatalog, t.CapacityGBPerDay)
		}
		if t.DailyCostUSD <= 0 {
			return nil, fmt.Errorf("%w: tier %d has non-positive daily cost", ErrInvalidCatalog, t.CapacityGBPerDay)
		}
		if t.MonthlyCostUSD == 0 {
			t.MonthlyCostUSD = decimal.FromFloat(t.DailyCostUSD).
				Mul(decimal.FromInt(DaysPerMonth)).
				Round(2).
				Float64()
		}

		if i == 0 {
			continue
		}
		prev := sorted[i-1]
		if t.CapacityGBPerDay == prev.CapacityGBPerDay {
			return nil, fmt.Errorf("%w: duplicate capacity %d", ErrInvalidCatalog, t.CapacityGBPerDay)
		}
		if t.DailyCostUSD <= prev.DailyCostUSD || t.MonthlyCostUSD <= prev.MonthlyCostUSD {
			return nil, fmt.Errorf("%w: cost of tier %d does not exceed tier %d",
				ErrInvalidCatalog, t.CapacityGBPerDay, prev.CapacityGBPerDay)
		}
	}

	return &Catalog{tiers: sorted}, nil
}

// Tiers returns a copy of the tiers in ascending order
func (c *Catalog) Tiers() []types.CommitmentTier {
	out := make([]types.CommitmentTier, len(c.tiers))
	copy(out, c.tiers)
	return out
}

// Lookup returns the tier with exactly the given capacity
func (c *Catalog) Lookup(capacityGBPerDay int) (types.CommitmentTier, bool) {
	for _, t := range c.tiers {
		if t.CapacityGBPerDay == capacityGBPerDay {
			return t, true
		}
	}
	return types.CommitmentTier{}, false
}

// Capacities returns the tier capacities in ascending order
func (c *Catalog) Capacities() []int {
	out := make([]int, len(c.tiers))
	for i, t := range c.tiers {
		out[i] = t.CapacityGBPerDay
	}
	return out
}

// Smallest returns the lowest-capacity tier
func (c *Catalog) Smallest() types.CommitmentTier {
	return c.tiers[0]
}

// floor returns the largest tier whose capacity does not exceed gbPerDay
func (c *Catalog) floor(gbPerDay float64) (types.CommitmentTier, bool) {
	i := sort.Search(len(c.tiers), func(i int) bool {
		return float64(c.tiers[i].CapacityGBPerDay) > gbPerDay
	})
	if i == 0 {
		return types.CommitmentTier{}, false
	}
	return c.tiers[i-1], true
}
