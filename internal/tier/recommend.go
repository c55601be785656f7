package tier

import (
	"fmt"

	"github.com/tsanders-rh/lactl/internal/decimal"
	"github.com/tsanders-rh/lactl/pkg/types"
)

// PolicyRoundDown selects the largest tier whose capacity does not exceed
// the average daily volume. Values at or above the floor always map to a
// tier when the floor equals the smallest tier.
const PolicyRoundDown = "round-down"

// Config holds recommendation parameters
type Config struct {
	FloorGBPerDay   float64
	PayAsYouGoPerGB float64
}

// DefaultConfig returns the default recommendation parameters
func DefaultConfig() *Config {
	return &Config{
		FloorGBPerDay:   100,
		PayAsYouGoPerGB: 2.30,
	}
}

// Recommender maps average daily Analytics volume to a commitment tier
type Recommender struct {
	config  *Config
	catalog *Catalog
}

// NewRecommender creates a recommender. Nil arguments select the defaults.
func NewRecommender(config *Config, catalog *Catalog) *Recommender {
	if config == nil {
		config = DefaultConfig()
	}
	if catalog == nil {
		catalog = DefaultCatalog()
	}

	return &Recommender{
		config:  config,
		catalog: catalog,
	}
}

// Catalog returns the catalog in use
func (r *Recommender) Catalog() *Catalog {
	return r.catalog
}

// Config returns the parameters in use
func (r *Recommender) Config() Config {
	return *r.config
}

// Recommend returns the tier for an average daily Analytics volume in GB.
// Below the floor no tier is returned and pay-as-you-go is recommended.
func (r *Recommender) Recommend(avgAnalyticsGBPerDay float64) types.Recommendation {
	avg := decimal.FromFloat(avgAnalyticsGBPerDay)
	payg := decimal.FromFloat(r.config.PayAsYouGoPerGB).
		Mul(avg).
		Mul(decimal.FromInt(DaysPerMonth)).
		Round(2)

	rec := types.Recommendation{
		Policy:               PolicyRoundDown,
		AvgAnalyticsGBPerDay: avg.Round(2).Float64(),
		PayAsYouGoMonthlyUSD: payg.Float64(),
	}

	if avgAnalyticsGBPerDay < r.config.FloorGBPerDay {
		rec.Reason = fmt.Sprintf("pay-as-you-go recommended: %.2f GB/day is below the %.0f GB/day floor",
			avgAnalyticsGBPerDay, r.config.FloorGBPerDay)
		return rec
	}

	t, ok := r.catalog.floor(avgAnalyticsGBPerDay)
	if !ok {
		rec.Reason = fmt.Sprintf("pay-as-you-go recommended: %.2f GB/day is below the smallest %d GB/day tier",
			avgAnalyticsGBPerDay, r.catalog.Smallest().CapacityGBPerDay)
		return rec
	}

	savings := payg.Sub(decimal.FromFloat(t.MonthlyCostUSD))
	rec.Tier = &t
	rec.MonthlySavingsUSD = savings.Round(2).Float64()
	rec.SavingsPercent = savings.Div(payg).Mul(decimal.FromInt(100)).Round(2).Float64()
	rec.Reason = fmt.Sprintf("%d GB/day commitment tier", t.CapacityGBPerDay)

	return rec
}
