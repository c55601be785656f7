package tier

import (
	"fmt"

	"github.com/tsanders-rh/lactl/pkg/types"
)

// Pricing overrides the built-in prices, typically from a profile
type Pricing struct {
	PayAsYouGoPerGB float64                `yaml:"payAsYouGoPerGB" json:"pay_as_you_go_per_gb" validate:"omitempty,gt=0"`
	FloorGBPerDay   float64                `yaml:"floorGBPerDay" json:"floor_gb_per_day" validate:"omitempty,gt=0"`
	Tiers           []types.CommitmentTier `yaml:"tiers" json:"tiers,omitempty" validate:"omitempty,dive"`
}

// FromPricing builds a recommender from overrides. Zero fields keep defaults.
func FromPricing(p *Pricing) (*Recommender, error) {
	config := DefaultConfig()
	catalog := DefaultCatalog()

	if p == nil {
		return NewRecommender(config, catalog), nil
	}

	if p.PayAsYouGoPerGB > 0 {
		config.PayAsYouGoPerGB = p.PayAsYouGoPerGB
	}
	if p.FloorGBPerDay > 0 {
		config.FloorGBPerDay = p.FloorGBPerDay
	}
	if len(p.Tiers) > 0 {
		c, err := NewCatalog(p.Tiers)
		if err != nil {
			return nil, fmt.Errorf("build tier catalog: %w", err)
		}
		catalog = c
	}

	return NewRecommender(config, catalog), nil
}
