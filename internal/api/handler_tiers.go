package api

import (
	"github.com/labstack/echo/v4"
	"github.com/tsanders-rh/lactl/internal/profile"
	"github.com/tsanders-rh/lactl/internal/tier"
	"github.com/tsanders-rh/lactl/pkg/types"
)

// TierHandler serves the commitment-tier catalog and recommendations
type TierHandler struct {
	registry *profile.Registry
}

// NewTierHandler creates a new tier handler. A nil registry serves only
// the built-in pricing.
func NewTierHandler(registry *profile.Registry) *TierHandler {
	return &TierHandler{registry: registry}
}

// TiersResponse describes the pricing in effect
type TiersResponse struct {
	Profile         string                 `json:"profile,omitempty"`
	PayAsYouGoPerGB float64                `json:"pay_as_you_go_per_gb"`
	FloorGBPerDay   float64                `json:"floor_gb_per_day"`
	Tiers           []types.CommitmentTier `json:"tiers"`
}

// RecommendRequest asks for the tier matching an average daily volume
type RecommendRequest struct {
	AvgAnalyticsGBPerDay *float64 `json:"avg_analytics_gb_per_day" validate:"required,gte=0"`
	PayAsYouGoPerGB      float64  `json:"payg_price_per_gb,omitempty" validate:"omitempty,gt=0"`
	Profile              string   `json:"profile,omitempty"`
}

// pricingFor returns the profile's pricing overrides, if any
func (h *TierHandler) pricingFor(name string) (tier.Pricing, error) {
	if name == "" || h.registry == nil {
		return tier.Pricing{}, nil
	}
	prof, err := h.registry.Get(name)
	if err != nil {
		return tier.Pricing{}, err
	}
	if prof.Pricing == nil {
		return tier.Pricing{}, nil
	}
	return *prof.Pricing, nil
}

// List handles GET /api/v1/tiers
func (h *TierHandler) List(c echo.Context) error {
	name := c.QueryParam("profile")

	pricing, err := h.pricingFor(name)
	if err != nil {
		return ErrorFromProfile(c, err)
	}

	recommender, err := tier.FromPricing(&pricing)
	if err != nil {
		return ErrorInternal(c, "Invalid pricing: "+err.Error())
	}

	config := recommender.Config()
	return SuccessOK(c, &TiersResponse{
		Profile:         name,
		PayAsYouGoPerGB: config.PayAsYouGoPerGB,
		FloorGBPerDay:   config.FloorGBPerDay,
		Tiers:           recommender.Catalog().Tiers(),
	})
}

// Recommend handles POST /api/v1/recommendations
func (h *TierHandler) Recommend(c echo.Context) error {
	var req RecommendRequest
	if err := c.Bind(&req); err != nil {
		return ErrorBadRequest(c, "Invalid request body: "+err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return ErrorValidation(c, toValidationResult(err))
	}

	pricing, err := h.pricingFor(req.Profile)
	if err != nil {
		return ErrorFromProfile(c, err)
	}
	if req.PayAsYouGoPerGB > 0 {
		pricing.PayAsYouGoPerGB = req.PayAsYouGoPerGB
	}

	recommender, err := tier.FromPricing(&pricing)
	if err != nil {
		return ErrorInternal(c, "Invalid pricing: "+err.Error())
	}

	return SuccessOK(c, recommender.Recommend(*req.AvgAnalyticsGBPerDay))
}
