package api

import (
	"github.com/labstack/echo/v4"

	"github.com/tsanders-rh/lactl/internal/profile"
)

// ProfileHandler exposes the enabled cluster profiles read-only
type ProfileHandler struct {
	registry *profile.Registry
}

// NewProfileHandler returns a handler over registry, which may be nil when
// the server runs without profiles
func NewProfileHandler(registry *profile.Registry) *ProfileHandler {
	return &ProfileHandler{registry: registry}
}

// List handles GET /api/v1/profiles[?region=]
func (h *ProfileHandler) List(c echo.Context) error {
	profiles := []*profile.Profile{}
	if h.registry == nil {
		return SuccessOK(c, profiles)
	}

	if region := c.QueryParam("region"); region != "" {
		profiles = append(profiles, h.registry.ListByRegion(region)...)
	} else {
		profiles = append(profiles, h.registry.List()...)
	}
	return SuccessOK(c, profiles)
}

// Get handles GET /api/v1/profiles/:name
func (h *ProfileHandler) Get(c echo.Context) error {
	name := c.Param("name")
	if h.registry == nil {
		return ErrorFromProfile(c, profile.ErrNotFound)
	}

	prof, err := h.registry.Get(name)
	if err != nil {
		return ErrorFromProfile(c, err)
	}
	return SuccessOK(c, prof)
}
