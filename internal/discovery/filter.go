package discovery

import (
	"strings"

	lerrors "github.com/tsanders-rh/lactl/pkg/errors"
	"github.com/tsanders-rh/lactl/pkg/types"
)

// Filter selects workspaces by region and an optional exact tag match
type Filter struct {
	Region   string
	TagKey   string
	TagValue string
}

// HasTag reports whether a tag predicate is set
func (f Filter) HasTag() bool {
	return f.TagKey != ""
}

// Validate checks the filter. Tag key and value must be given together.
func (f Filter) Validate(requireRegion bool) error {
	if requireRegion && NormalizeRegion(f.Region) == "" {
		return lerrors.New(lerrors.ErrCodeInvalidRequest, "region is required")
	}
	if (f.TagKey == "") != (f.TagValue == "") {
		return lerrors.New(lerrors.ErrCodeInvalidRequest, "tag key and tag value must be set together")
	}
	return nil
}

// Matches reports whether ws satisfies the filter. Region comparison ignores
// case and spaces ("East US" equals "eastus"); tags match exactly.
func (f Filter) Matches(ws types.Workspace) bool {
	if region := NormalizeRegion(f.Region); region != "" && NormalizeRegion(ws.Region) != region {
		return false
	}
	if f.HasTag() {
		v, ok := ws.Tags[f.TagKey]
		if !ok || v != f.TagValue {
			return false
		}
	}
	return true
}

// NormalizeRegion maps display and programmatic location names to one form
func NormalizeRegion(region string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(region), " ", ""))
}
