package policy

import (
	"fmt"
	"strings"

	"github.com/tsanders-rh/lactl/internal/discovery"
	"github.com/tsanders-rh/lactl/internal/profile"
	"github.com/tsanders-rh/lactl/internal/provision"
	lerrors "github.com/tsanders-rh/lactl/pkg/errors"
	"github.com/tsanders-rh/lactl/pkg/types"
)

// ValidationError rejects one request field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationResult collects every rejected field of a request. When Valid,
// the resolved fields describe exactly what a run will do.
type ValidationResult struct {
	Valid      bool
	Errors     []ValidationError
	MergedTags map[string]string

	Profile   *profile.Profile
	Filter    discovery.Filter
	Spec      types.ClusterSpec
	Provision *provision.Config
	ClusterID string
}

// AddError rejects field
func (r *ValidationResult) AddError(field, message string) {
	r.Valid = false
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message})
}

// Summary joins every rejection into one line
func (r *ValidationResult) Summary() string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Err returns nil for a valid request, otherwise an INVALID_REQUEST error
// naming every rejected field
func (r *ValidationResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	fields := make(map[string]any, len(r.Errors))
	for _, e := range r.Errors {
		fields[e.Field] = e.Message
	}
	msg := fmt.Sprintf("request rejected (%d problems): %s", len(r.Errors), r.Summary())
	if len(r.Errors) == 1 {
		msg = "request rejected: " + r.Summary()
	}
	return lerrors.NewWithContext(lerrors.ErrCodeInvalidRequest, msg, fields)
}
