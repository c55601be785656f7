package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tsanders-rh/lactl/internal/policy"
	"github.com/tsanders-rh/lactl/internal/profile"
	"github.com/tsanders-rh/lactl/internal/store"
)

// Error identifiers carried in ErrorResponse.Error
const (
	codeBadRequest       = "bad_request"
	codeNotFound         = "not_found"
	codeValidationFailed = "validation_failed"
	codeInternal         = "internal_error"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error   string                   `json:"error"`
	Message string                   `json:"message,omitempty"`
	Details []policy.ValidationError `json:"details,omitempty"`
}

func respondError(c echo.Context, status int, resp ErrorResponse) error {
	return c.JSON(status, &resp)
}

// ErrorBadRequest writes 400 for a malformed request
func ErrorBadRequest(c echo.Context, message string) error {
	return respondError(c, http.StatusBadRequest, ErrorResponse{Error: codeBadRequest, Message: message})
}

// ErrorNotFound writes 404
func ErrorNotFound(c echo.Context, message string) error {
	return respondError(c, http.StatusNotFound, ErrorResponse{Error: codeNotFound, Message: message})
}

// ErrorValidation writes 422 with one detail per rejected field
func ErrorValidation(c echo.Context, result *policy.ValidationResult) error {
	return respondError(c, http.StatusUnprocessableEntity, ErrorResponse{
		Error:   codeValidationFailed,
		Message: "Request validation failed",
		Details: result.Errors,
	})
}

// ErrorInternal writes 500
func ErrorInternal(c echo.Context, message string) error {
	return respondError(c, http.StatusInternalServerError, ErrorResponse{Error: codeInternal, Message: message})
}

// ErrorFromStore answers 404 for a missing record and 500 otherwise
func ErrorFromStore(c echo.Context, what string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrorNotFound(c, what+" not found")
	}
	return ErrorInternal(c, "Failed to retrieve "+what+": "+err.Error())
}

// ErrorFromProfile answers 404 for unknown and disabled profiles alike, so
// retired profiles are hidden from API clients
func ErrorFromProfile(c echo.Context, err error) error {
	if errors.Is(err, profile.ErrNotFound) || errors.Is(err, profile.ErrDisabled) {
		return ErrorNotFound(c, err.Error())
	}
	return ErrorInternal(c, "Failed to resolve profile: "+err.Error())
}
