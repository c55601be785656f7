package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies a failure for programmatic handling
type ErrorCode string

const (
	ErrCodeAuthentication          ErrorCode = "AUTHENTICATION"
	ErrCodeSubscriptionEnumeration ErrorCode = "SUBSCRIPTION_ENUMERATION"
	ErrCodeQuery                   ErrorCode = "QUERY"
	ErrCodeProvisioningFailed      ErrorCode = "PROVISIONING_FAILED"
	ErrCodeProvisioningTimeout     ErrorCode = "PROVISIONING_TIMEOUT"
	ErrCodeLink                    ErrorCode = "LINK"
	ErrCodeInvalidRequest          ErrorCode = "INVALID_REQUEST"
	ErrCodeInternal                ErrorCode = "INTERNAL"
)

// Fatal reports whether an error with this code halts a run.
// Enumeration, query and link failures are per-item and recoverable.
func (c ErrorCode) Fatal() bool {
	switch c {
	case ErrCodeSubscriptionEnumeration, ErrCodeQuery, ErrCodeLink:
		return false
	default:
		return true
	}
}

// StructuredError carries a code, a message, the underlying cause and
// optional context for logging
type StructuredError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface
func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is and errors.As support
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// New creates a new StructuredError with the given code and message
func New(code ErrorCode, message string) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
	}
}

// NewWithContext creates a new StructuredError with context information
func NewWithContext(code ErrorCode, message string, context map[string]any) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Context: context,
	}
}

// Wrap wraps an existing error with a code and message
func Wrap(code ErrorCode, message string, cause error) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithContext wraps an error with additional context information
func WrapWithContext(code ErrorCode, message string, cause error, context map[string]any) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: context,
	}
}

// CodeOf returns the code of the outermost StructuredError in the chain,
// or ErrCodeInternal when there is none.
func CodeOf(err error) ErrorCode {
	var se *StructuredError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ErrCodeInternal
}

// IsFatal reports whether err must halt the run. Context cancellation is fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return CodeOf(err).Fatal()
}

// Is reports whether err carries the given code anywhere in its chain
func Is(err error, code ErrorCode) bool {
	for err != nil {
		var se *StructuredError
		if !stderrors.As(err, &se) {
			return false
		}
		if se.Code == code {
			return true
		}
		err = se.Cause
	}
	return false
}
