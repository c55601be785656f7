package errors_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsanders-rh/lactl/pkg/errors"
)

func TestStructuredError(t *testing.T) {
	t.Run("formats code message and cause", func(t *testing.T) {
		err := errors.Wrap(errors.ErrCodeQuery, "query workspace ws-1", fmt.Errorf("boom"))
		assert.Equal(t, "[QUERY] query workspace ws-1: boom", err.Error())
	})

	t.Run("formats without cause", func(t *testing.T) {
		err := errors.New(errors.ErrCodeProvisioningTimeout, "cluster did not finish provisioning")
		assert.Equal(t, "[PROVISIONING_TIMEOUT] cluster did not finish provisioning", err.Error())
	})

	t.Run("unwraps to cause", func(t *testing.T) {
		err := errors.Wrap(errors.ErrCodeLink, "link", context.Canceled)
		assert.True(t, stderrors.Is(err, context.Canceled))
	})
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"nil", nil, false},
		{"authentication", errors.New(errors.ErrCodeAuthentication, "x"), true},
		{"subscription enumeration", errors.New(errors.ErrCodeSubscriptionEnumeration, "x"), false},
		{"query", errors.New(errors.ErrCodeQuery, "x"), false},
		{"provisioning failed", errors.New(errors.ErrCodeProvisioningFailed, "x"), true},
		{"provisioning timeout", errors.New(errors.ErrCodeProvisioningTimeout, "x"), true},
		{"link", errors.New(errors.ErrCodeLink, "x"), false},
		{"wrapped link", fmt.Errorf("outer: %w", errors.New(errors.ErrCodeLink, "x")), false},
		{"plain error", fmt.Errorf("unexpected"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.fatal, errors.IsFatal(tt.err))
		})
	}
}

func TestIs(t *testing.T) {
	inner := errors.New(errors.ErrCodeProvisioningFailed, "failed")
	outer := errors.Wrap(errors.ErrCodeInternal, "run", inner)

	assert.True(t, errors.Is(outer, errors.ErrCodeProvisioningFailed))
	assert.True(t, errors.Is(outer, errors.ErrCodeInternal))
	assert.False(t, errors.Is(outer, errors.ErrCodeLink))
	assert.Equal(t, errors.ErrCodeInternal, errors.CodeOf(outer))
}
