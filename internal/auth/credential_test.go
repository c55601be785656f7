package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsanders-rh/lactl/internal/auth"
	lerrors "github.com/tsanders-rh/lactl/pkg/errors"
)

type staticCredential struct {
	token  string
	err    error
	scopes []string
}

func (c *staticCredential) GetToken(_ context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	c.scopes = opts.Scopes
	if c.err != nil {
		return azcore.AccessToken{}, c.err
	}
	return azcore.AccessToken{Token: c.token, ExpiresOn: time.Now().Add(time.Hour)}, nil
}

func signedToken(t *testing.T, tenant, upn string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
		TenantID: tenant,
		ObjectID: "oid-1",
		UPN:      upn,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	s, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("returns session with claims", func(t *testing.T) {
		cred := &staticCredential{token: signedToken(t, "tenant-1", "ops@example.com")}

		session, err := auth.Authenticate(ctx, cred, "")
		require.NoError(t, err)
		require.NotNil(t, session.Claims)
		assert.Equal(t, "tenant-1", session.Claims.TenantID)
		assert.Equal(t, "ops@example.com", session.Claims.Principal())
		assert.Equal(t, []string{auth.ManagementScope}, cred.scopes)
	})

	t.Run("token failure is an authentication error", func(t *testing.T) {
		cred := &staticCredential{err: errors.New("no credentials available")}

		_, err := auth.Authenticate(ctx, cred, "")
		require.Error(t, err)
		assert.True(t, lerrors.Is(err, lerrors.ErrCodeAuthentication))
		assert.True(t, lerrors.IsFatal(err))
	})

	t.Run("tenant mismatch is rejected", func(t *testing.T) {
		cred := &staticCredential{token: signedToken(t, "tenant-1", "")}

		_, err := auth.Authenticate(ctx, cred, "tenant-2")
		require.Error(t, err)
		assert.True(t, lerrors.Is(err, lerrors.ErrCodeAuthentication))
	})

	t.Run("opaque token is accepted without tenant check", func(t *testing.T) {
		cred := &staticCredential{token: "opaque"}

		session, err := auth.Authenticate(ctx, cred, "")
		require.NoError(t, err)
		assert.Nil(t, session.Claims)
	})
}

func TestClaims_Principal(t *testing.T) {
	assert.Equal(t, "app-1", (&auth.Claims{AppID: "app-1", ObjectID: "oid"}).Principal())
	assert.Equal(t, "oid", (&auth.Claims{ObjectID: "oid"}).Principal())
}
