package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/golang-jwt/jwt/v5"
	lerrors "github.com/tsanders-rh/lactl/pkg/errors"
)

// ManagementScope is the token scope for Azure Resource Manager
const ManagementScope = "https://management.azure.com/.default"

// Claims are the identity claims carried by an Azure access token
type Claims struct {
	TenantID string `json:"tid"`
	ObjectID string `json:"oid"`
	UPN      string `json:"upn,omitempty"`
	AppID    string `json:"appid,omitempty"`
	jwt.RegisteredClaims
}

// Principal returns the most readable identity in the claims
func (c *Claims) Principal() string {
	switch {
	case c.UPN != "":
		return c.UPN
	case c.AppID != "":
		return c.AppID
	default:
		return c.ObjectID
	}
}

// Session is a credential that has been proven to yield a token
type Session struct {
	Credential azcore.TokenCredential
	Claims     *Claims
	ExpiresOn  time.Time
}

// NewDefaultCredential builds the default Azure credential chain
// (environment, workload identity, managed identity, Azure CLI)
func NewDefaultCredential(tenantID string) (azcore.TokenCredential, error) {
	cred, err := azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{
		TenantID: tenantID,
	})
	if err != nil {
		return nil, lerrors.Wrap(lerrors.ErrCodeAuthentication, "create Azure credential", err)
	}
	return cred, nil
}

// Authenticate acquires a token once before any remote call so that
// credential problems fail the run up front. When tenantID is set the
// token must have been issued by that tenant.
func Authenticate(ctx context.Context, cred azcore.TokenCredential, tenantID string) (*Session, error) {
	token, err := cred.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{ManagementScope},
	})
	if err != nil {
		return nil, lerrors.Wrap(lerrors.ErrCodeAuthentication, "acquire access token", err)
	}

	session := &Session{
		Credential: cred,
		ExpiresOn:  token.ExpiresOn,
	}

	claims, err := ParseClaims(token.Token)
	if err != nil {
		// Opaque tokens carry no readable claims; they are still usable.
		if tenantID != "" {
			return nil, lerrors.Wrap(lerrors.ErrCodeAuthentication, "verify token tenant", err)
		}
		return session, nil
	}
	session.Claims = claims

	if tenantID != "" && claims.TenantID != tenantID {
		return nil, lerrors.NewWithContext(lerrors.ErrCodeAuthentication,
			fmt.Sprintf("token issued by tenant %s, expected %s", claims.TenantID, tenantID),
			map[string]any{"tenant": claims.TenantID})
	}

	return session, nil
}

// ParseClaims reads the claims of an access token without verifying its
// signature. The token is only inspected, never trusted for authorization.
func ParseClaims(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("parse token claims: %w", err)
	}
	return claims, nil
}
