package driven

import (
	"context"
	"time"
)

// ProviderToken is the provider's response to a code exchange or refresh.
type ProviderToken struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	TenantID     string
	Expiry       time.Time
}

// IdentityProvider is the external authorization-code OAuth2 endpoint.
// The client, redirect URI and target resource are fixed per deployment.
type IdentityProvider interface {
	// AuthorizationURL builds the interactive authorization request URL
	// embedding the encoded state. loginHint is optional.
	AuthorizationURL(state, loginHint string) string

	// ExchangeCode redeems an authorization code for tokens.
	ExchangeCode(ctx context.Context, code string) (*ProviderToken, error)

	// Refresh exchanges a refresh token for fresh tokens.
	// Returns domain.ErrRefreshRejected (wrapped) when the provider refuses
	// the refresh token; that condition triggers re-authorization.
	Refresh(ctx context.Context, refreshToken string) (*ProviderToken, error)

	// Resource returns the resource identifier tokens are scoped to.
	Resource() string
}
