package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/graphgate/internal/core/domain"
	"github.com/custodia-labs/graphgate/internal/core/ports/driven"
)

// TokenClient performs token acquisition against the identity provider,
// firing the cache hooks around every operation so the in-memory and durable
// copies stay coherent.
type TokenClient struct {
	provider driven.IdentityProvider
}

// NewTokenClient creates a token client for the given provider.
func NewTokenClient(provider driven.IdentityProvider) *TokenClient {
	return &TokenClient{provider: provider}
}

// AcquireSilent returns a usable token set from the cache, refreshing
// through the provider when the access token is stale. It returns
// domain.ErrNoCachedToken when the cache is empty or the refresh token was
// rejected - the signal to start a fresh interactive authorization.
func (tc *TokenClient) AcquireSilent(ctx context.Context, cache driven.TokenCache) (*domain.TokenSet, error) {
	if err := cache.OnBeforeAccess(ctx); err != nil {
		return nil, err
	}

	tokens := cache.Tokens()
	if tokens == nil || (tokens.AccessToken == "" && tokens.RefreshToken == "") {
		if err := cache.OnAfterAccess(ctx); err != nil {
			return nil, err
		}
		return nil, domain.ErrNoCachedToken
	}

	if !tokens.NeedsRefresh() {
		if err := cache.OnAfterAccess(ctx); err != nil {
			return nil, err
		}
		return tokens, nil
	}

	if tokens.RefreshToken == "" {
		if err := cache.OnAfterAccess(ctx); err != nil {
			return nil, err
		}
		return nil, domain.ErrNoCachedToken
	}

	if err := cache.OnBeforeWrite(ctx); err != nil {
		return nil, err
	}

	refreshed, err := tc.provider.Refresh(ctx, tokens.RefreshToken)
	if err != nil {
		_ = cache.OnAfterAccess(ctx)
		if errors.Is(err, domain.ErrRefreshRejected) {
			return nil, domain.ErrNoCachedToken
		}
		return nil, fmt.Errorf("refresh token: %w", err)
	}

	tokens = tc.tokenSet(refreshed)
	cache.SetTokens(tokens)
	if err := cache.OnAfterAccess(ctx); err != nil {
		return nil, err
	}

	return tokens, nil
}

// AcquireByCode redeems an authorization code and writes the resulting
// tokens into the user's cache.
func (tc *TokenClient) AcquireByCode(ctx context.Context, cache driven.TokenCache, code string) (*domain.TokenSet, error) {
	if err := cache.OnBeforeAccess(ctx); err != nil {
		return nil, err
	}
	if err := cache.OnBeforeWrite(ctx); err != nil {
		return nil, err
	}

	granted, err := tc.provider.ExchangeCode(ctx, code)
	if err != nil {
		_ = cache.OnAfterAccess(ctx)
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	tokens := tc.tokenSet(granted)
	cache.SetTokens(tokens)
	if err := cache.OnAfterAccess(ctx); err != nil {
		return nil, err
	}

	return tokens, nil
}

func (tc *TokenClient) tokenSet(granted *driven.ProviderToken) *domain.TokenSet {
	return &domain.TokenSet{
		AccessToken:  granted.AccessToken,
		RefreshToken: granted.RefreshToken,
		TokenType:    granted.TokenType,
		TenantID:     granted.TenantID,
		Resource:     tc.provider.Resource(),
		Expiry:       granted.Expiry,
	}
}
