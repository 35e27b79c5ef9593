package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/graphgate/internal/core/ports/driven"
	"github.com/custodia-labs/graphgate/internal/core/ports/driving"
)

// Ensure oauthService implements OAuthService
var _ driving.OAuthService = (*oauthService)(nil)

// CacheFactory builds the token cache bound to a user. Each request gets its
// own instance; coherence across instances comes from the cache hooks, not
// from sharing the in-memory copy.
type CacheFactory func(userID string) driven.TokenCache

// OAuthServiceConfig holds dependencies for the OAuth flow service.
type OAuthServiceConfig struct {
	// Codec mints and validates the one-time state values.
	Codec *StateCodec

	// Tokens performs provider token acquisition through the cache hooks.
	Tokens *TokenClient

	// Provider builds authorization URLs.
	Provider driven.IdentityProvider

	// Caches builds per-user token caches.
	Caches CacheFactory
}

type oauthService struct {
	codec    *StateCodec
	tokens   *TokenClient
	provider driven.IdentityProvider
	caches   CacheFactory
}

// NewOAuthService creates the authorization flow service.
func NewOAuthService(cfg OAuthServiceConfig) driving.OAuthService {
	return &oauthService{
		codec:    cfg.Codec,
		tokens:   cfg.Tokens,
		provider: cfg.Provider,
		caches:   cfg.Caches,
	}
}

// Authorize starts an interactive authorization flow: mint a fresh state
// bound to the user and build the provider URL embedding it.
func (s *oauthService) Authorize(ctx context.Context, req driving.AuthorizeRequest) (*driving.AuthorizeResponse, error) {
	state, expiresAt, err := s.codec.Mint(ctx, req.UserID, req.ReturnURL)
	if err != nil {
		return nil, fmt.Errorf("mint state: %w", err)
	}

	return &driving.AuthorizeResponse{
		AuthorizationURL: s.provider.AuthorizationURL(state, req.LoginHint),
		State:            state,
		ExpiresAt:        expiresAt.Format(time.RFC3339),
	}, nil
}

// Callback handles the provider's redirect. Checks run in strict order:
// transport, provider error, state presence, state validity - and the state
// is consumed before any exchange is attempted.
func (s *oauthService) Callback(ctx context.Context, req driving.CallbackRequest) (*driving.CallbackResponse, error) {
	if !req.SecureTransport {
		return nil, driving.ErrInsecureTransport
	}

	if req.Error != "" {
		return nil, &driving.OAuthError{
			Code:        req.Error,
			Description: req.ErrorDescription,
		}
	}

	if req.State == "" {
		return nil, driving.ErrMissingState
	}

	returnURL, ok := s.codec.Validate(ctx, req.State, req.UserID)
	if !ok {
		return nil, driving.ErrInvalidState
	}

	cache := s.caches(req.UserID)
	if _, err := s.tokens.AcquireByCode(ctx, cache, req.Code); err != nil {
		return nil, fmt.Errorf("%w: %v", driving.ErrExchangeFailed, err)
	}

	return &driving.CallbackResponse{RedirectURL: returnURL}, nil
}
