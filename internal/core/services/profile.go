package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/custodia-labs/graphgate/internal/core/domain"
	"github.com/custodia-labs/graphgate/internal/core/ports/driven"
	"github.com/custodia-labs/graphgate/internal/core/ports/driving"
)

// Ensure profileService implements ProfileService
var _ driving.ProfileService = (*profileService)(nil)

// ProfileServiceConfig holds dependencies for the profile service.
type ProfileServiceConfig struct {
	// OAuth mints authorization URLs for the re-auth paths.
	OAuth driving.OAuthService

	// Tokens performs silent acquisition.
	Tokens *TokenClient

	// Caches builds per-user token caches.
	Caches CacheFactory

	// Directory fetches the user profile from the resource API.
	Directory driven.ProfileClient

	// States is purged on sign-out.
	States driven.StateStore
}

type profileService struct {
	oauth     driving.OAuthService
	tokens    *TokenClient
	caches    CacheFactory
	directory driven.ProfileClient
	states    driven.StateStore
}

// NewProfileService creates the profile service.
func NewProfileService(cfg ProfileServiceConfig) driving.ProfileService {
	return &profileService{
		oauth:     cfg.OAuth,
		tokens:    cfg.Tokens,
		caches:    cfg.Caches,
		directory: cfg.Directory,
		states:    cfg.States,
	}
}

// Profile serves the user's directory profile. With no usable cached token
// it returns an authorization-required view carrying a freshly minted
// provider URL; a 401 from the resource API drops the cached tokens and does
// the same.
func (s *profileService) Profile(ctx context.Context, userID, returnURL string, reauth bool) (*driving.ProfileView, error) {
	if reauth {
		// A failed code exchange redirected here; offer a fresh attempt.
		return s.reauthView(ctx, userID, returnURL, driving.NoticeUnexpectedError)
	}

	cache := s.caches(userID)
	tokens, err := s.tokens.AcquireSilent(ctx, cache)
	if errors.Is(err, domain.ErrNoCachedToken) {
		return s.reauthView(ctx, userID, returnURL, driving.NoticeAuthorizationRequired)
	}
	if err != nil {
		return nil, fmt.Errorf("acquire token: %w", err)
	}

	profile, err := s.directory.FetchProfile(ctx, tokens.AccessToken, tokens.TenantID)
	if errors.Is(err, domain.ErrUnauthorized) {
		// Token is dead beyond refresh; drop it and have the user re-authorize.
		if clearErr := cache.Clear(ctx); clearErr != nil {
			slog.Warn("clear token cache after 401", "error", clearErr)
		}
		return s.reauthView(ctx, userID, returnURL, driving.NoticeUnexpectedError)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	return &driving.ProfileView{Profile: profile}, nil
}

// SignOut drops the user's token cache and any pending authorization states.
func (s *profileService) SignOut(ctx context.Context, userID string) error {
	if err := s.caches(userID).Clear(ctx); err != nil {
		return err
	}
	if err := s.states.PurgeUser(ctx, userID); err != nil {
		return fmt.Errorf("purge states: %w", err)
	}
	return nil
}

func (s *profileService) reauthView(ctx context.Context, userID, returnURL, notice string) (*driving.ProfileView, error) {
	resp, err := s.oauth.Authorize(ctx, driving.AuthorizeRequest{
		UserID:    userID,
		ReturnURL: returnURL,
	})
	if err != nil {
		return nil, fmt.Errorf("build authorization url: %w", err)
	}

	return &driving.ProfileView{
		AuthorizationRequired: true,
		AuthorizationURL:      resp.AuthorizationURL,
		Notice:                notice,
	}, nil
}
