package driven

import (
	"context"

	"github.com/custodia-labs/graphgate/internal/core/domain"
)

// ProfileClient fetches the signed-in user's directory profile from the
// resource API.
type ProfileClient interface {
	// FetchProfile calls the tenant-scoped profile endpoint with a bearer
	// token. Returns domain.ErrUnauthorized (wrapped) on a 401 response so
	// callers can invalidate the cached token.
	FetchProfile(ctx context.Context, accessToken, tenantID string) (*domain.UserProfile, error)
}
