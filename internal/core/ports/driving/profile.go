package driving

import (
	"context"

	"github.com/custodia-labs/graphgate/internal/core/domain"
)

// Notices rendered to the user. Deliberately non-technical: no internal
// error detail ever reaches a view.
const (
	// NoticeAuthorizationRequired means no usable cached token exists and
	// the user should follow the authorization URL.
	NoticeAuthorizationRequired = "authorization_required"

	// NoticeUnexpectedError covers token exchange and resource API failures.
	NoticeUnexpectedError = "unexpected_error"
)

// ProfileView is what the profile endpoint renders.
type ProfileView struct {
	Profile *domain.UserProfile `json:"profile,omitempty"`

	// AuthorizationRequired is set when the user must (re-)authorize; the
	// accompanying AuthorizationURL carries a freshly minted state.
	AuthorizationRequired bool   `json:"authorization_required,omitempty"`
	AuthorizationURL      string `json:"authorization_url,omitempty"`
	Notice                string `json:"notice,omitempty"`
}

// ProfileService serves the signed-in user's directory profile, driving
// silent token acquisition and re-authorization.
type ProfileService interface {
	// Profile fetches the user's profile with a silently acquired token.
	// When no token is available (or reauth is set, e.g. after a failed code
	// exchange) it returns a view carrying a fresh authorization URL instead.
	Profile(ctx context.Context, userID, returnURL string, reauth bool) (*ProfileView, error)

	// SignOut drops the user's token cache and any pending states.
	SignOut(ctx context.Context, userID string) error
}
