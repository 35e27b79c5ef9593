package driving

import (
	"context"
	"errors"
	"fmt"
)

// Flow errors. All are terminal for the current callback except
// ErrExchangeFailed, which redirects to the re-authentication entry point.
var (
	// ErrInsecureTransport indicates the callback arrived over a non-TLS,
	// non-loopback connection.
	ErrInsecureTransport = errors.New("insecure transport")

	// ErrMissingState indicates the callback carried no state parameter.
	ErrMissingState = errors.New("missing state")

	// ErrInvalidState indicates state decode, integrity or lookup failure.
	ErrInvalidState = errors.New("invalid state")

	// ErrExchangeFailed indicates the provider rejected the authorization
	// code or the exchange could not complete.
	ErrExchangeFailed = errors.New("code exchange failed")
)

// OAuthError is an error reported by the provider on the callback.
type OAuthError struct {
	Code        string
	Description string
}

func (e *OAuthError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("oauth error: %s - %s", e.Code, e.Description)
	}
	return fmt.Sprintf("oauth error: %s", e.Code)
}

// AuthorizeRequest starts an authorization flow for a signed-in user.
type AuthorizeRequest struct {
	// UserID is the authenticated session identity the flow is bound to.
	UserID string

	// ReturnURL is where the browser goes after a successful callback.
	ReturnURL string

	// LoginHint optionally pre-fills the provider's account picker.
	LoginHint string
}

// AuthorizeResponse carries the provider URL the browser should navigate to.
type AuthorizeResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
	ExpiresAt        string `json:"expires_at"`
}

// CallbackRequest is the provider's redirect back to the application.
type CallbackRequest struct {
	UserID           string
	Code             string
	State            string
	Error            string
	ErrorDescription string
	Resource         string

	// SecureTransport reports whether the callback arrived over TLS or a
	// loopback connection.
	SecureTransport bool
}

// CallbackResponse tells the caller where to redirect the browser.
type CallbackResponse struct {
	RedirectURL string
}

// OAuthService drives the authorization-code flow against the identity
// provider.
type OAuthService interface {
	// Authorize mints a fresh one-time state bound to the user and returns
	// the provider authorization URL embedding it.
	Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResponse, error)

	// Callback validates and consumes the state, then exchanges the
	// authorization code for tokens through the user's token cache. State is
	// consumed before the exchange, so a failed exchange never leaves a
	// replayable record behind.
	Callback(ctx context.Context, req CallbackRequest) (*CallbackResponse, error)
}
