package driven

import "time"

// SessionTokens issues and verifies the signed session tokens that carry the
// authenticated user identity into each request. The web sign-in that mints
// a session lives upstream; this port only needs the identity round trip.
type SessionTokens interface {
	// Issue creates a signed session token for a user.
	Issue(userID string, ttl time.Duration) (string, error)

	// Verify validates a session token and returns the user it was issued
	// to. Returns domain.ErrSessionInvalid (wrapped) for any malformed,
	// tampered or expired token.
	Verify(token string) (userID string, err error)
}
