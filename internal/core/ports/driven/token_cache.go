package driven

import (
	"context"

	"github.com/custodia-labs/graphgate/internal/core/domain"
)

// TokenCache is a per-user in-memory token cache kept coherent with a
// durable store. The On* hooks are fired by whatever client performs token
// acquisition, around every cache operation:
//
//   - OnBeforeAccess loads the durable copy, or reloads it when the store
//     holds a newer LastWrite than the in-memory copy (another instance may
//     have refreshed the token).
//   - OnBeforeWrite runs before the cache content is mutated. The base
//     behavior is a no-op; pessimistic implementations acquire a per-user
//     lock here.
//   - OnAfterAccess persists the in-memory copy if it was mutated since the
//     last access, and releases any lock taken by OnBeforeWrite.
type TokenCache interface {
	// UserID returns the user this cache is bound to.
	UserID() string

	OnBeforeAccess(ctx context.Context) error
	OnBeforeWrite(ctx context.Context) error
	OnAfterAccess(ctx context.Context) error

	// Tokens returns the in-memory token set, or nil when empty.
	Tokens() *domain.TokenSet

	// SetTokens replaces the in-memory token set and marks the cache changed.
	SetTokens(tokens *domain.TokenSet)

	// Clear wipes the in-memory copy and deletes the durable entry.
	// Used when the resource API reports the token unauthorized.
	Clear(ctx context.Context) error
}
