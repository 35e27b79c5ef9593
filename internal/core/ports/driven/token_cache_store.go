package driven

import (
	"context"

	"github.com/custodia-labs/graphgate/internal/core/domain"
)

// TokenCacheStore is the durable store of per-user token cache entries.
// Entries are whole-record upserts: last writer wins, no partial mutation.
type TokenCacheStore interface {
	// Get retrieves the entry for a user.
	// Returns nil, nil if no entry exists.
	Get(ctx context.Context, userID string) (*domain.TokenCacheEntry, error)

	// Put upserts the entry keyed by UserID.
	Put(ctx context.Context, entry *domain.TokenCacheEntry) error

	// Delete removes the entry for a user.
	// Deleting a missing entry is not an error.
	Delete(ctx context.Context, userID string) error
}
