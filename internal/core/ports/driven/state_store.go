package driven

import (
	"context"

	"github.com/custodia-labs/graphgate/internal/core/domain"
)

// StateStore manages pending authorization states for CSRF protection.
// Records are single-use and expire after a short period.
type StateStore interface {
	// Save stores a new state record.
	Save(ctx context.Context, record *domain.StateRecord) error

	// Consume atomically retrieves and deletes the record keyed by
	// (userID, stateID). The composite key means one user's state can never
	// validate against another user's session.
	// Returns nil, nil if the record doesn't exist or has expired.
	Consume(ctx context.Context, userID, stateID string) (*domain.StateRecord, error)

	// PurgeUser deletes all pending states for a user (sign-out).
	PurgeUser(ctx context.Context, userID string) error

	// Cleanup removes expired records.
	// Should be called periodically to clean up abandoned flows.
	Cleanup(ctx context.Context) error
}
