package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/custodia-labs/graphgate/internal/core/domain"
	"github.com/custodia-labs/graphgate/internal/core/ports/driven"
)

// Ensure StateStore implements the interface.
var _ driven.StateStore = (*StateStore)(nil)

// StateStore implements driven.StateStore using PostgreSQL.
type StateStore struct {
	db *DB
}

// NewStateStore creates a new PostgreSQL-backed state store.
func NewStateStore(db *DB) *StateStore {
	return &StateStore{db: db}
}

// Save stores a new state record.
func (s *StateStore) Save(ctx context.Context, record *domain.StateRecord) error {
	query := `
		INSERT INTO user_state_values (user_id, state_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.db.ExecContext(ctx, query,
		record.UserID,
		record.StateID,
		record.CreatedAt,
		record.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("save state record: %w", err)
	}

	return nil
}

// Consume atomically retrieves and deletes the record for (userID, stateID).
// Uses DELETE ... RETURNING so two concurrent callbacks presenting the same
// state can never both succeed.
func (s *StateStore) Consume(ctx context.Context, userID, stateID string) (*domain.StateRecord, error) {
	query := `
		DELETE FROM user_state_values
		WHERE user_id = $1 AND state_id = $2 AND expires_at > NOW()
		RETURNING user_id, state_id, created_at, expires_at
	`

	var record domain.StateRecord
	err := s.db.QueryRowContext(ctx, query, userID, stateID).Scan(
		&record.UserID,
		&record.StateID,
		&record.CreatedAt,
		&record.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil // Record not found, already consumed, or expired
	}
	if err != nil {
		return nil, fmt.Errorf("consume state record: %w", err)
	}

	return &record, nil
}

// PurgeUser deletes all pending states for a user.
func (s *StateStore) PurgeUser(ctx context.Context, userID string) error {
	query := `DELETE FROM user_state_values WHERE user_id = $1`

	_, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("purge state records: %w", err)
	}

	return nil
}

// Cleanup removes expired records.
func (s *StateStore) Cleanup(ctx context.Context) error {
	query := `DELETE FROM user_state_values WHERE expires_at < NOW()`

	_, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("cleanup state records: %w", err)
	}

	return nil
}
