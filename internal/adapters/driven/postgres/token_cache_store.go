package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/custodia-labs/graphgate/internal/core/domain"
	"github.com/custodia-labs/graphgate/internal/core/ports/driven"
)

// Ensure TokenCacheStore implements the interface.
var _ driven.TokenCacheStore = (*TokenCacheStore)(nil)

// TokenCacheStore implements driven.TokenCacheStore using PostgreSQL.
// Cache blobs are encrypted at rest.
type TokenCacheStore struct {
	db        *DB
	encryptor *CacheEncryptor
}

// NewTokenCacheStore creates a new PostgreSQL-backed token cache store.
func NewTokenCacheStore(db *DB, encryptor *CacheEncryptor) *TokenCacheStore {
	return &TokenCacheStore{
		db:        db,
		encryptor: encryptor,
	}
}

// Get retrieves the entry for a user with the cache blob decrypted.
// Returns nil, nil if no entry exists.
func (s *TokenCacheStore) Get(ctx context.Context, userID string) (*domain.TokenCacheEntry, error) {
	query := `
		SELECT user_id, cache_bits, last_write
		FROM token_cache_entries
		WHERE user_id = $1
	`

	var entry domain.TokenCacheEntry
	var blob []byte
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&entry.UserID,
		&blob,
		&entry.LastWrite,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get token cache entry: %w", err)
	}

	entry.CacheBits, err = s.encryptor.Decrypt(blob)
	if err != nil {
		return nil, fmt.Errorf("decrypt token cache entry: %w", err)
	}

	return &entry, nil
}

// Put upserts the entry keyed by UserID. The whole record is replaced.
func (s *TokenCacheStore) Put(ctx context.Context, entry *domain.TokenCacheEntry) error {
	blob, err := s.encryptor.Encrypt(entry.CacheBits)
	if err != nil {
		return fmt.Errorf("encrypt token cache entry: %w", err)
	}

	query := `
		INSERT INTO token_cache_entries (user_id, cache_bits, last_write)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			cache_bits = EXCLUDED.cache_bits,
			last_write = EXCLUDED.last_write
	`

	_, err = s.db.ExecContext(ctx, query, entry.UserID, blob, entry.LastWrite)
	if err != nil {
		return fmt.Errorf("put token cache entry: %w", err)
	}

	return nil
}

// Delete removes the entry for a user.
func (s *TokenCacheStore) Delete(ctx context.Context, userID string) error {
	query := `DELETE FROM token_cache_entries WHERE user_id = $1`

	_, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("delete token cache entry: %w", err)
	}

	return nil
}
