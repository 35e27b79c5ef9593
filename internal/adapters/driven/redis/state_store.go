package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/graphgate/internal/core/domain"
	"github.com/custodia-labs/graphgate/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.StateStore = (*StateStore)(nil)

const (
	statePrefix     = "graphgate:state:"
	stateUserPrefix = "graphgate:state:user:"
)

// StateStore implements driven.StateStore using Redis.
// Records expire through native TTL; a per-user set indexes pending states
// so sign-out can purge them without scanning.
type StateStore struct {
	client *redis.Client
}

// NewStateStore creates a new Redis-backed state store.
func NewStateStore(client *redis.Client) *StateStore {
	return &StateStore{client: client}
}

func stateKey(userID, stateID string) string {
	return statePrefix + userID + ":" + stateID
}

// Save stores a new state record with TTL based on ExpiresAt.
func (s *StateStore) Save(ctx context.Context, record *domain.StateRecord) error {
	ttl := time.Until(record.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal state record: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, stateKey(record.UserID, record.StateID), data, ttl)
	pipe.SAdd(ctx, stateUserPrefix+record.UserID, record.StateID)
	// Keep the index a little past the last state it can reference.
	pipe.Expire(ctx, stateUserPrefix+record.UserID, ttl+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save state record: %w", err)
	}

	return nil
}

// Consume atomically retrieves and deletes the record via GETDEL, so
// concurrent callbacks with the same state cannot both succeed.
func (s *StateStore) Consume(ctx context.Context, userID, stateID string) (*domain.StateRecord, error) {
	data, err := s.client.GetDel(ctx, stateKey(userID, stateID)).Bytes()
	if err == redis.Nil {
		return nil, nil // Record not found, already consumed, or expired
	}
	if err != nil {
		return nil, fmt.Errorf("consume state record: %w", err)
	}

	s.client.SRem(ctx, stateUserPrefix+userID, stateID)

	var record domain.StateRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("unmarshal state record: %w", err)
	}

	return &record, nil
}

// PurgeUser deletes all pending states for a user.
func (s *StateStore) PurgeUser(ctx context.Context, userID string) error {
	stateIDs, err := s.client.SMembers(ctx, stateUserPrefix+userID).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("purge state records: %w", err)
	}

	pipe := s.client.Pipeline()
	for _, stateID := range stateIDs {
		pipe.Del(ctx, stateKey(userID, stateID))
	}
	pipe.Del(ctx, stateUserPrefix+userID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("purge state records: %w", err)
	}

	return nil
}

// Cleanup is a no-op: Redis TTL expires records on its own.
func (s *StateStore) Cleanup(ctx context.Context) error {
	return nil
}
