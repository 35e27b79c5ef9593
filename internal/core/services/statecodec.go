package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/graphgate/internal/core/domain"
	"github.com/custodia-labs/graphgate/internal/core/ports/driven"
)

// DefaultStateTTL is how long a minted state stays valid.
const DefaultStateTTL = 10 * time.Minute

// StateCodec mints and validates the one-time, user-bound state values that
// ride through the provider's redirect. A minted value is an opaque sealed
// envelope carrying (stateID, returnURL); the stateID is also persisted so
// validation can enforce consume-once semantics.
type StateCodec struct {
	states driven.StateStore
	sealer *stateSealer
	ttl    time.Duration
}

// NewStateCodec creates a codec sealing under the given 32-byte key.
func NewStateCodec(key []byte, states driven.StateStore) (*StateCodec, error) {
	sealer, err := newStateSealer(key)
	if err != nil {
		return nil, err
	}
	return &StateCodec{
		states: states,
		sealer: sealer,
		ttl:    DefaultStateTTL,
	}, nil
}

// NewStateCodecWithTTL creates a codec with a custom state lifetime.
func NewStateCodecWithTTL(key []byte, states driven.StateStore, ttl time.Duration) (*StateCodec, error) {
	c, err := NewStateCodec(key, states)
	if err != nil {
		return nil, err
	}
	c.ttl = ttl
	return c, nil
}

// Mint generates a fresh state bound to the user, persists its record, and
// returns the sealed envelope to embed in the authorization URL.
func (c *StateCodec) Mint(ctx context.Context, userID, returnURL string) (string, time.Time, error) {
	now := time.Now()
	record := &domain.StateRecord{
		UserID:    userID,
		StateID:   uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}

	if err := c.states.Save(ctx, record); err != nil {
		return "", time.Time{}, err
	}

	encoded, err := c.sealer.Seal(&statePayload{
		StateID:   record.StateID,
		ReturnURL: returnURL,
	}, userID)
	if err != nil {
		return "", time.Time{}, err
	}

	return encoded, record.ExpiresAt, nil
}

// Validate authenticates an envelope for the user and consumes the matching
// state record. Returns the embedded return URL and true exactly once per
// minted state; any decode, integrity, lookup or store failure yields false.
// Errors never cross this boundary - a store failure denies the flow (fail
// closed) rather than leaking detail to the caller.
func (c *StateCodec) Validate(ctx context.Context, encoded, userID string) (string, bool) {
	payload, err := c.sealer.Open(encoded, userID)
	if err != nil {
		return "", false
	}

	record, err := c.states.Consume(ctx, userID, payload.StateID)
	if err != nil {
		slog.Warn("state store unavailable during validation", "error", err)
		return "", false
	}
	if record == nil {
		return "", false
	}

	return payload.ReturnURL, true
}
