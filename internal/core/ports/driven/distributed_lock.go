package driven

import (
	"context"
	"time"
)

// DistributedLock serializes token-cache writes per user across instances.
// Used by pessimistic TokenCache implementations in their OnBeforeWrite hook.
type DistributedLock interface {
	// Acquire attempts to acquire a named lock with the given TTL.
	// Returns true if the lock was acquired, false if held elsewhere.
	// The lock expires automatically after TTL.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release releases a named lock. Best-effort; safe to call when the lock
	// is not held or has already expired.
	Release(ctx context.Context, name string) error

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}
