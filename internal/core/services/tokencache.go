package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/graphgate/internal/core/domain"
	"github.com/custodia-labs/graphgate/internal/core/ports/driven"
)

// Ensure UserTokenCache implements the cache capability interface.
var _ driven.TokenCache = (*UserTokenCache)(nil)

// defaultWriteLockTTL bounds how long a per-user write lock can be held if
// an instance dies mid-write.
const defaultWriteLockTTL = 10 * time.Second

// UserTokenCache is the in-memory token cache for one user, kept coherent
// with the durable store through the On* hooks.
//
// Writes are optimistic by default: two concurrent refreshes for the same
// user race, and the later Put wins, potentially discarding the other's
// freshly acquired token. The next silent acquisition repairs that by
// refreshing again. Constructing the cache with a DistributedLock upgrades
// OnBeforeWrite to a pessimistic per-user lock instead.
type UserTokenCache struct {
	userID  string
	store   driven.TokenCacheStore
	locker  driven.DistributedLock
	lockTTL time.Duration

	mu        sync.Mutex
	tokens    *domain.TokenSet
	lastWrite time.Time
	loaded    bool
	changed   bool
	lockHeld  bool
}

// NewUserTokenCache creates an optimistic (last-writer-wins) cache for a user.
func NewUserTokenCache(userID string, store driven.TokenCacheStore) *UserTokenCache {
	return &UserTokenCache{
		userID:  userID,
		store:   store,
		lockTTL: defaultWriteLockTTL,
	}
}

// NewLockedUserTokenCache creates a cache whose writes are serialized per
// user through the given distributed lock.
func NewLockedUserTokenCache(userID string, store driven.TokenCacheStore, locker driven.DistributedLock) *UserTokenCache {
	c := NewUserTokenCache(userID, store)
	c.locker = locker
	return c
}

// UserID returns the user this cache is bound to.
func (c *UserTokenCache) UserID() string {
	return c.userID
}

// OnBeforeAccess loads the durable entry on first access, and afterwards
// reloads whenever the store holds a newer LastWrite than the in-memory
// copy. This is a read-refresh for cross-instance coherence, not a lock.
func (c *UserTokenCache) OnBeforeAccess(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, err := c.store.Get(ctx, c.userID)
	if err != nil {
		return fmt.Errorf("load token cache: %w", err)
	}

	if entry == nil {
		if !c.loaded {
			c.tokens = nil
			c.loaded = true
		}
		return nil
	}

	if !c.loaded || entry.LastWrite.After(c.lastWrite) {
		tokens, err := decodeCacheBits(entry.CacheBits)
		if err != nil {
			return fmt.Errorf("decode token cache: %w", err)
		}
		c.tokens = tokens
		c.lastWrite = entry.LastWrite
		c.loaded = true
	}

	return nil
}

// OnBeforeWrite acquires the per-user write lock when one is configured.
// The lock is released by the persisting OnAfterAccess. Without a locker
// this is a no-op and writes stay last-writer-wins.
func (c *UserTokenCache) OnBeforeWrite(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.locker == nil || c.lockHeld {
		return nil
	}

	name := writeLockName(c.userID)
	for {
		acquired, err := c.locker.Acquire(ctx, name, c.lockTTL)
		if err != nil {
			return fmt.Errorf("acquire write lock: %w", err)
		}
		if acquired {
			c.lockHeld = true
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(25 * time.Millisecond):
		}
	}
}

// OnAfterAccess persists the in-memory copy if it changed since the last
// access, stamps a new LastWrite, clears the mutation flag, and releases any
// write lock held.
func (c *UserTokenCache) OnAfterAccess(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.releaseLockLocked(ctx)

	if !c.changed || c.tokens == nil {
		c.changed = false
		return nil
	}

	bits, err := json.Marshal(c.tokens)
	if err != nil {
		return fmt.Errorf("encode token cache: %w", err)
	}

	now := time.Now()
	entry := &domain.TokenCacheEntry{
		UserID:    c.userID,
		CacheBits: bits,
		LastWrite: now,
	}
	if err := c.store.Put(ctx, entry); err != nil {
		return fmt.Errorf("persist token cache: %w", err)
	}

	c.lastWrite = now
	c.changed = false
	return nil
}

// Tokens returns the in-memory token set, or nil when empty.
func (c *UserTokenCache) Tokens() *domain.TokenSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens
}

// SetTokens replaces the in-memory token set and marks the cache changed so
// the next OnAfterAccess persists it.
func (c *UserTokenCache) SetTokens(tokens *domain.TokenSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = tokens
	c.changed = true
}

// Clear wipes the in-memory copy and deletes the durable entry.
func (c *UserTokenCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.releaseLockLocked(ctx)

	c.tokens = nil
	c.changed = false
	c.lastWrite = time.Time{}
	c.loaded = true

	if err := c.store.Delete(ctx, c.userID); err != nil {
		return fmt.Errorf("clear token cache: %w", err)
	}
	return nil
}

func (c *UserTokenCache) releaseLockLocked(ctx context.Context) {
	if !c.lockHeld {
		return
	}
	c.lockHeld = false
	_ = c.locker.Release(ctx, writeLockName(c.userID))
}

func writeLockName(userID string) string {
	return "tokencache:" + userID
}

func decodeCacheBits(bits []byte) (*domain.TokenSet, error) {
	if len(bits) == 0 {
		return nil, nil
	}
	var tokens domain.TokenSet
	if err := json.Unmarshal(bits, &tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}
