package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/graphgate/internal/core/domain"
	"github.com/custodia-labs/graphgate/internal/core/ports/driven"
)

// mockStateStore implements driven.StateStore for testing
type mockStateStore struct {
	mu      sync.Mutex
	records map[string]*domain.StateRecord
	saveErr error
	consErr error
}

func newMockStateStore() *mockStateStore {
	return &mockStateStore{
		records: make(map[string]*domain.StateRecord),
	}
}

func stateRecordKey(userID, stateID string) string {
	return userID + "|" + stateID
}

func (m *mockStateStore) Save(ctx context.Context, record *domain.StateRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[stateRecordKey(record.UserID, record.StateID)] = record
	return nil
}

func (m *mockStateStore) Consume(ctx context.Context, userID, stateID string) (*domain.StateRecord, error) {
	if m.consErr != nil {
		return nil, m.consErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := stateRecordKey(userID, stateID)
	record, ok := m.records[key]
	if !ok {
		return nil, nil
	}
	delete(m.records, key)
	if time.Now().After(record.ExpiresAt) {
		return nil, nil
	}
	return record, nil
}

func (m *mockStateStore) PurgeUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, record := range m.records {
		if record.UserID == userID {
			delete(m.records, key)
		}
	}
	return nil
}

func (m *mockStateStore) Cleanup(ctx context.Context) error {
	return nil
}

func (m *mockStateStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// mockTokenCacheStore implements driven.TokenCacheStore for testing
type mockTokenCacheStore struct {
	mu      sync.Mutex
	entries map[string]*domain.TokenCacheEntry
	puts    int
	deletes int
	getErr  error
	putErr  error
}

func newMockTokenCacheStore() *mockTokenCacheStore {
	return &mockTokenCacheStore{
		entries: make(map[string]*domain.TokenCacheEntry),
	}
}

func (m *mockTokenCacheStore) Get(ctx context.Context, userID string) (*domain.TokenCacheEntry, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[userID]
	if !ok {
		return nil, nil
	}
	copied := *entry
	copied.CacheBits = append([]byte(nil), entry.CacheBits...)
	return &copied, nil
}

func (m *mockTokenCacheStore) Put(ctx context.Context, entry *domain.TokenCacheEntry) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *entry
	copied.CacheBits = append([]byte(nil), entry.CacheBits...)
	m.entries[entry.UserID] = &copied
	m.puts++
	return nil
}

func (m *mockTokenCacheStore) Delete(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, userID)
	m.deletes++
	return nil
}

// mockProvider implements driven.IdentityProvider for testing
type mockProvider struct {
	exchangeFn func(ctx context.Context, code string) (*driven.ProviderToken, error)
	refreshFn  func(ctx context.Context, refreshToken string) (*driven.ProviderToken, error)
	exchanges  int
	refreshes  int
}

func (m *mockProvider) AuthorizationURL(state, loginHint string) string {
	return "https://login.example.com/oauth2/authorize?state=" + state
}

func (m *mockProvider) ExchangeCode(ctx context.Context, code string) (*driven.ProviderToken, error) {
	m.exchanges++
	if m.exchangeFn != nil {
		return m.exchangeFn(ctx, code)
	}
	return nil, errors.New("not implemented")
}

func (m *mockProvider) Refresh(ctx context.Context, refreshToken string) (*driven.ProviderToken, error) {
	m.refreshes++
	if m.refreshFn != nil {
		return m.refreshFn(ctx, refreshToken)
	}
	return nil, errors.New("not implemented")
}

func (m *mockProvider) Resource() string {
	return "https://graph.example.com/"
}

// mockProfileClient implements driven.ProfileClient for testing
type mockProfileClient struct {
	fetchFn func(ctx context.Context, accessToken, tenantID string) (*domain.UserProfile, error)
	fetches int
}

func (m *mockProfileClient) FetchProfile(ctx context.Context, accessToken, tenantID string) (*domain.UserProfile, error) {
	m.fetches++
	if m.fetchFn != nil {
		return m.fetchFn(ctx, accessToken, tenantID)
	}
	return nil, errors.New("not implemented")
}

// mockLocker implements driven.DistributedLock for testing
type mockLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	acquires int
	releases int
}

func newMockLocker() *mockLocker {
	return &mockLocker{held: make(map[string]bool)}
}

func (m *mockLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acquires++
	if m.held[name] {
		return false, nil
	}
	m.held[name] = true
	return true, nil
}

func (m *mockLocker) Release(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases++
	delete(m.held, name)
	return nil
}

func (m *mockLocker) Ping(ctx context.Context) error {
	return nil
}

// testSealKey is a fixed 32-byte key for codec tests.
var testSealKey = []byte("0123456789abcdef0123456789abcdef")
