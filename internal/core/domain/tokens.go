package domain

import "time"

// refreshSkew is how far before expiry a token counts as needing refresh.
const refreshSkew = 5 * time.Minute

// TokenSet is the deserialized per-user provider token cache. It is the
// in-memory form of TokenCacheEntry.CacheBits.
type TokenSet struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	TenantID     string    `json:"tenant_id"`
	Resource     string    `json:"resource"`
	Expiry       time.Time `json:"expiry"`
}

// IsExpired checks if the access token has expired
func (t *TokenSet) IsExpired() bool {
	if t.Expiry.IsZero() {
		return false
	}
	return time.Now().After(t.Expiry)
}

// NeedsRefresh checks if the access token should be refreshed (within 5 min of expiry)
func (t *TokenSet) NeedsRefresh() bool {
	if t.Expiry.IsZero() {
		return false
	}
	return time.Now().After(t.Expiry.Add(-refreshSkew))
}

// TokenCacheEntry is the durable, last-writer-wins record of a user's token
// cache. CacheBits is an opaque serialized blob; the entry with the greatest
// LastWrite for a user is authoritative.
type TokenCacheEntry struct {
	UserID    string
	CacheBits []byte
	LastWrite time.Time
}

// StateRecord is a pending authorization request bound to a user. It is
// consumed (deleted) exactly once on the matching provider callback.
type StateRecord struct {
	UserID    string
	StateID   string
	CreatedAt time.Time
	ExpiresAt time.Time
}
