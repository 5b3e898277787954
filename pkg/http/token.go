package http

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRefreshBuffer is how long before expiry a cached token is replaced.
const DefaultRefreshBuffer = 30 * time.Second

// errEmptyToken is returned when a provider succeeds with an empty token.
var errEmptyToken = errors.New("token provider returned an empty token")

// TokenProvider supplies bearer tokens for the Authorization header.
type TokenProvider interface {
	// FetchToken returns a token and when it expires. A zero expiry means the
	// token does not expire.
	FetchToken(ctx context.Context) (token string, expiresAt time.Time, err error)
}

type cachedToken struct {
	value     string
	expiresAt time.Time
}

// TokenCache hands out one provider token until it comes within the refresh
// buffer of its expiry. Reads never block; refreshes are serialized so
// concurrent callers share a single fetch.
type TokenCache struct {
	provider      TokenProvider
	refreshBuffer time.Duration
	now           func() time.Time

	current atomic.Pointer[cachedToken]
	fetchMu sync.Mutex
}

// NewTokenCache wraps provider. A non-positive refreshBuffer uses
// DefaultRefreshBuffer.
func NewTokenCache(provider TokenProvider, refreshBuffer time.Duration) *TokenCache {
	if refreshBuffer <= 0 {
		refreshBuffer = DefaultRefreshBuffer
	}
	return &TokenCache{
		provider:      provider,
		refreshBuffer: refreshBuffer,
		now:           time.Now,
	}
}

// GetToken returns the cached token or fetches a new one.
func (tc *TokenCache) GetToken(ctx context.Context) (string, error) {
	if t := tc.current.Load(); tc.usable(t) {
		return t.value, nil
	}

	tc.fetchMu.Lock()
	defer tc.fetchMu.Unlock()

	// refreshed while waiting for fetchMu
	if t := tc.current.Load(); tc.usable(t) {
		return t.value, nil
	}

	value, expiresAt, err := tc.provider.FetchToken(ctx)
	if err != nil {
		return "", err
	}
	if value == "" {
		return "", errEmptyToken
	}
	tc.current.Store(&cachedToken{value: value, expiresAt: expiresAt})
	return value, nil
}

// Invalidate drops the cached token so the next GetToken fetches again.
// The client calls it after a 401.
func (tc *TokenCache) Invalidate() {
	tc.current.Store(nil)
}

// IsValid reports whether GetToken would return without fetching.
func (tc *TokenCache) IsValid() bool {
	return tc.usable(tc.current.Load())
}

func (tc *TokenCache) usable(t *cachedToken) bool {
	if t == nil {
		return false
	}
	if t.expiresAt.IsZero() {
		return true
	}
	return tc.now().Before(t.expiresAt.Add(-tc.refreshBuffer))
}
