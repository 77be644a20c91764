package credentials

import (
	"context"
	"sync"
	"time"

	"github.com/agreement-center/agreement-backend/cache"
	"github.com/agreement-center/agreement-backend/interfaces"
)

// refreshSkew is subtracted from a credential's expiry before caching, so
// a token is replaced before upstream considers it dead.
const refreshSkew = time.Minute

// cachedKey is the single cache key: the provider identity is fixed per
// Cached instance.
const cachedKey = "credential"

// Cached wraps a CredentialProvider with a TTL cache. An expired entry is
// fully replaced before reuse; concurrent callers share one mint via the
// refresh mutex rather than stampeding the upstream API.
type Cached struct {
	provider interfaces.CredentialProvider
	store    *cache.TTL[string, interfaces.Credential]
	refresh  sync.Mutex
	now      func() time.Time
}

// NewCached wraps provider with credential caching.
func NewCached(provider interfaces.CredentialProvider) *Cached {
	return &Cached{
		provider: provider,
		store:    cache.NewTTL[string, interfaces.Credential](time.Hour),
		now:      time.Now,
	}
}

// GetToken returns the cached credential when still live, otherwise mints
// and caches a replacement.
func (c *Cached) GetToken(ctx context.Context) (interfaces.Credential, error) {
	if credential, ok := c.store.Get(cachedKey); ok {
		return credential, nil
	}

	c.refresh.Lock()
	defer c.refresh.Unlock()

	// Another caller may have refreshed while we waited on the mutex.
	if credential, ok := c.store.Get(cachedKey); ok {
		return credential, nil
	}

	credential, err := c.provider.GetToken(ctx)
	if err != nil {
		return interfaces.Credential{}, err
	}

	expiry := credential.ExpiresAt.Add(-refreshSkew)
	if expiry.After(c.now()) {
		c.store.SetUntil(cachedKey, credential, expiry)
	}

	return credential, nil
}

// SetClock replaces the clocks of the wrapper and its cache, for tests.
func (c *Cached) SetClock(now func() time.Time) {
	c.now = now
	c.store.SetClock(now)
}
