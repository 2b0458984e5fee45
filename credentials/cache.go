// Package credentials caches the backend's provider app credentials for the
// life of the process. The secrets store is hit at most once on the happy
// path; fetch failures are never cached and are retried on the next
// request.
package credentials

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/replywing/replywing/secrets"
)

// AppCredentials is the OAuth client id/secret the backend uses for token
// revocation Basic auth.
type AppCredentials struct {
	ClientID     string
	ClientSecret string
}

// Cache is a process-scoped credential cache. Concurrent cold-start callers
// share a single fetch via singleflight rather than racing independent
// ones.
type Cache struct {
	store secrets.Store

	group singleflight.Group
	mu    sync.RWMutex
	creds *AppCredentials
}

func NewCache(store secrets.Store) *Cache {
	return &Cache{store: store}
}

// GetOrFetch returns the cached credentials, fetching them from the secrets
// store on first use.
func (c *Cache) GetOrFetch(ctx context.Context) (AppCredentials, error) {
	c.mu.RLock()
	if c.creds != nil {
		creds := *c.creds
		c.mu.RUnlock()
		return creds, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.group.Do("app-credentials", func() (any, error) {
		// Re-check under singleflight: a previous caller may have just
		// populated the cache.
		c.mu.RLock()
		if c.creds != nil {
			creds := *c.creds
			c.mu.RUnlock()
			return creds, nil
		}
		c.mu.RUnlock()

		creds, err := c.fetch(ctx)
		if err != nil {
			return AppCredentials{}, err
		}

		c.mu.Lock()
		c.creds = &creds
		c.mu.Unlock()
		return creds, nil
	})
	if err != nil {
		return AppCredentials{}, err
	}
	return result.(AppCredentials), nil
}

func (c *Cache) fetch(ctx context.Context) (AppCredentials, error) {
	clientID, err := c.store.Get(ctx, secrets.ProviderClientID)
	if err != nil {
		return AppCredentials{}, fmt.Errorf("fetch client id: %w", err)
	}
	clientSecret, err := c.store.Get(ctx, secrets.ProviderClientSecret)
	if err != nil {
		return AppCredentials{}, fmt.Errorf("fetch client secret: %w", err)
	}
	return AppCredentials{ClientID: clientID, ClientSecret: clientSecret}, nil
}
