package implementations

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"cuenca-ubate/internal/domain/identification"
	"cuenca-ubate/internal/platform/backend"
)

const (
	keysCacheKey    = "api-keys"
	keyFetchTimeout = 10 * time.Second
)

// APIKeySource hands out the runtime API keys
type APIKeySource interface {
	APIKeys(ctx context.Context) (backend.Keys, error)
}

// KeyProvider caches the backend's API keys briefly and collapses concurrent fetches into one
type KeyProvider struct {
	source APIKeySource
	ttl    time.Duration
	cache  *gocache.Cache
	group  singleflight.Group
}

// NewKeyProvider creates a key provider; a ttl of zero disables caching
func NewKeyProvider(source APIKeySource, ttl time.Duration) *KeyProvider {
	return &KeyProvider{
		source: source,
		ttl:    ttl,
		cache:  gocache.New(ttl, 0),
	}
}

// Keys returns the cached keys or fetches them
func (p *KeyProvider) Keys(ctx context.Context) (backend.Keys, error) {
	if v, ok := p.cache.Get(keysCacheKey); ok {
		return v.(backend.Keys), nil
	}

	v, err, _ := p.group.Do(keysCacheKey, func() (interface{}, error) {
		// the fetch is shared, so one caller going away must not fail the others
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), keyFetchTimeout)
		defer cancel()
		keys, err := p.source.APIKeys(fetchCtx)
		if err != nil {
			return backend.Keys{}, err
		}
		if p.ttl > 0 {
			p.cache.Set(keysCacheKey, keys, p.ttl)
		}
		return keys, nil
	})
	if err != nil {
		return backend.Keys{}, fmt.Errorf("failed to fetch api keys: %w", err)
	}
	return v.(backend.Keys), nil
}

// PlantNetKey returns the identification API key
func (p *KeyProvider) PlantNetKey(ctx context.Context) (string, error) {
	keys, err := p.Keys(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", identification.ErrKeysUnavailable, err)
	}
	if keys.PlantIDAPIKey == "" {
		return "", identification.ErrKeysUnavailable
	}
	return keys.PlantIDAPIKey, nil
}

// Forget drops the cached keys so the next call fetches them again.
// The identification client calls it when the API rejects the key.
func (p *KeyProvider) Forget() {
	p.cache.Delete(keysCacheKey)
}
