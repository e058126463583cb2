package ipintel

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"offertrack/internal/domain/fraud"
	"offertrack/internal/pkg/ttlcache"
)

// SignalCache stores lookup results keyed by IP. Implemented in-process by
// ttlcache and out-of-process by the redis signal cache.
type SignalCache interface {
	Get(ctx context.Context, ip string) (fraud.IPSignals, bool)
	Set(ctx context.Context, ip string, signals fraud.IPSignals)
}

// CachedProvider wraps a provider with a cache so one address is looked up at
// most once per TTL. Lookup failures are not cached; the next event retries.
type CachedProvider struct {
	inner fraud.SignalProvider
	cache SignalCache
}

// NewCachedProvider wraps inner with cache.
func NewCachedProvider(inner fraud.SignalProvider, cache SignalCache) *CachedProvider {
	return &CachedProvider{inner: inner, cache: cache}
}

// Lookup serves from cache when possible.
func (p *CachedProvider) Lookup(ctx context.Context, ip string) (fraud.IPSignals, error) {
	if signals, ok := p.cache.Get(ctx, ip); ok {
		return signals, nil
	}
	signals, err := p.inner.Lookup(ctx, ip)
	if err != nil {
		return fraud.IPSignals{}, err
	}
	p.cache.Set(ctx, ip, signals)
	return signals, nil
}

// MemoryCache adapts ttlcache to SignalCache for standalone mode and tests.
type MemoryCache struct {
	cache *ttlcache.Cache[string, fraud.IPSignals]
}

// NewMemoryCache creates an in-process signal cache.
func NewMemoryCache(ttl time.Duration, clock clockwork.Clock) *MemoryCache {
	return &MemoryCache{cache: ttlcache.New[string, fraud.IPSignals](ttl, clock)}
}

func (m *MemoryCache) Get(_ context.Context, ip string) (fraud.IPSignals, bool) {
	return m.cache.Get(ip)
}

func (m *MemoryCache) Set(_ context.Context, ip string, signals fraud.IPSignals) {
	m.cache.Set(ip, signals)
}
