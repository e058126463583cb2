package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"offertrack/internal/domain/fraud"
)

// SignalCache stores Fraud Signal Provider lookup results per IP so a busy
// address is resolved once per TTL across all instances. Implements
// ipintel.SignalCache.
type SignalCache struct {
	client *Client
	ttl    time.Duration
}

// NewSignalCache creates a signal cache with the given entry TTL.
func NewSignalCache(client *Client, ttl time.Duration) *SignalCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SignalCache{client: client, ttl: ttl}
}

func signalKey(ip string) string {
	return fmt.Sprintf("ipintel:%s", ip)
}

// Get returns cached signals for an address. Any error reads as a miss; the
// provider is the fallback.
func (c *SignalCache) Get(ctx context.Context, ip string) (fraud.IPSignals, bool) {
	raw, err := c.client.rdb.Get(ctx, signalKey(ip)).Result()
	if err != nil {
		return fraud.IPSignals{}, false
	}
	var signals fraud.IPSignals
	if err := json.Unmarshal([]byte(raw), &signals); err != nil {
		return fraud.IPSignals{}, false
	}
	return signals, true
}

// Set stores signals for an address. Best effort.
func (c *SignalCache) Set(ctx context.Context, ip string, signals fraud.IPSignals) {
	raw, err := json.Marshal(signals)
	if err != nil {
		return
	}
	c.client.rdb.Set(ctx, signalKey(ip), raw, c.ttl)
}
