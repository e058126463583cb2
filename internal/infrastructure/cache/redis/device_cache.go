package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Device fingerprints are remembered for 30 days per user.
const deviceRetention = 30 * 24 * time.Hour

// DeviceCache stores the most recent device fingerprint per user identity.
// Implements fraud.DeviceHistory.
type DeviceCache struct {
	client *Client
}

// NewDeviceCache creates a device cache.
func NewDeviceCache(client *Client) *DeviceCache {
	return &DeviceCache{client: client}
}

func deviceKey(userID string) string {
	return fmt.Sprintf("device:user:%s", userID)
}

// LastFingerprint returns the fingerprint seen on the user's previous event,
// or empty when none is known.
func (c *DeviceCache) LastFingerprint(ctx context.Context, userID string) (string, error) {
	fp, err := c.client.rdb.Get(ctx, deviceKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get device fingerprint: %w", err)
	}
	return fp, nil
}

// RecordFingerprint overwrites the user's current fingerprint.
func (c *DeviceCache) RecordFingerprint(ctx context.Context, userID, fingerprint string) error {
	if err := c.client.rdb.Set(ctx, deviceKey(userID), fingerprint, deviceRetention).Err(); err != nil {
		return fmt.Errorf("failed to record device fingerprint: %w", err)
	}
	return nil
}
