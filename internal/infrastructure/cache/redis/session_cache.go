package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// Session history is kept for this long; frequency windows never look back
// further than 24 hours.
const sessionRetention = 24 * time.Hour

// SessionCache tracks per-user event timestamps for session-frequency fraud
// signals. Implements fraud.SessionHistory. Events live in a sorted set keyed
// by user with the unix timestamp as score, so window counts are range counts.
type SessionCache struct {
	client *Client
	clock  clockwork.Clock
}

// NewSessionCache creates a session cache.
func NewSessionCache(client *Client, clock clockwork.Clock) *SessionCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SessionCache{client: client, clock: clock}
}

func sessionKey(userID string) string {
	return fmt.Sprintf("sessions:user:%s", userID)
}

// RecordEvent appends one event for the user and prunes entries past
// retention. Pruning is best effort.
func (c *SessionCache) RecordEvent(ctx context.Context, userID string, at time.Time) error {
	key := sessionKey(userID)

	member := redis.Z{
		Score:  float64(at.Unix()),
		Member: fmt.Sprintf("%d:%s", at.UnixNano(), uuid.NewString()[:8]),
	}
	if err := c.client.rdb.ZAdd(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("failed to record session event: %w", err)
	}
	if err := c.client.rdb.Expire(ctx, key, sessionRetention).Err(); err != nil {
		return fmt.Errorf("failed to set expiration: %w", err)
	}

	cutoff := c.clock.Now().Add(-sessionRetention).Unix()
	c.client.rdb.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff, 10))

	return nil
}

// CountEvents returns how many events the user produced inside the window.
func (c *SessionCache) CountEvents(ctx context.Context, userID string, window time.Duration) (int64, error) {
	key := sessionKey(userID)
	now := c.clock.Now()

	count, err := c.client.rdb.ZCount(ctx, key,
		strconv.FormatInt(now.Add(-window).Unix(), 10),
		strconv.FormatInt(now.Unix(), 10),
	).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count session events: %w", err)
	}
	return count, nil
}
