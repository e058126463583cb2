package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DeviceHistory implements fraud.DeviceHistory in memory.
type DeviceHistory struct {
	mu           sync.RWMutex
	fingerprints map[string]string
}

// NewDeviceHistory creates an empty device history.
func NewDeviceHistory() *DeviceHistory {
	return &DeviceHistory{fingerprints: make(map[string]string)}
}

func (h *DeviceHistory) LastFingerprint(_ context.Context, userID string) (string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.fingerprints[userID], nil
}

func (h *DeviceHistory) RecordFingerprint(_ context.Context, userID, fingerprint string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fingerprints[userID] = fingerprint
	return nil
}

// SessionHistory implements fraud.SessionHistory in memory with an
// injectable clock for deterministic window tests.
type SessionHistory struct {
	mu     sync.Mutex
	events map[string][]time.Time
	clock  clockwork.Clock
}

// NewSessionHistory creates an empty session history.
func NewSessionHistory(clock clockwork.Clock) *SessionHistory {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SessionHistory{events: make(map[string][]time.Time), clock: clock}
}

func (h *SessionHistory) RecordEvent(_ context.Context, userID string, at time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events[userID] = append(h.events[userID], at)
	return nil
}

func (h *SessionHistory) CountEvents(_ context.Context, userID string, window time.Duration) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cutoff := h.clock.Now().Add(-window)
	var count int64
	for _, at := range h.events[userID] {
		if !at.Before(cutoff) {
			count++
		}
	}
	return count, nil
}
