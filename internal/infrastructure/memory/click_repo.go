// Package memory provides in-memory repository implementations used in
// standalone mode (no database/redis reachable) and in tests.
package memory

import (
	"context"
	"sync"
	"time"

	"offertrack/internal/domain/click"
)

// ClickRepository implements click.Repository in memory.
type ClickRepository struct {
	mu     sync.RWMutex
	clicks map[string]*click.Click
	order  []string // insertion order, oldest first
}

// NewClickRepository creates an empty in-memory click store.
func NewClickRepository() *ClickRepository {
	return &ClickRepository{clicks: make(map[string]*click.Click)}
}

func (r *ClickRepository) Create(_ context.Context, c *click.Click) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.clicks[c.ClickID]; exists {
		return click.ErrDuplicateClickID
	}
	cp := *c
	r.clicks[c.ClickID] = &cp
	r.order = append(r.order, c.ClickID)
	return nil
}

func (r *ClickRepository) GetByClickID(_ context.Context, clickID string) (*click.Click, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clicks[clickID]
	if !ok {
		return nil, click.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *ClickRepository) LatestBySubID(_ context.Context, offerID, subID string) (*click.Click, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.order) - 1; i >= 0; i-- {
		c := r.clicks[r.order[i]]
		if c.OfferID == offerID && c.SubID1 == subID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, click.ErrNotFound
}

func (r *ClickRepository) LatestByOffer(_ context.Context, offerID string) (*click.Click, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.order) - 1; i >= 0; i-- {
		c := r.clicks[r.order[i]]
		if c.OfferID == offerID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, click.ErrNotFound
}

func (r *ClickRepository) CountRecent(_ context.Context, userID, offerID, subID string, since time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var count int64
	for _, c := range r.clicks {
		if c.UserID == userID && c.OfferID == offerID && c.SubID1 == subID && !c.ClickTime.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *ClickRepository) MarkConverted(_ context.Context, clickID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clicks[clickID]; ok && !c.Converted {
		c.Converted = true
	}
	return nil
}
