package memory

import (
	"context"
	"sync"

	"offertrack/internal/domain/partner"
)

// PartnerConfigRepository implements partner.OfferRepository and
// partner.PartnerRepository from seeded configuration.
type PartnerConfigRepository struct {
	mu           sync.RWMutex
	offers       map[string]*partner.Offer
	partners     map[string]*partner.Partner // by id
	partnerByKey map[string]string
	offerLinks   map[string][]string // offer id -> partner ids
}

// NewPartnerConfigRepository creates an empty config store.
func NewPartnerConfigRepository() *PartnerConfigRepository {
	return &PartnerConfigRepository{
		offers:       make(map[string]*partner.Offer),
		partners:     make(map[string]*partner.Partner),
		partnerByKey: make(map[string]string),
		offerLinks:   make(map[string][]string),
	}
}

// SeedOffer registers an offer.
func (r *PartnerConfigRepository) SeedOffer(o *partner.Offer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.offers[o.ID] = &cp
}

// SeedPartner registers a partner and links it to the given offers.
func (r *PartnerConfigRepository) SeedPartner(p *partner.Partner, offerIDs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.partners[p.ID] = &cp
	r.partnerByKey[p.Key] = p.ID
	for _, offerID := range offerIDs {
		r.offerLinks[offerID] = append(r.offerLinks[offerID], p.ID)
	}
}

func (r *PartnerConfigRepository) GetByID(_ context.Context, offerID string) (*partner.Offer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.offers[offerID]
	if !ok {
		return nil, partner.ErrOfferNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *PartnerConfigRepository) GetByKey(_ context.Context, key string) (*partner.Partner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.partnerByKey[key]
	if !ok {
		return nil, partner.ErrPartnerNotFound
	}
	cp := *r.partners[id]
	return &cp, nil
}

func (r *PartnerConfigRepository) ListForOffer(_ context.Context, offerID string) ([]*partner.Partner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.offerLinks[offerID]
	partners := make([]*partner.Partner, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.partners[id]; ok {
			cp := *p
			partners = append(partners, &cp)
		}
	}
	return partners, nil
}
