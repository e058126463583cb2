package partner

import "context"

// OfferRepository reads offer configuration.
type OfferRepository interface {
	GetByID(ctx context.Context, offerID string) (*Offer, error)
}

// PartnerRepository reads partner configuration.
type PartnerRepository interface {
	GetByKey(ctx context.Context, key string) (*Partner, error)

	// ListForOffer returns the partners configured to receive conversions for
	// an offer. Ineligible partners are filtered by the caller.
	ListForOffer(ctx context.Context, offerID string) ([]*Partner, error)
}
