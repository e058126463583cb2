package partner

import "errors"

var (
	ErrOfferNotFound   = errors.New("offer not found")
	ErrPartnerNotFound = errors.New("partner not found")
)
