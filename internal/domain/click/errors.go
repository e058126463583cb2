package click

import "errors"

var (
	// ErrNotFound is returned when no click matches the lookup.
	ErrNotFound = errors.New("click not found")

	// ErrDuplicateClickID is returned by stores when an insert collides with
	// an existing click_id. Callers regenerate the token and retry.
	ErrDuplicateClickID = errors.New("click_id already exists")

	// ErrInvalidOffer is returned when a click targets an unknown or
	// inactive offer.
	ErrInvalidOffer = errors.New("unknown or inactive offer")
)
