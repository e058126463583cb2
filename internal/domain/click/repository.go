package click

import (
	"context"
	"time"
)

// Repository persists clicks. Implementations must enforce a unique index on
// click_id and return ErrDuplicateClickID on collision.
type Repository interface {
	Create(ctx context.Context, c *Click) error
	GetByClickID(ctx context.Context, clickID string) (*Click, error)

	// LatestBySubID returns the most recent click for an offer carrying the
	// given sub_id1, or ErrNotFound.
	LatestBySubID(ctx context.Context, offerID, subID string) (*Click, error)

	// LatestByOffer returns the most recent click for an offer regardless of
	// user, or ErrNotFound. Used only as a last-resort conversion match.
	LatestByOffer(ctx context.Context, offerID string) (*Click, error)

	// CountRecent counts clicks by the same user on the same offer and
	// placement since the given time. Drives duplicate-click detection.
	CountRecent(ctx context.Context, userID, offerID, subID string, since time.Time) (int64, error)

	// MarkConverted flips the converted flag. The update is conditional on
	// converted=false so a click converts at most once; a second call is a
	// no-op that still succeeds.
	MarkConverted(ctx context.Context, clickID string) error
}
