package conversion

import "errors"

var (
	// ErrNotFound is returned when no conversion matches the lookup.
	ErrNotFound = errors.New("conversion not found")

	// ErrDuplicateTransaction is returned by stores when an insert collides
	// with the unique transaction_id index. The matcher treats it as the
	// "already recorded" branch, not a failure.
	ErrDuplicateTransaction = errors.New("transaction_id already recorded")

	// ErrMissingTransactionID rejects payloads without an idempotency key.
	ErrMissingTransactionID = errors.New("transaction_id is required")
)
