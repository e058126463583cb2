package conversion

import "context"

// Repository persists conversions. Implementations must enforce a unique
// index on transaction_id and return ErrDuplicateTransaction on collision;
// that index, not an application lock, is the idempotency guarantee.
type Repository interface {
	Create(ctx context.Context, c *Conversion) error
	GetByID(ctx context.Context, conversionID string) (*Conversion, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*Conversion, error)
	UpdateStatus(ctx context.Context, conversionID string, status Status) error
}
