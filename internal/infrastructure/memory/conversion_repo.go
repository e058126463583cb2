package memory

import (
	"context"
	"sync"

	"offertrack/internal/domain/conversion"
)

// ConversionRepository implements conversion.Repository in memory. The
// transaction_id uniqueness check happens under one lock with the insert,
// mirroring the unique-index guarantee of the SQL store.
type ConversionRepository struct {
	mu       sync.RWMutex
	byID     map[string]*conversion.Conversion
	byTxnID  map[string]string
}

// NewConversionRepository creates an empty in-memory conversion store.
func NewConversionRepository() *ConversionRepository {
	return &ConversionRepository{
		byID:    make(map[string]*conversion.Conversion),
		byTxnID: make(map[string]string),
	}
}

func (r *ConversionRepository) Create(_ context.Context, c *conversion.Conversion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byTxnID[c.TransactionID]; exists {
		return conversion.ErrDuplicateTransaction
	}
	cp := *c
	r.byID[c.ConversionID] = &cp
	r.byTxnID[c.TransactionID] = c.ConversionID
	return nil
}

func (r *ConversionRepository) GetByID(_ context.Context, conversionID string) (*conversion.Conversion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[conversionID]
	if !ok {
		return nil, conversion.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *ConversionRepository) GetByTransactionID(_ context.Context, transactionID string) (*conversion.Conversion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byTxnID[transactionID]
	if !ok {
		return nil, conversion.ErrNotFound
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *ConversionRepository) UpdateStatus(_ context.Context, conversionID string, status conversion.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[conversionID]
	if !ok {
		return conversion.ErrNotFound
	}
	c.Status = status
	return nil
}
