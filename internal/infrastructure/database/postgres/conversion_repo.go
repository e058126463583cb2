package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"offertrack/internal/domain/conversion"
)

// ConversionModel is the database model for conversions
type ConversionModel struct {
	ConversionID  string  `gorm:"type:varchar(64);primaryKey"`
	TransactionID string  `gorm:"type:varchar(255);uniqueIndex;not null"`
	ClickID       *string `gorm:"type:varchar(64);index"`
	OfferID       string  `gorm:"type:varchar(64);index"`

	Payout         decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	UpstreamPayout decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	Currency       string          `gorm:"type:varchar(3)"`

	Status    string `gorm:"type:varchar(20);index;not null"`
	MatchType string `gorm:"type:varchar(20);not null"`

	ConversionTime time.Time `gorm:"not null"`
	RawPostback    string    `gorm:"type:jsonb"`
}

// TableName returns the table name for conversions
func (ConversionModel) TableName() string {
	return "conversions"
}

// ConversionRepository implements conversion.Repository
type ConversionRepository struct {
	db *gorm.DB
}

// NewConversionRepository creates a new conversion repository
func NewConversionRepository(client *Client) *ConversionRepository {
	return &ConversionRepository{db: client.DB()}
}

// Create stores a conversion. A unique violation on transaction_id maps to
// conversion.ErrDuplicateTransaction, the matcher's "already exists" branch.
func (r *ConversionRepository) Create(ctx context.Context, c *conversion.Conversion) error {
	model := toConversionModel(c)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return conversion.ErrDuplicateTransaction
		}
		return err
	}
	return nil
}

// GetByID retrieves a conversion by its identifier
func (r *ConversionRepository) GetByID(ctx context.Context, conversionID string) (*conversion.Conversion, error) {
	var model ConversionModel
	if err := r.db.WithContext(ctx).First(&model, "conversion_id = ?", conversionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, conversion.ErrNotFound
		}
		return nil, err
	}
	return fromConversionModel(&model), nil
}

// GetByTransactionID retrieves a conversion by the upstream transaction key
func (r *ConversionRepository) GetByTransactionID(ctx context.Context, transactionID string) (*conversion.Conversion, error) {
	var model ConversionModel
	if err := r.db.WithContext(ctx).First(&model, "transaction_id = ?", transactionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, conversion.ErrNotFound
		}
		return nil, err
	}
	return fromConversionModel(&model), nil
}

// UpdateStatus changes a conversion's settlement status (reconciliation)
func (r *ConversionRepository) UpdateStatus(ctx context.Context, conversionID string, status conversion.Status) error {
	result := r.db.WithContext(ctx).Model(&ConversionModel{}).
		Where("conversion_id = ?", conversionID).
		Update("status", string(status))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return conversion.ErrNotFound
	}
	return nil
}

func toConversionModel(c *conversion.Conversion) *ConversionModel {
	raw, _ := json.Marshal(c.RawPostback)
	return &ConversionModel{
		ConversionID:   c.ConversionID,
		TransactionID:  c.TransactionID,
		ClickID:        c.ClickID,
		OfferID:        c.OfferID,
		Payout:         c.Payout,
		UpstreamPayout: c.UpstreamPayout,
		Currency:       c.Currency,
		Status:         string(c.Status),
		MatchType:      string(c.MatchType),
		ConversionTime: c.ConversionTime,
		RawPostback:    string(raw),
	}
}

func fromConversionModel(m *ConversionModel) *conversion.Conversion {
	var raw map[string]string
	if m.RawPostback != "" {
		json.Unmarshal([]byte(m.RawPostback), &raw)
	}
	return &conversion.Conversion{
		ConversionID:   m.ConversionID,
		TransactionID:  m.TransactionID,
		ClickID:        m.ClickID,
		OfferID:        m.OfferID,
		Payout:         m.Payout,
		UpstreamPayout: m.UpstreamPayout,
		Currency:       m.Currency,
		Status:         conversion.Status(m.Status),
		MatchType:      conversion.MatchType(m.MatchType),
		ConversionTime: m.ConversionTime,
		RawPostback:    raw,
	}
}
