package postgres

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"offertrack/internal/domain/partner"
)

// OfferModel is the database model for offer configuration
type OfferModel struct {
	ID           string          `gorm:"type:varchar(64);primaryKey"`
	Name         string          `gorm:"type:varchar(255);not null"`
	Active       bool            `gorm:"index;not null"`
	PayoutType   string          `gorm:"type:varchar(16);not null"`
	SharePercent decimal.Decimal `gorm:"type:decimal(5,2)"`
	FixedPayout  decimal.Decimal `gorm:"type:decimal(15,2)"`
	Currency     string          `gorm:"type:varchar(3)"`
}

// TableName returns the table name for offers
func (OfferModel) TableName() string {
	return "offers"
}

// PartnerModel is the database model for partner configuration
type PartnerModel struct {
	ID          string `gorm:"type:varchar(64);primaryKey"`
	Key         string `gorm:"type:varchar(64);uniqueIndex;not null"`
	Name        string `gorm:"type:varchar(255);not null"`
	Active      bool   `gorm:"not null"`
	PostbackURL string `gorm:"type:text"`
	Method      string `gorm:"type:varchar(8)"`
	MaxAttempts int    `gorm:"not null"`
}

// TableName returns the table name for partners
func (PartnerModel) TableName() string {
	return "partners"
}

// OfferPartnerModel links offers to the partners receiving their conversions
type OfferPartnerModel struct {
	OfferID   string `gorm:"type:varchar(64);primaryKey"`
	PartnerID string `gorm:"type:varchar(64);primaryKey"`
}

// TableName returns the table name for offer/partner eligibility
func (OfferPartnerModel) TableName() string {
	return "offer_partners"
}

// OfferRepository implements partner.OfferRepository
type OfferRepository struct {
	db *gorm.DB
}

// NewOfferRepository creates a new offer repository
func NewOfferRepository(client *Client) *OfferRepository {
	return &OfferRepository{db: client.DB()}
}

// GetByID retrieves an offer
func (r *OfferRepository) GetByID(ctx context.Context, offerID string) (*partner.Offer, error) {
	var model OfferModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", offerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, partner.ErrOfferNotFound
		}
		return nil, err
	}
	return &partner.Offer{
		ID:           model.ID,
		Name:         model.Name,
		Active:       model.Active,
		PayoutType:   partner.PayoutType(model.PayoutType),
		SharePercent: model.SharePercent,
		FixedPayout:  model.FixedPayout,
		Currency:     model.Currency,
	}, nil
}

// PartnerRepository implements partner.PartnerRepository
type PartnerRepository struct {
	db *gorm.DB
}

// NewPartnerRepository creates a new partner repository
func NewPartnerRepository(client *Client) *PartnerRepository {
	return &PartnerRepository{db: client.DB()}
}

// GetByKey retrieves a partner by its postback ingress key
func (r *PartnerRepository) GetByKey(ctx context.Context, key string) (*partner.Partner, error) {
	var model PartnerModel
	if err := r.db.WithContext(ctx).First(&model, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, partner.ErrPartnerNotFound
		}
		return nil, err
	}
	return fromPartnerModel(&model), nil
}

// ListForOffer returns the partners configured for an offer
func (r *PartnerRepository) ListForOffer(ctx context.Context, offerID string) ([]*partner.Partner, error) {
	var models []PartnerModel
	err := r.db.WithContext(ctx).
		Joins("JOIN offer_partners ON offer_partners.partner_id = partners.id").
		Where("offer_partners.offer_id = ?", offerID).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	partners := make([]*partner.Partner, 0, len(models))
	for i := range models {
		partners = append(partners, fromPartnerModel(&models[i]))
	}
	return partners, nil
}

func fromPartnerModel(m *PartnerModel) *partner.Partner {
	return &partner.Partner{
		ID:          m.ID,
		Key:         m.Key,
		Name:        m.Name,
		Active:      m.Active,
		PostbackURL: m.PostbackURL,
		Method:      m.Method,
		MaxAttempts: m.MaxAttempts,
	}
}
