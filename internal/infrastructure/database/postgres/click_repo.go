package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"offertrack/internal/domain/click"
	"offertrack/internal/domain/fraud"
)

// ClickModel is the database model for clicks
type ClickModel struct {
	ClickID     string `gorm:"type:varchar(64);primaryKey"`
	OfferID     string `gorm:"type:varchar(64);index;not null"`
	UserID      string `gorm:"type:varchar(64);index;not null"`
	AffiliateID string `gorm:"type:varchar(64);index"`

	IPAddress  string `gorm:"type:varchar(45)"`
	Country    string `gorm:"type:varchar(64)"`
	DeviceType string `gorm:"type:varchar(20)"`
	Browser    string `gorm:"type:varchar(100)"`
	OS         string `gorm:"type:varchar(50)"`
	UserAgent  string `gorm:"type:text"`

	SubID1 string `gorm:"type:varchar(255);index"`
	SubID2 string `gorm:"type:varchar(255)"`
	SubID3 string `gorm:"type:varchar(255)"`
	SubID4 string `gorm:"type:varchar(255)"`
	SubID5 string `gorm:"type:varchar(255)"`

	IsUnique     bool   `gorm:"not null"`
	IsSuspicious bool   `gorm:"not null"`
	IsRejected   bool   `gorm:"not null"`
	FraudScore   int    `gorm:"not null"`
	RiskLevel    string `gorm:"type:varchar(20)"`
	FraudFlags   string `gorm:"type:jsonb"`

	ClickTime time.Time `gorm:"index;not null"`
	Converted bool      `gorm:"not null"`
}

// TableName returns the table name for clicks
func (ClickModel) TableName() string {
	return "clicks"
}

// ClickRepository implements click.Repository
type ClickRepository struct {
	db *gorm.DB
}

// NewClickRepository creates a new click repository
func NewClickRepository(client *Client) *ClickRepository {
	return &ClickRepository{db: client.DB()}
}

// Create stores a new click. A primary-key collision maps to
// click.ErrDuplicateClickID so the recorder can regenerate the token.
func (r *ClickRepository) Create(ctx context.Context, c *click.Click) error {
	model := toClickModel(c)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return click.ErrDuplicateClickID
		}
		return err
	}
	return nil
}

// GetByClickID retrieves a click by its token
func (r *ClickRepository) GetByClickID(ctx context.Context, clickID string) (*click.Click, error) {
	var model ClickModel
	if err := r.db.WithContext(ctx).First(&model, "click_id = ?", clickID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, click.ErrNotFound
		}
		return nil, err
	}
	return fromClickModel(&model), nil
}

// LatestBySubID returns the most recent click on an offer carrying a sub_id1
func (r *ClickRepository) LatestBySubID(ctx context.Context, offerID, subID string) (*click.Click, error) {
	var model ClickModel
	err := r.db.WithContext(ctx).
		Where("offer_id = ? AND sub_id1 = ?", offerID, subID).
		Order("click_time DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, click.ErrNotFound
		}
		return nil, err
	}
	return fromClickModel(&model), nil
}

// LatestByOffer returns the most recent click on an offer
func (r *ClickRepository) LatestByOffer(ctx context.Context, offerID string) (*click.Click, error) {
	var model ClickModel
	err := r.db.WithContext(ctx).
		Where("offer_id = ?", offerID).
		Order("click_time DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, click.ErrNotFound
		}
		return nil, err
	}
	return fromClickModel(&model), nil
}

// CountRecent counts same user+offer+placement clicks since a time
func (r *ClickRepository) CountRecent(ctx context.Context, userID, offerID, subID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&ClickModel{}).
		Where("user_id = ? AND offer_id = ? AND sub_id1 = ? AND click_time >= ?", userID, offerID, subID, since).
		Count(&count).Error
	return count, err
}

// MarkConverted flips converted on an unconverted click. Converting an
// already-converted click is a no-op, not an error.
func (r *ClickRepository) MarkConverted(ctx context.Context, clickID string) error {
	return r.db.WithContext(ctx).Model(&ClickModel{}).
		Where("click_id = ? AND converted = ?", clickID, false).
		Update("converted", true).Error
}

func toClickModel(c *click.Click) *ClickModel {
	flags, _ := json.Marshal(c.FraudFlags)
	return &ClickModel{
		ClickID:      c.ClickID,
		OfferID:      c.OfferID,
		UserID:       c.UserID,
		AffiliateID:  c.AffiliateID,
		IPAddress:    c.IPAddress,
		Country:      c.Country,
		DeviceType:   c.DeviceType,
		Browser:      c.Browser,
		OS:           c.OS,
		UserAgent:    c.UserAgent,
		SubID1:       c.SubID1,
		SubID2:       c.SubID2,
		SubID3:       c.SubID3,
		SubID4:       c.SubID4,
		SubID5:       c.SubID5,
		IsUnique:     c.IsUnique,
		IsSuspicious: c.IsSuspicious,
		IsRejected:   c.IsRejected,
		FraudScore:   c.FraudScore,
		RiskLevel:    string(c.RiskLevel),
		FraudFlags:   string(flags),
		ClickTime:    c.ClickTime,
		Converted:    c.Converted,
	}
}

func fromClickModel(m *ClickModel) *click.Click {
	var flags []string
	if m.FraudFlags != "" {
		json.Unmarshal([]byte(m.FraudFlags), &flags)
	}
	return &click.Click{
		ClickID:      m.ClickID,
		OfferID:      m.OfferID,
		UserID:       m.UserID,
		AffiliateID:  m.AffiliateID,
		IPAddress:    m.IPAddress,
		Country:      m.Country,
		DeviceType:   m.DeviceType,
		Browser:      m.Browser,
		OS:           m.OS,
		UserAgent:    m.UserAgent,
		SubID1:       m.SubID1,
		SubID2:       m.SubID2,
		SubID3:       m.SubID3,
		SubID4:       m.SubID4,
		SubID5:       m.SubID5,
		IsUnique:     m.IsUnique,
		IsSuspicious: m.IsSuspicious,
		IsRejected:   m.IsRejected,
		FraudScore:   m.FraudScore,
		RiskLevel:    fraud.RiskLevel(m.RiskLevel),
		FraudFlags:   flags,
		ClickTime:    m.ClickTime,
		Converted:    m.Converted,
	}
}
