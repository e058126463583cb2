package click

import (
	"time"

	"github.com/google/uuid"

	"offertrack/internal/domain/fraud"
)

// DuplicateWindow is how far back a same user+offer+placement click counts
// as a duplicate.
const DuplicateWindow = 5 * time.Minute

// Click represents one inbound ad click. A click is immutable once stored,
// except for the converted flag and the fraud annotation.
type Click struct {
	ClickID     string `json:"click_id"`
	OfferID     string `json:"offer_id"`
	UserID      string `json:"user_id"`
	AffiliateID string `json:"affiliate_id,omitempty"`

	IPAddress  string `json:"ip_address"`
	Country    string `json:"country"`
	DeviceType string `json:"device_type"`
	Browser    string `json:"browser"`
	OS         string `json:"os"`
	UserAgent  string `json:"-"`

	SubID1 string `json:"sub_id1,omitempty"`
	SubID2 string `json:"sub_id2,omitempty"`
	SubID3 string `json:"sub_id3,omitempty"`
	SubID4 string `json:"sub_id4,omitempty"`
	SubID5 string `json:"sub_id5,omitempty"`

	IsUnique     bool            `json:"is_unique"`
	IsSuspicious bool            `json:"is_suspicious"`
	IsRejected   bool            `json:"is_rejected"`
	FraudScore   int             `json:"fraud_score"`
	RiskLevel    fraud.RiskLevel `json:"risk_level"`
	FraudFlags   []string        `json:"fraud_flags,omitempty"`

	ClickTime time.Time `json:"click_time"`
	Converted bool      `json:"converted"`
}

// NewClickID generates a fresh opaque click token. Uniqueness is ultimately
// enforced by the store's unique index; callers regenerate on conflict.
func NewClickID() string {
	return uuid.NewString()
}

// ApplyScore attaches a fraud annotation to the click. Scoring is advisory:
// it flags, it does not reject.
func (c *Click) ApplyScore(score fraud.FraudScore) {
	c.FraudScore = score.Score
	c.RiskLevel = score.RiskLevel
	c.FraudFlags = score.Flags
	c.IsSuspicious = score.Suspicious()
}
