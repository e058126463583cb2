package conversion

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the settlement state of a conversion.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// MatchType records how a conversion was attributed to a click.
type MatchType string

const (
	MatchClickID MatchType = "click_id"
	MatchSubID   MatchType = "sub_id"
	// MatchLatestOffer is the last-resort guess: most recent click on the
	// offer. Flagged so reconciliation can audit the attribution.
	MatchLatestOffer MatchType = "latest_offer"
	// MatchNone marks a conversion stored without a click reference for
	// manual reconciliation.
	MatchNone MatchType = "none"
)

// Conversion represents a completed action attributed to a click. At most one
// conversion exists per upstream transaction_id. The raw upstream payload is
// preserved verbatim and never mutated.
type Conversion struct {
	ConversionID  string  `json:"conversion_id"`
	TransactionID string  `json:"transaction_id"`
	ClickID       *string `json:"click_id,omitempty"`
	OfferID       string  `json:"offer_id"`

	Payout         decimal.Decimal `json:"payout"`
	UpstreamPayout decimal.Decimal `json:"upstream_payout"`
	Currency       string          `json:"currency"`

	Status    Status    `json:"status"`
	MatchType MatchType `json:"match_type"`

	ConversionTime time.Time         `json:"conversion_time"`
	RawPostback    map[string]string `json:"raw_postback,omitempty"`
}

// Unmatched reports whether the conversion lacks a click reference.
func (c *Conversion) Unmatched() bool {
	return c.MatchType == MatchNone || c.ClickID == nil
}

// NewConversionID generates a conversion identifier.
func NewConversionID() string {
	return uuid.NewString()
}

// ParseStatus maps an upstream status field onto a conversion status.
// Conversions are approved unless the payload explicitly signals otherwise.
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "rejected", "declined", "refused", "cancelled", "chargeback", "fraud":
		return StatusRejected
	case "pending", "hold", "held":
		return StatusPending
	default:
		return StatusApproved
	}
}
