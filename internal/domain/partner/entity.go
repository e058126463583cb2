package partner

import "github.com/shopspring/decimal"

// PayoutType enumerates how an offer's downstream payout is derived.
type PayoutType string

const (
	PayoutFixed    PayoutType = "fixed"
	PayoutRevShare PayoutType = "revshare"
)

// Offer is the read-only campaign configuration this core consumes. Offer
// CRUD lives elsewhere; here an offer only gates clicks and prices payouts.
type Offer struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Active       bool            `json:"active"`
	PayoutType   PayoutType      `json:"payout_type"`
	SharePercent decimal.Decimal `json:"share_percent"`
	FixedPayout  decimal.Decimal `json:"fixed_payout"`
	Currency     string          `json:"currency"`
}

// Partner is a downstream party that receives postback notifications.
// Key identifies the partner on the inbound /postback/{partner_key} route.
type Partner struct {
	ID          string `json:"id"`
	Key         string `json:"key"`
	Name        string `json:"name"`
	Active      bool   `json:"active"`
	PostbackURL string `json:"postback_url"`
	Method      string `json:"method"` // GET or POST
	MaxAttempts int    `json:"max_attempts"`
}

// Eligible reports whether the partner can receive postbacks at all.
func (p Partner) Eligible() bool {
	return p.Active && p.PostbackURL != ""
}
