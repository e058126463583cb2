package payout

import (
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"offertrack/internal/domain/partner"
)

var oneHundred = decimal.NewFromInt(100)

// Calculator derives the downstream payout from an offer's revenue-share
// configuration. Every computation is written to an append-only audit log;
// the log is for reconciliation only and never drives decisions.
type Calculator struct {
	audit *logrus.Entry
}

// NewCalculator creates a payout calculator writing audit entries to log.
func NewCalculator(log *logrus.Logger) *Calculator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Calculator{audit: log.WithField("component", "payout_audit")}
}

// Compute returns the amount to forward downstream for a conversion.
// Percentage offers take share_percent of the upstream amount rounded to two
// decimal places; fixed offers pay fixed_payout regardless of the upstream
// amount (which the caller still records on the conversion).
func (c *Calculator) Compute(offer *partner.Offer, upstream decimal.Decimal) decimal.Decimal {
	var result decimal.Decimal
	rounded := false

	switch offer.PayoutType {
	case partner.PayoutFixed:
		result = offer.FixedPayout
	default:
		exact := upstream.Mul(offer.SharePercent).Div(oneHundred)
		result = exact.Round(2)
		rounded = !result.Equal(exact)
	}

	c.audit.WithFields(logrus.Fields{
		"offer_id":    offer.ID,
		"payout_type": offer.PayoutType,
		"upstream":    upstream.String(),
		"share":       offer.SharePercent.String(),
		"result":      result.String(),
		"rounded":     rounded,
	}).Info("payout computed")

	return result
}
