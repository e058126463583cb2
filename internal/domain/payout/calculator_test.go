package payout_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"offertrack/internal/domain/partner"
	"offertrack/internal/domain/payout"
)

func TestCompute_RevShare_HalfOfUpstream(t *testing.T) {
	calc := payout.NewCalculator(nil)
	offer := &partner.Offer{
		ID:           "offer-1",
		PayoutType:   partner.PayoutRevShare,
		SharePercent: decimal.NewFromInt(50),
	}

	result := calc.Compute(offer, decimal.RequireFromString("10.00"))

	assert.True(t, result.Equal(decimal.RequireFromString("5.00")), "got %s", result)
}

func TestCompute_RevShare_RoundsToTwoDecimals(t *testing.T) {
	calc := payout.NewCalculator(nil)
	offer := &partner.Offer{
		ID:           "offer-1",
		PayoutType:   partner.PayoutRevShare,
		SharePercent: decimal.NewFromInt(33),
	}

	// 33% of 10.00 is 3.30; 33% of 0.10 is 0.033 -> 0.03
	assert.True(t, calc.Compute(offer, decimal.RequireFromString("10.00")).Equal(decimal.RequireFromString("3.30")))
	assert.True(t, calc.Compute(offer, decimal.RequireFromString("0.10")).Equal(decimal.RequireFromString("0.03")))
}

func TestCompute_Fixed_IgnoresUpstreamAmount(t *testing.T) {
	calc := payout.NewCalculator(nil)
	offer := &partner.Offer{
		ID:          "offer-2",
		PayoutType:  partner.PayoutFixed,
		FixedPayout: decimal.RequireFromString("2.50"),
	}

	assert.True(t, calc.Compute(offer, decimal.RequireFromString("100.00")).Equal(decimal.RequireFromString("2.50")))
	assert.True(t, calc.Compute(offer, decimal.Zero).Equal(decimal.RequireFromString("2.50")))
}

func TestCompute_RevShare_ZeroUpstream_ZeroPayout(t *testing.T) {
	calc := payout.NewCalculator(nil)
	offer := &partner.Offer{
		ID:           "offer-3",
		PayoutType:   partner.PayoutRevShare,
		SharePercent: decimal.NewFromInt(75),
	}

	assert.True(t, calc.Compute(offer, decimal.Zero).IsZero())
}
