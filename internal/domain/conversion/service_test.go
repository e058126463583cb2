package conversion_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offertrack/internal/domain/click"
	"offertrack/internal/domain/conversion"
	"offertrack/internal/domain/partner"
	"offertrack/internal/domain/payout"
	"offertrack/internal/infrastructure/memory"
)

type countingEnqueuer struct {
	calls int
}

func (e *countingEnqueuer) EnqueueForConversion(_ context.Context, _ *conversion.Conversion, _ *click.Click, _ *partner.Offer) (int, error) {
	e.calls++
	return 2, nil
}

type matcherFixture struct {
	clicks   *memory.ClickRepository
	convs    *memory.ConversionRepository
	partners *memory.PartnerConfigRepository
	enqueuer *countingEnqueuer
	matcher  *conversion.Matcher
}

func newMatcherFixture(t *testing.T) *matcherFixture {
	t.Helper()
	f := &matcherFixture{
		clicks:   memory.NewClickRepository(),
		convs:    memory.NewConversionRepository(),
		partners: memory.NewPartnerConfigRepository(),
		enqueuer: &countingEnqueuer{},
	}
	f.partners.SeedOffer(&partner.Offer{
		ID:           "offer-1",
		Active:       true,
		PayoutType:   partner.PayoutRevShare,
		SharePercent: decimal.NewFromInt(50),
		Currency:     "USD",
	})
	f.matcher = conversion.NewMatcher(f.clicks, f.convs, f.partners, payout.NewCalculator(nil), f.enqueuer, nil)
	return f
}

func (f *matcherFixture) seedClick(t *testing.T, clickID, userID, subID string) {
	t.Helper()
	err := f.clicks.Create(context.Background(), &click.Click{
		ClickID:   clickID,
		OfferID:   "offer-1",
		UserID:    userID,
		SubID1:    subID,
		ClickTime: time.Now().UTC(),
	})
	require.NoError(t, err)
}

func TestMatchAndRecord_ByClickID(t *testing.T) {
	f := newMatcherFixture(t)
	f.seedClick(t, "clk-1", "user-1", "src-a")

	result, err := f.matcher.MatchAndRecord(context.Background(), conversion.MatchInput{
		TransactionID: "txn-1",
		ClickID:       "clk-1",
		Payout:        decimal.RequireFromString("10.00"),
		Status:        "approved",
	})

	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, conversion.MatchClickID, result.Conversion.MatchType)
	require.NotNil(t, result.Conversion.ClickID)
	assert.Equal(t, "clk-1", *result.Conversion.ClickID)
	assert.Equal(t, "offer-1", result.Conversion.OfferID)
	assert.True(t, result.Conversion.Payout.Equal(decimal.RequireFromString("5.00")), "got %s", result.Conversion.Payout)
	assert.True(t, result.Conversion.UpstreamPayout.Equal(decimal.RequireFromString("10.00")))
	assert.Equal(t, conversion.StatusApproved, result.Conversion.Status)
	assert.Equal(t, 2, result.JobsEnqueued)
	assert.Equal(t, 1, f.enqueuer.calls)

	stored, err := f.clicks.GetByClickID(context.Background(), "clk-1")
	require.NoError(t, err)
	assert.True(t, stored.Converted)
}

func TestMatchAndRecord_DuplicateTransaction_ReturnsExisting(t *testing.T) {
	f := newMatcherFixture(t)
	f.seedClick(t, "clk-1", "user-1", "src-a")

	first, err := f.matcher.MatchAndRecord(context.Background(), conversion.MatchInput{
		TransactionID: "txn-1",
		ClickID:       "clk-1",
		Payout:        decimal.RequireFromString("10.00"),
		Status:        "approved",
	})
	require.NoError(t, err)

	// Replay with a different payload: still the same conversion, untouched
	second, err := f.matcher.MatchAndRecord(context.Background(), conversion.MatchInput{
		TransactionID: "txn-1",
		ClickID:       "clk-1",
		Payout:        decimal.RequireFromString("999.00"),
		Status:        "rejected",
	})

	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Conversion.ConversionID, second.Conversion.ConversionID)
	assert.True(t, second.Conversion.Payout.Equal(first.Conversion.Payout))
	assert.Equal(t, conversion.StatusApproved, second.Conversion.Status)
	assert.Equal(t, 0, second.JobsEnqueued)
	assert.Equal(t, 1, f.enqueuer.calls)
}

func TestMatchAndRecord_FallsBackToSubID(t *testing.T) {
	f := newMatcherFixture(t)
	f.seedClick(t, "clk-1", "user-1", "src-a")
	f.seedClick(t, "clk-2", "user-2", "src-b")

	result, err := f.matcher.MatchAndRecord(context.Background(), conversion.MatchInput{
		TransactionID: "txn-2",
		OfferID:       "offer-1",
		SubID:         "src-b",
		Payout:        decimal.RequireFromString("4.00"),
		Status:        "approved",
	})

	require.NoError(t, err)
	assert.Equal(t, conversion.MatchSubID, result.Conversion.MatchType)
	require.NotNil(t, result.Conversion.ClickID)
	assert.Equal(t, "clk-2", *result.Conversion.ClickID)
}

func TestMatchAndRecord_FallsBackToLatestOfferClick(t *testing.T) {
	f := newMatcherFixture(t)
	f.seedClick(t, "clk-1", "user-1", "src-a")
	f.seedClick(t, "clk-2", "user-2", "src-b")

	result, err := f.matcher.MatchAndRecord(context.Background(), conversion.MatchInput{
		TransactionID: "txn-3",
		OfferID:       "offer-1",
		Payout:        decimal.RequireFromString("4.00"),
		Status:        "approved",
	})

	require.NoError(t, err)
	assert.Equal(t, conversion.MatchLatestOffer, result.Conversion.MatchType)
	require.NotNil(t, result.Conversion.ClickID)
	assert.Equal(t, "clk-2", *result.Conversion.ClickID)
}

func TestMatchAndRecord_NoClick_RecordedUnmatched(t *testing.T) {
	f := newMatcherFixture(t)

	result, err := f.matcher.MatchAndRecord(context.Background(), conversion.MatchInput{
		TransactionID: "txn-4",
		OfferID:       "offer-1",
		Payout:        decimal.RequireFromString("4.00"),
		Status:        "approved",
	})

	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, conversion.MatchNone, result.Conversion.MatchType)
	assert.Nil(t, result.Conversion.ClickID)
	assert.True(t, result.Conversion.Unmatched())

	// Conversion is retrievable for reconciliation
	stored, err := f.convs.GetByTransactionID(context.Background(), "txn-4")
	require.NoError(t, err)
	assert.Equal(t, result.Conversion.ConversionID, stored.ConversionID)
}

func TestMatchAndRecord_UnknownOffer_PayoutPassesThrough(t *testing.T) {
	f := newMatcherFixture(t)

	result, err := f.matcher.MatchAndRecord(context.Background(), conversion.MatchInput{
		TransactionID: "txn-5",
		OfferID:       "offer-unknown",
		Payout:        decimal.RequireFromString("7.77"),
		Status:        "approved",
	})

	require.NoError(t, err)
	assert.True(t, result.Conversion.Payout.Equal(decimal.RequireFromString("7.77")))
	assert.Equal(t, 0, result.JobsEnqueued)
	assert.Equal(t, 0, f.enqueuer.calls)
}

func TestMatchAndRecord_MissingTransactionID_Rejected(t *testing.T) {
	f := newMatcherFixture(t)

	_, err := f.matcher.MatchAndRecord(context.Background(), conversion.MatchInput{
		Payout: decimal.RequireFromString("1.00"),
	})

	assert.ErrorIs(t, err, conversion.ErrMissingTransactionID)
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want conversion.Status
	}{
		{"approved", conversion.StatusApproved},
		{"", conversion.StatusApproved},
		{"1", conversion.StatusApproved},
		{"pending", conversion.StatusPending},
		{"HOLD", conversion.StatusPending},
		{"rejected", conversion.StatusRejected},
		{"Chargeback", conversion.StatusRejected},
		{"fraud", conversion.StatusRejected},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, conversion.ParseStatus(tt.raw), "raw %q", tt.raw)
	}
}
