package conversion

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"offertrack/internal/domain/click"
	"offertrack/internal/domain/partner"
	"offertrack/internal/domain/payout"
)

// PostbackEnqueuer creates outbound notification jobs for a new conversion.
// Implemented by the dispatch layer.
type PostbackEnqueuer interface {
	EnqueueForConversion(ctx context.Context, conv *Conversion, clk *click.Click, offer *partner.Offer) (int, error)
}

// MatchInput is an inbound completion notification, from an upstream partner
// postback or an internal callback.
type MatchInput struct {
	TransactionID string
	OfferID       string
	ClickID       string
	SubID         string
	Payout        decimal.Decimal
	Status        string
	Raw           map[string]string
}

// MatchResult is the outcome of MatchAndRecord.
type MatchResult struct {
	Conversion *Conversion
	// Created is false when the transaction_id was already recorded; in that
	// case Conversion is the existing record, unchanged, and no postback jobs
	// were enqueued.
	Created bool
	// JobsEnqueued is the number of postback jobs created for this conversion.
	JobsEnqueued int
}

// Matcher resolves completion notifications to clicks and records conversions
// exactly once per upstream transaction.
type Matcher struct {
	clicks      click.Repository
	conversions Repository
	offers      partner.OfferRepository
	calculator  *payout.Calculator
	enqueuer    PostbackEnqueuer
	log         *logrus.Entry
}

// NewMatcher creates a conversion matcher. The enqueuer may be nil, in which
// case conversions are recorded without outbound notifications.
func NewMatcher(
	clicks click.Repository,
	conversions Repository,
	offers partner.OfferRepository,
	calculator *payout.Calculator,
	enqueuer PostbackEnqueuer,
	log *logrus.Logger,
) *Matcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Matcher{
		clicks:      clicks,
		conversions: conversions,
		offers:      offers,
		calculator:  calculator,
		enqueuer:    enqueuer,
		log:         log.WithField("component", "conversion_matcher"),
	}
}

// MatchAndRecord attributes a completion notification to a click, records the
// conversion idempotently keyed by transaction_id, computes the downstream
// payout and enqueues postback jobs. Submitting the same transaction_id again,
// with any payload, returns the existing conversion and enqueues nothing.
func (m *Matcher) MatchAndRecord(ctx context.Context, in MatchInput) (*MatchResult, error) {
	if in.TransactionID == "" {
		return nil, ErrMissingTransactionID
	}

	// Fast path. The unique index remains the real guarantee; this only
	// avoids pointless work for obvious replays.
	if existing, err := m.conversions.GetByTransactionID(ctx, in.TransactionID); err == nil {
		return &MatchResult{Conversion: existing, Created: false}, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	clk, matchType := m.resolveClick(ctx, in)

	offerID := in.OfferID
	if offerID == "" && clk != nil {
		offerID = clk.OfferID
	}

	conv := &Conversion{
		ConversionID:   NewConversionID(),
		TransactionID:  in.TransactionID,
		OfferID:        offerID,
		UpstreamPayout: in.Payout,
		Payout:         in.Payout,
		Status:         ParseStatus(in.Status),
		MatchType:      matchType,
		ConversionTime: time.Now().UTC(),
		RawPostback:    in.Raw,
	}
	if clk != nil {
		id := clk.ClickID
		conv.ClickID = &id
	}

	var offer *partner.Offer
	if offerID != "" {
		o, err := m.offers.GetByID(ctx, offerID)
		if err != nil {
			// Upstream payout passes through unchanged when the offer config
			// is missing; the record still exists for reconciliation.
			m.log.WithError(err).WithField("offer_id", offerID).Warn("offer config not found for conversion")
		} else {
			offer = o
			conv.Currency = o.Currency
			conv.Payout = m.calculator.Compute(o, in.Payout)
		}
	}

	if err := m.conversions.Create(ctx, conv); err != nil {
		if errors.Is(err, ErrDuplicateTransaction) {
			// Lost the race with a concurrent submit of the same transaction.
			existing, getErr := m.conversions.GetByTransactionID(ctx, in.TransactionID)
			if getErr != nil {
				return nil, getErr
			}
			return &MatchResult{Conversion: existing, Created: false}, nil
		}
		return nil, err
	}

	if clk != nil {
		if err := m.clicks.MarkConverted(ctx, clk.ClickID); err != nil {
			m.log.WithError(err).WithField("click_id", clk.ClickID).Warn("failed to mark click converted")
		}
	} else {
		m.log.WithFields(logrus.Fields{
			"transaction_id": in.TransactionID,
			"offer_id":       offerID,
		}).Warn("conversion recorded without click reference")
	}

	result := &MatchResult{Conversion: conv, Created: true}

	if m.enqueuer != nil && offer != nil {
		n, err := m.enqueuer.EnqueueForConversion(ctx, conv, clk, offer)
		if err != nil {
			m.log.WithError(err).WithField("conversion_id", conv.ConversionID).Error("failed to enqueue postback jobs")
		}
		result.JobsEnqueued = n
	}

	return result, nil
}

// resolveClick applies the matching order: exact click_id, then sub_id, then
// most recent click on the offer. The last step can misattribute under
// concurrent clicks from different users; the match type records it so
// reconciliation can audit the guess.
func (m *Matcher) resolveClick(ctx context.Context, in MatchInput) (*click.Click, MatchType) {
	if in.ClickID != "" {
		if clk, err := m.clicks.GetByClickID(ctx, in.ClickID); err == nil {
			return clk, MatchClickID
		}
	}
	if in.SubID != "" && in.OfferID != "" {
		if clk, err := m.clicks.LatestBySubID(ctx, in.OfferID, in.SubID); err == nil {
			return clk, MatchSubID
		}
	}
	if in.OfferID != "" {
		if clk, err := m.clicks.LatestByOffer(ctx, in.OfferID); err == nil {
			return clk, MatchLatestOffer
		}
	}
	return nil, MatchNone
}

// GetByID retrieves a conversion.
func (m *Matcher) GetByID(ctx context.Context, conversionID string) (*Conversion, error) {
	return m.conversions.GetByID(ctx, conversionID)
}
