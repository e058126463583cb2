// Package tracking contains the request-path use cases: recording clicks and
// matching conversions.
package tracking

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"offertrack/internal/domain/click"
	"offertrack/internal/domain/fraud"
	"offertrack/internal/domain/partner"
	"offertrack/internal/infrastructure/ipintel"
	"offertrack/internal/infrastructure/metrics"
	"offertrack/internal/infrastructure/useragent"
)

// clickIDRetries bounds click_id regeneration on unique-index collisions.
const clickIDRetries = 3

// RecordClickInput is one inbound click request.
type RecordClickInput struct {
	OfferID     string
	UserID      string
	AffiliateID string
	SubID1      string
	SubID2      string
	SubID3      string
	SubID4      string
	SubID5      string
	IPAddress   string
	UserAgent   string

	// TimeToActionMs is the tracker-reported render-to-click elapsed time;
	// zero means not measured.
	TimeToActionMs int64
}

// RecordClickUseCase persists clicks with enrichment and a synchronous fraud
// score, so callers observe the risk classification at click time.
type RecordClickUseCase struct {
	clicks click.Repository
	offers partner.OfferRepository
	engine *fraud.Engine
	clock  clockwork.Clock
	log    *logrus.Entry
	m      *metrics.Metrics
}

// NewRecordClickUseCase wires the click recorder.
func NewRecordClickUseCase(
	clicks click.Repository,
	offers partner.OfferRepository,
	engine *fraud.Engine,
	clock clockwork.Clock,
	log *logrus.Logger,
	m *metrics.Metrics,
) *RecordClickUseCase {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RecordClickUseCase{
		clicks: clicks,
		offers: offers,
		engine: engine,
		clock:  clock,
		log:    log.WithField("component", "click_recorder"),
		m:      m,
	}
}

// Execute validates the offer, enriches the click, scores it and stores it.
func (uc *RecordClickUseCase) Execute(ctx context.Context, in RecordClickInput) (*click.Click, error) {
	offer, err := uc.offers.GetByID(ctx, in.OfferID)
	if err != nil {
		if errors.Is(err, partner.ErrOfferNotFound) {
			return nil, click.ErrInvalidOffer
		}
		return nil, err
	}
	if !offer.Active {
		return nil, click.ErrInvalidOffer
	}

	now := uc.clock.Now().UTC()
	device := useragent.Parse(in.UserAgent)

	duplicate := false
	recent, err := uc.clicks.CountRecent(ctx, in.UserID, in.OfferID, in.SubID1, now.Add(-click.DuplicateWindow))
	if err != nil {
		uc.log.WithError(err).Warn("duplicate-click lookup failed")
	} else {
		duplicate = recent > 0
	}

	score, ipSignals := uc.engine.Evaluate(ctx, fraud.EvalInput{
		UserID:         in.UserID,
		IP:             in.IPAddress,
		UserAgent:      in.UserAgent,
		Fingerprint:    device.Fingerprint(),
		DuplicateClick: duplicate,
		TimeToActionMs: in.TimeToActionMs,
	})

	country := ipSignals.Country
	if country == "" {
		country = ipintel.UnknownCountry
	}

	c := &click.Click{
		OfferID:     in.OfferID,
		UserID:      in.UserID,
		AffiliateID: in.AffiliateID,
		IPAddress:   in.IPAddress,
		Country:     country,
		DeviceType:  device.DeviceType,
		Browser:     device.Browser,
		OS:          device.OS,
		UserAgent:   in.UserAgent,
		SubID1:      in.SubID1,
		SubID2:      in.SubID2,
		SubID3:      in.SubID3,
		SubID4:      in.SubID4,
		SubID5:      in.SubID5,
		IsUnique:    !duplicate,
		ClickTime:   now,
	}
	c.ApplyScore(score)

	if err := uc.insertWithFreshID(ctx, c); err != nil {
		return nil, err
	}

	uc.engine.RecordEvent(ctx, in.UserID, device.Fingerprint(), now)

	if uc.m != nil {
		uc.m.ClicksRecorded.Inc()
	}
	uc.log.WithFields(logrus.Fields{
		"click_id":    c.ClickID,
		"offer_id":    c.OfferID,
		"user_id":     c.UserID,
		"fraud_score": c.FraudScore,
		"risk_level":  c.RiskLevel,
	}).Info("click recorded")

	return c, nil
}

// insertWithFreshID generates click tokens until the unique index accepts
// one. Collisions are practically impossible but cheap to handle.
func (uc *RecordClickUseCase) insertWithFreshID(ctx context.Context, c *click.Click) error {
	for i := 0; i < clickIDRetries; i++ {
		c.ClickID = click.NewClickID()
		err := uc.clicks.Create(ctx, c)
		if err == nil {
			return nil
		}
		if !errors.Is(err, click.ErrDuplicateClickID) {
			return err
		}
	}
	return fmt.Errorf("could not allocate unique click_id after %d attempts", clickIDRetries)
}
