package tracking

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"offertrack/internal/domain/conversion"
	"offertrack/internal/infrastructure/metrics"
)

// Field aliases accepted in upstream payloads. Partners disagree on naming;
// the first present alias wins and the raw payload keeps everything anyway.
var (
	transactionAliases = []string{"transaction_id", "txn_id", "tid", "trans_id"}
	clickIDAliases     = []string{"click_id", "clickid", "cid"}
	subIDAliases       = []string{"sub_id", "sub_id1", "sub1", "aff_sub"}
	offerAliases       = []string{"offer_id", "offer"}
	payoutAliases      = []string{"payout", "amount", "sum", "revenue"}
	statusAliases      = []string{"status", "state"}
)

// RecordConversionUseCase turns a raw completion payload into a matched
// conversion.
type RecordConversionUseCase struct {
	matcher *conversion.Matcher
	log     *logrus.Entry
	m       *metrics.Metrics
}

// NewRecordConversionUseCase wires the conversion recorder.
func NewRecordConversionUseCase(matcher *conversion.Matcher, log *logrus.Logger, m *metrics.Metrics) *RecordConversionUseCase {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RecordConversionUseCase{
		matcher: matcher,
		log:     log.WithField("component", "conversion_recorder"),
		m:       m,
	}
}

// Execute parses the field superset out of the raw payload and records the
// conversion. The payload is preserved verbatim on the record.
func (uc *RecordConversionUseCase) Execute(ctx context.Context, payload map[string]string) (*conversion.MatchResult, error) {
	in := conversion.MatchInput{
		TransactionID: firstOf(payload, transactionAliases),
		ClickID:       firstOf(payload, clickIDAliases),
		SubID:         firstOf(payload, subIDAliases),
		OfferID:       firstOf(payload, offerAliases),
		Status:        firstOf(payload, statusAliases),
		Raw:           payload,
	}

	if raw := firstOf(payload, payoutAliases); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			uc.log.WithField("payout", raw).Warn("unparseable payout in conversion payload, recording zero")
		} else {
			in.Payout = amount
		}
	}

	result, err := uc.matcher.MatchAndRecord(ctx, in)
	if err != nil {
		return nil, err
	}

	if uc.m != nil {
		if result.Created {
			uc.m.ConversionsCreated.Inc()
		} else {
			uc.m.ConversionsDuplicate.Inc()
		}
	}

	return result, nil
}

func firstOf(payload map[string]string, keys []string) string {
	for _, k := range keys {
		if v, ok := payload[k]; ok && v != "" {
			return v
		}
	}
	return ""
}
