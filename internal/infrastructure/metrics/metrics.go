// Package metrics defines the Prometheus instrumentation for the tracking
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Attempt outcomes used as label values on PostbackAttempts.
const (
	OutcomeSuccess = "success"
	OutcomeRetry   = "retry"
	OutcomeFailed  = "failed"
)

// Metrics holds the pipeline counters.
type Metrics struct {
	ClicksRecorded       prometheus.Counter
	ConversionsCreated   prometheus.Counter
	ConversionsDuplicate prometheus.Counter
	PostbackJobsEnqueued prometheus.Counter
	PostbackAttempts     *prometheus.CounterVec
}

// New registers the pipeline counters with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ClicksRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "offertrack_clicks_recorded_total",
			Help: "Clicks accepted and stored",
		}),
		ConversionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "offertrack_conversions_created_total",
			Help: "Conversions recorded (first submission of a transaction_id)",
		}),
		ConversionsDuplicate: factory.NewCounter(prometheus.CounterOpts{
			Name: "offertrack_conversions_duplicate_total",
			Help: "Conversion submissions resolved to an existing transaction_id",
		}),
		PostbackJobsEnqueued: factory.NewCounter(prometheus.CounterOpts{
			Name: "offertrack_postback_jobs_enqueued_total",
			Help: "Postback jobs created",
		}),
		PostbackAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "offertrack_postback_attempts_total",
			Help: "Postback delivery attempts by outcome",
		}, []string{"outcome"}),
	}
}
