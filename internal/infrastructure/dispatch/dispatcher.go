// Package dispatch delivers postback notifications to partner endpoints and
// drives the retry state machine for queued jobs.
package dispatch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"offertrack/internal/domain/click"
	"offertrack/internal/domain/conversion"
	"offertrack/internal/domain/partner"
	"offertrack/internal/domain/postback"
	"offertrack/internal/infrastructure/metrics"
)

// Config tunes the dispatcher.
type Config struct {
	// SweepInterval is how often the retry sweep scans for due jobs.
	SweepInterval time.Duration
	// RequestTimeout bounds each delivery attempt.
	RequestTimeout time.Duration
	// BackoffBase is the delay after the first failed attempt; it doubles
	// per attempt up to BackoffMax.
	BackoffBase time.Duration
	BackoffMax  time.Duration
	// BatchSize caps how many due jobs one sweep claims.
	BatchSize int
	// DefaultMaxAttempts applies to partners without their own limit.
	DefaultMaxAttempts int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		SweepInterval:      15 * time.Second,
		RequestTimeout:     5 * time.Second,
		BackoffBase:        time.Minute,
		BackoffMax:         30 * time.Minute,
		BatchSize:          50,
		DefaultMaxAttempts: postback.DefaultMaxAttempts,
	}
}

// Dispatcher enqueues postback jobs for new conversions and runs the polling
// retry sweep. The sweep is the only writer of job status transitions; the
// atomic claim in the repository keeps concurrent sweeps off the same job.
type Dispatcher struct {
	jobs     postback.JobRepository
	logs     postback.LogRepository
	partners partner.PartnerRepository

	client *http.Client
	clock  clockwork.Clock
	log    *logrus.Entry
	m      *metrics.Metrics
	cfg    Config
}

// NewDispatcher creates a dispatcher. metrics may be nil.
func NewDispatcher(
	jobs postback.JobRepository,
	logs postback.LogRepository,
	partners partner.PartnerRepository,
	cfg Config,
	clock clockwork.Clock,
	log *logrus.Logger,
	m *metrics.Metrics,
) *Dispatcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultConfig().SweepInterval
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultConfig().RequestTimeout
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	return &Dispatcher{
		jobs:     jobs,
		logs:     logs,
		partners: partners,
		client:   &http.Client{Timeout: cfg.RequestTimeout},
		clock:    clock,
		log:      log.WithField("component", "postback_dispatcher"),
		m:        m,
		cfg:      cfg,
	}
}

// EnqueueForConversion creates one pending job per eligible partner for the
// conversion's offer. URLs are rendered at enqueue time so the queue rows are
// self-contained. Implements conversion.PostbackEnqueuer.
func (d *Dispatcher) EnqueueForConversion(ctx context.Context, conv *conversion.Conversion, clk *click.Click, offer *partner.Offer) (int, error) {
	eligible, err := d.partners.ListForOffer(ctx, offer.ID)
	if err != nil {
		return 0, err
	}

	values := MacroValues(conv, clk)
	created := 0
	for _, p := range eligible {
		if !p.Eligible() {
			continue
		}

		rendered, unknown, err := RenderURL(p.PostbackURL, values)
		if err != nil {
			d.log.WithError(err).WithField("partner_id", p.ID).Error("skipping partner with malformed postback template")
			continue
		}
		if len(unknown) > 0 {
			// Degraded, not blocked: the notification still goes out.
			d.log.WithFields(logrus.Fields{
				"partner_id":     p.ID,
				"unknown_macros": strings.Join(unknown, ","),
			}).Warn("postback template contains unknown macros")
		}

		maxAttempts := p.MaxAttempts
		if maxAttempts <= 0 {
			maxAttempts = d.cfg.DefaultMaxAttempts
		}
		job := postback.NewJob(conv.ConversionID, p.ID, rendered, p.Method, maxAttempts, d.clock.Now().UTC())
		if err := d.jobs.Create(ctx, job); err != nil {
			d.log.WithError(err).WithField("partner_id", p.ID).Error("failed to enqueue postback job")
			continue
		}
		created++
		if d.m != nil {
			d.m.PostbackJobsEnqueued.Inc()
		}
	}
	return created, nil
}

// Run executes the retry sweep until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := d.clock.NewTicker(d.cfg.SweepInterval)
	defer ticker.Stop()

	d.log.WithField("interval", d.cfg.SweepInterval).Info("postback sweep started")
	for {
		select {
		case <-ctx.Done():
			d.log.Info("postback sweep stopped")
			return
		case <-ticker.Chan():
			if err := d.Sweep(ctx); err != nil {
				d.log.WithError(err).Error("postback sweep failed")
			}
		}
	}
}

// Sweep claims and attempts every due job once. Jobs claimed by a concurrent
// sweep are skipped.
func (d *Dispatcher) Sweep(ctx context.Context) error {
	due, err := d.jobs.ListDue(ctx, d.clock.Now().UTC(), d.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, job := range due {
		if err := d.jobs.Claim(ctx, job.PostbackID); err != nil {
			if errors.Is(err, postback.ErrAlreadyClaimed) {
				continue
			}
			return err
		}
		d.attempt(ctx, job)
	}
	return nil
}

// attempt delivers one claimed job and persists the resulting transition.
func (d *Dispatcher) attempt(ctx context.Context, job *postback.Job) {
	start := d.clock.Now()
	code, body, attemptErr := d.deliver(ctx, job)
	now := d.clock.Now().UTC()

	entry := &postback.DeliveryLog{
		PostbackID:   job.PostbackID,
		PartnerID:    job.PartnerID,
		URL:          job.URL,
		Attempt:      job.Attempts + 1,
		ResponseCode: code,
		ResponseBody: body,
		Duration:     now.Sub(start.UTC()),
		AttemptedAt:  now,
	}

	log := d.log.WithFields(logrus.Fields{
		"postback_id": job.PostbackID,
		"partner_id":  job.PartnerID,
		"url":         job.URL,
		"attempt":     job.Attempts + 1,
		"code":        code,
	})

	if attemptErr == nil && code >= 200 && code < 300 {
		job.RecordSuccess(code, now)
		log.Info("postback delivered")
		if d.m != nil {
			d.m.PostbackAttempts.WithLabelValues(metrics.OutcomeSuccess).Inc()
		}
	} else {
		errText := "unexpected response status"
		if attemptErr != nil {
			errText = attemptErr.Error()
		}
		entry.Error = errText
		backoff := postback.Backoff(job.Attempts+1, d.cfg.BackoffBase, d.cfg.BackoffMax)
		job.RecordFailure(code, errText, backoff, now)

		if job.Status == postback.StatusFailed {
			log.WithField("error", errText).Error("postback failed permanently, attempts exhausted")
			if d.m != nil {
				d.m.PostbackAttempts.WithLabelValues(metrics.OutcomeFailed).Inc()
			}
		} else {
			log.WithFields(logrus.Fields{"error": errText, "next_attempt_at": job.NextAttemptAt}).Warn("postback attempt failed, scheduled for retry")
			if d.m != nil {
				d.m.PostbackAttempts.WithLabelValues(metrics.OutcomeRetry).Inc()
			}
		}
	}

	if err := d.logs.Append(ctx, entry); err != nil {
		d.log.WithError(err).Warn("failed to append postback log")
	}
	if err := d.jobs.Update(ctx, job); err != nil {
		d.log.WithError(err).Error("failed to persist postback job state")
	}
}

// deliver performs the HTTP call. POST sends the rendered query string as a
// form body; GET sends the URL as rendered.
func (d *Dispatcher) deliver(ctx context.Context, job *postback.Job) (int, string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.RequestTimeout)
	defer cancel()

	method := strings.ToUpper(job.Method)
	target := job.URL
	var bodyReader io.Reader

	if method == http.MethodPost {
		if u, err := url.Parse(job.URL); err == nil && u.RawQuery != "" {
			q := u.RawQuery
			u.RawQuery = ""
			target = u.String()
			bodyReader = strings.NewReader(q)
		}
	} else {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return 0, "", err
	}
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	// Response bodies are recorded for audit, never interpreted.
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, string(raw), nil
}
