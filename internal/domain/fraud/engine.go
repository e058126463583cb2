package fraud

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// SignalProvider looks up network reputation signals for an IP address.
// Implementations are expected to cache; lookups are best-effort.
type SignalProvider interface {
	Lookup(ctx context.Context, ip string) (IPSignals, error)
}

// DeviceHistory stores the last device fingerprint seen per user identity.
type DeviceHistory interface {
	LastFingerprint(ctx context.Context, userID string) (string, error)
	RecordFingerprint(ctx context.Context, userID, fingerprint string) error
}

// SessionHistory tracks per-user event timestamps over rolling windows.
type SessionHistory interface {
	CountEvents(ctx context.Context, userID string, window time.Duration) (int64, error)
	RecordEvent(ctx context.Context, userID string, at time.Time) error
}

// EvalInput carries the per-event facts the Engine combines with history.
type EvalInput struct {
	UserID         string
	IP             string
	UserAgent      string
	Fingerprint    string
	DuplicateClick bool
	TimeToActionMs int64
}

// Engine assembles signal bundles and scores them. All history lookups are
// best-effort: a failed lookup contributes no weight rather than an error,
// so scoring never blocks the event being recorded.
type Engine struct {
	provider SignalProvider
	devices  DeviceHistory
	sessions SessionHistory
	log      *logrus.Entry
}

// NewEngine creates a fraud scoring engine. Any dependency may be nil, in
// which case the corresponding signals are simply not evaluated.
func NewEngine(provider SignalProvider, devices DeviceHistory, sessions SessionHistory, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{
		provider: provider,
		devices:  devices,
		sessions: sessions,
		log:      log.WithField("component", "fraud_engine"),
	}
}

// Evaluate builds the signal bundle for an event and scores it. The returned
// IPSignals carry the geo lookup result so callers can reuse the country
// without a second provider call.
func (e *Engine) Evaluate(ctx context.Context, in EvalInput) (FraudScore, IPSignals) {
	bundle := SignalBundle{
		UserAgent:      in.UserAgent,
		DuplicateClick: in.DuplicateClick,
		TimeToActionMs: in.TimeToActionMs,
	}

	if e.provider != nil && in.IP != "" {
		signals, err := e.provider.Lookup(ctx, in.IP)
		if err != nil {
			e.log.WithError(err).WithField("ip", in.IP).Warn("signal provider lookup failed, scoring without geo signals")
		} else {
			bundle.IP = signals
		}
	}

	if e.devices != nil && in.UserID != "" && in.Fingerprint != "" {
		last, err := e.devices.LastFingerprint(ctx, in.UserID)
		if err != nil {
			e.log.WithError(err).Warn("device history lookup failed")
		} else if last != "" && last != in.Fingerprint {
			bundle.DeviceChanged = true
		}
	}

	if e.sessions != nil && in.UserID != "" {
		count, err := e.sessions.CountEvents(ctx, in.UserID, time.Hour)
		if err != nil {
			e.log.WithError(err).Warn("session history lookup failed")
		} else {
			bundle.EventsLastHour = int(count)
		}
	}

	return Score(bundle), bundle.IP
}

// RecordEvent updates device and session history after an event has been
// accepted. Failures are logged and swallowed; history is advisory.
func (e *Engine) RecordEvent(ctx context.Context, userID, fingerprint string, at time.Time) {
	if userID == "" {
		return
	}
	if e.devices != nil && fingerprint != "" {
		if err := e.devices.RecordFingerprint(ctx, userID, fingerprint); err != nil {
			e.log.WithError(err).Warn("failed to record device fingerprint")
		}
	}
	if e.sessions != nil {
		if err := e.sessions.RecordEvent(ctx, userID, at); err != nil {
			e.log.WithError(err).Warn("failed to record session event")
		}
	}
}
