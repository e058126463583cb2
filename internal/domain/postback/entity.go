package postback

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the delivery state of a postback job.
type JobStatus string

const (
	// StatusPending jobs are waiting for a delivery attempt.
	StatusPending JobStatus = "pending"
	// StatusSent marks a job claimed by a sweep; the claim is released back
	// to pending (with backoff) on failure.
	StatusSent JobStatus = "sent"
	// StatusSuccess is terminal: a 2xx response was received.
	StatusSuccess JobStatus = "success"
	// StatusFailed is terminal: max_attempts exhausted.
	StatusFailed JobStatus = "failed"
)

// DefaultMaxAttempts applies when partner config does not set one.
const DefaultMaxAttempts = 5

// Job is one queued outbound notification derived from a conversion.
// Status transitions are driven only by the dispatcher sweep.
type Job struct {
	PostbackID   string `json:"postback_id"`
	ConversionID string `json:"conversion_id"`
	PartnerID    string `json:"partner_id"`

	URL    string `json:"url"`
	Method string `json:"method"`

	Status        JobStatus `json:"status"`
	Attempts      int       `json:"attempts"`
	MaxAttempts   int       `json:"max_attempts"`
	NextAttemptAt time.Time `json:"next_attempt_at"`

	ResponseCode int    `json:"response_code,omitempty"`
	Error        string `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewJob creates a pending job due immediately.
func NewJob(conversionID, partnerID, url, method string, maxAttempts int, now time.Time) *Job {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if method == "" {
		method = "GET"
	}
	return &Job{
		PostbackID:    uuid.NewString(),
		ConversionID:  conversionID,
		PartnerID:     partnerID,
		URL:           url,
		Method:        method,
		Status:        StatusPending,
		MaxAttempts:   maxAttempts,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Terminal reports whether the job will never be attempted again.
func (j *Job) Terminal() bool {
	return j.Status == StatusSuccess || j.Status == StatusFailed
}

// RecordSuccess marks the job terminally delivered.
func (j *Job) RecordSuccess(code int, now time.Time) {
	j.Attempts++
	j.ResponseCode = code
	j.Error = ""
	j.Status = StatusSuccess
	j.UpdatedAt = now
}

// RecordFailure counts a failed attempt. The job returns to pending with a
// backoff schedule until attempts reach max_attempts, then fails terminally.
func (j *Job) RecordFailure(code int, errText string, backoff time.Duration, now time.Time) {
	j.Attempts++
	j.ResponseCode = code
	j.Error = errText
	j.UpdatedAt = now
	if j.Attempts >= j.MaxAttempts {
		j.Status = StatusFailed
		return
	}
	j.Status = StatusPending
	j.NextAttemptAt = now.Add(backoff)
}

// Backoff returns the exponential delay before attempt n+1 given n completed
// attempts: base, 2*base, 4*base, ... capped at max.
func Backoff(attempts int, base, max time.Duration) time.Duration {
	if base <= 0 {
		base = time.Minute
	}
	d := base
	for i := 1; i < attempts; i++ {
		d *= 2
		if max > 0 && d >= max {
			return max
		}
	}
	if max > 0 && d > max {
		return max
	}
	return d
}

// DeliveryLog is one append-only record of a delivery attempt.
type DeliveryLog struct {
	ID           string        `json:"id"`
	PostbackID   string        `json:"postback_id"`
	PartnerID    string        `json:"partner_id"`
	URL          string        `json:"url"`
	Attempt      int           `json:"attempt"`
	ResponseCode int           `json:"response_code"`
	ResponseBody string        `json:"response_body,omitempty"`
	Error        string        `json:"error,omitempty"`
	Duration     time.Duration `json:"duration"`
	AttemptedAt  time.Time     `json:"attempted_at"`
}
