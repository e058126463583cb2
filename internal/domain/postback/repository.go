package postback

import (
	"context"
	"time"
)

// JobRepository persists postback jobs.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, postbackID string) (*Job, error)
	ListByConversion(ctx context.Context, conversionID string) ([]*Job, error)

	// ListDue returns pending jobs with next_attempt_at <= now, oldest first.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*Job, error)

	// Claim atomically transitions a job from pending to sent. It returns
	// ErrAlreadyClaimed when the job is not pending anymore, which is how
	// concurrent sweeps are kept off the same job.
	Claim(ctx context.Context, postbackID string) error

	// Update writes the post-attempt state of a claimed job.
	Update(ctx context.Context, job *Job) error
}

// LogRepository appends delivery attempt records. Append-only.
type LogRepository interface {
	Append(ctx context.Context, entry *DeliveryLog) error
}
