package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"offertrack/internal/domain/postback"
)

// PostbackJobRepository implements postback.JobRepository in memory. Claim is
// a compare-and-swap under the lock, matching the SQL conditional update.
type PostbackJobRepository struct {
	mu   sync.RWMutex
	jobs map[string]*postback.Job
}

// NewPostbackJobRepository creates an empty in-memory job store.
func NewPostbackJobRepository() *PostbackJobRepository {
	return &PostbackJobRepository{jobs: make(map[string]*postback.Job)}
}

func (r *PostbackJobRepository) Create(_ context.Context, job *postback.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.jobs[job.PostbackID] = &cp
	return nil
}

func (r *PostbackJobRepository) GetByID(_ context.Context, postbackID string) (*postback.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[postbackID]
	if !ok {
		return nil, postback.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

func (r *PostbackJobRepository) ListByConversion(_ context.Context, conversionID string) ([]*postback.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var jobs []*postback.Job
	for _, j := range r.jobs {
		if j.ConversionID == conversionID {
			cp := *j
			jobs = append(jobs, &cp)
		}
	}
	return jobs, nil
}

func (r *PostbackJobRepository) ListDue(_ context.Context, now time.Time, limit int) ([]*postback.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var due []*postback.Job
	for _, j := range r.jobs {
		if j.Status == postback.StatusPending && !j.NextAttemptAt.After(now) {
			cp := *j
			due = append(due, &cp)
		}
	}
	sort.Slice(due, func(i, k int) bool { return due[i].NextAttemptAt.Before(due[k].NextAttemptAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *PostbackJobRepository) Claim(_ context.Context, postbackID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[postbackID]
	if !ok {
		return postback.ErrJobNotFound
	}
	if j.Status != postback.StatusPending {
		return postback.ErrAlreadyClaimed
	}
	j.Status = postback.StatusSent
	return nil
}

func (r *PostbackJobRepository) Update(_ context.Context, job *postback.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.PostbackID]; !ok {
		return postback.ErrJobNotFound
	}
	cp := *job
	r.jobs[job.PostbackID] = &cp
	return nil
}

// PostbackLogRepository implements postback.LogRepository in memory.
type PostbackLogRepository struct {
	mu      sync.Mutex
	entries []*postback.DeliveryLog
}

// NewPostbackLogRepository creates an empty in-memory log store.
func NewPostbackLogRepository() *PostbackLogRepository {
	return &PostbackLogRepository{}
}

func (r *PostbackLogRepository) Append(_ context.Context, entry *postback.DeliveryLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *entry
	r.entries = append(r.entries, &cp)
	return nil
}

// Entries returns a snapshot of the appended log, oldest first.
func (r *PostbackLogRepository) Entries() []*postback.DeliveryLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*postback.DeliveryLog, len(r.entries))
	copy(out, r.entries)
	return out
}
