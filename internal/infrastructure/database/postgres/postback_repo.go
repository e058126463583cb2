package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"offertrack/internal/domain/postback"
)

// PostbackJobModel is the database model for queued postbacks
type PostbackJobModel struct {
	PostbackID   string `gorm:"type:varchar(64);primaryKey"`
	ConversionID string `gorm:"type:varchar(64);index;not null"`
	PartnerID    string `gorm:"type:varchar(64);not null"`

	URL    string `gorm:"type:text;not null"`
	Method string `gorm:"type:varchar(8);not null"`

	Status        string    `gorm:"type:varchar(16);index:idx_postback_due,priority:1;not null"`
	Attempts      int       `gorm:"not null"`
	MaxAttempts   int       `gorm:"not null"`
	NextAttemptAt time.Time `gorm:"index:idx_postback_due,priority:2;not null"`

	ResponseCode int    `gorm:""`
	Error        string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for the postback queue
func (PostbackJobModel) TableName() string {
	return "postback_queue"
}

// PostbackLogModel is the append-only delivery attempt log
type PostbackLogModel struct {
	ID           string `gorm:"type:varchar(64);primaryKey"`
	PostbackID   string `gorm:"type:varchar(64);index;not null"`
	PartnerID    string `gorm:"type:varchar(64);not null"`
	URL          string `gorm:"type:text;not null"`
	Attempt      int    `gorm:"not null"`
	ResponseCode int
	ResponseBody string `gorm:"type:text"`
	Error        string `gorm:"type:text"`
	DurationMs   int64
	AttemptedAt  time.Time `gorm:"index;not null"`
}

// TableName returns the table name for postback logs
func (PostbackLogModel) TableName() string {
	return "postback_logs"
}

// PostbackJobRepository implements postback.JobRepository
type PostbackJobRepository struct {
	db *gorm.DB
}

// NewPostbackJobRepository creates a new postback job repository
func NewPostbackJobRepository(client *Client) *PostbackJobRepository {
	return &PostbackJobRepository{db: client.DB()}
}

// Create stores a new job
func (r *PostbackJobRepository) Create(ctx context.Context, job *postback.Job) error {
	return r.db.WithContext(ctx).Create(toJobModel(job)).Error
}

// GetByID retrieves a job
func (r *PostbackJobRepository) GetByID(ctx context.Context, postbackID string) (*postback.Job, error) {
	var model PostbackJobModel
	if err := r.db.WithContext(ctx).First(&model, "postback_id = ?", postbackID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, postback.ErrJobNotFound
		}
		return nil, err
	}
	return fromJobModel(&model), nil
}

// ListByConversion returns all jobs for a conversion
func (r *PostbackJobRepository) ListByConversion(ctx context.Context, conversionID string) ([]*postback.Job, error) {
	var models []PostbackJobModel
	if err := r.db.WithContext(ctx).Where("conversion_id = ?", conversionID).Find(&models).Error; err != nil {
		return nil, err
	}
	jobs := make([]*postback.Job, 0, len(models))
	for i := range models {
		jobs = append(jobs, fromJobModel(&models[i]))
	}
	return jobs, nil
}

// ListDue returns pending jobs due at or before now, oldest first
func (r *PostbackJobRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*postback.Job, error) {
	var models []PostbackJobModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", string(postback.StatusPending), now).
		Order("next_attempt_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	jobs := make([]*postback.Job, 0, len(models))
	for i := range models {
		jobs = append(jobs, fromJobModel(&models[i]))
	}
	return jobs, nil
}

// Claim transitions pending -> sent with a conditional update. Zero rows
// affected means another sweep got there first.
func (r *PostbackJobRepository) Claim(ctx context.Context, postbackID string) error {
	result := r.db.WithContext(ctx).Model(&PostbackJobModel{}).
		Where("postback_id = ? AND status = ?", postbackID, string(postback.StatusPending)).
		Update("status", string(postback.StatusSent))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return postback.ErrAlreadyClaimed
	}
	return nil
}

// Update writes the post-attempt state of a job
func (r *PostbackJobRepository) Update(ctx context.Context, job *postback.Job) error {
	return r.db.WithContext(ctx).Model(&PostbackJobModel{}).
		Where("postback_id = ?", job.PostbackID).
		Updates(map[string]interface{}{
			"status":          string(job.Status),
			"attempts":        job.Attempts,
			"next_attempt_at": job.NextAttemptAt,
			"response_code":   job.ResponseCode,
			"error":           job.Error,
			"updated_at":      job.UpdatedAt,
		}).Error
}

// PostbackLogRepository implements postback.LogRepository
type PostbackLogRepository struct {
	db *gorm.DB
}

// NewPostbackLogRepository creates a new postback log repository
func NewPostbackLogRepository(client *Client) *PostbackLogRepository {
	return &PostbackLogRepository{db: client.DB()}
}

// Append writes one delivery attempt record
func (r *PostbackLogRepository) Append(ctx context.Context, entry *postback.DeliveryLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	model := &PostbackLogModel{
		ID:           entry.ID,
		PostbackID:   entry.PostbackID,
		PartnerID:    entry.PartnerID,
		URL:          entry.URL,
		Attempt:      entry.Attempt,
		ResponseCode: entry.ResponseCode,
		ResponseBody: entry.ResponseBody,
		Error:        entry.Error,
		DurationMs:   entry.Duration.Milliseconds(),
		AttemptedAt:  entry.AttemptedAt,
	}
	return r.db.WithContext(ctx).Create(model).Error
}

func toJobModel(j *postback.Job) *PostbackJobModel {
	return &PostbackJobModel{
		PostbackID:    j.PostbackID,
		ConversionID:  j.ConversionID,
		PartnerID:     j.PartnerID,
		URL:           j.URL,
		Method:        j.Method,
		Status:        string(j.Status),
		Attempts:      j.Attempts,
		MaxAttempts:   j.MaxAttempts,
		NextAttemptAt: j.NextAttemptAt,
		ResponseCode:  j.ResponseCode,
		Error:         j.Error,
		CreatedAt:     j.CreatedAt,
		UpdatedAt:     j.UpdatedAt,
	}
}

func fromJobModel(m *PostbackJobModel) *postback.Job {
	return &postback.Job{
		PostbackID:    m.PostbackID,
		ConversionID:  m.ConversionID,
		PartnerID:     m.PartnerID,
		URL:           m.URL,
		Method:        m.Method,
		Status:        postback.JobStatus(m.Status),
		Attempts:      m.Attempts,
		MaxAttempts:   m.MaxAttempts,
		NextAttemptAt: m.NextAttemptAt,
		ResponseCode:  m.ResponseCode,
		Error:         m.Error,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
