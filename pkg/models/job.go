package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

const (
	PredictionShortTerm = "short_term"
	PredictionLongTerm  = "long_term"
)

// PredictionJob tracks an async prediction request. The API returns a job id on
// POST /api/v1/predictions; the client polls GET /api/v1/predictions/{job_id}
// until status is completed or failed.
type PredictionJob struct {
	ID             uuid.UUID         `db:"id"              json:"id"`
	Symbol         string            `db:"symbol"          json:"symbol"`
	PredictionType string            `db:"prediction_type" json:"prediction_type"`
	WindowSize     int               `db:"window_size"     json:"window_size"`
	Status         string            `db:"status"          json:"status"`
	RequestedBy    string            `db:"requested_by"    json:"requested_by,omitempty"`
	Result         *PredictionResult `db:"result"          json:"result,omitempty"`
	ErrorMessage   *string           `db:"error_message"   json:"error_message,omitempty"`
	StartedAt      *time.Time        `db:"started_at"      json:"started_at,omitempty"`
	CompletedAt    *time.Time        `db:"completed_at"    json:"completed_at,omitempty"`
	CreatedAt      time.Time         `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at"      json:"updated_at"`
}

// Terminal reports whether the status is one the job can never leave.
func Terminal(status string) bool {
	return status == JobStatusCompleted || status == JobStatusFailed
}
