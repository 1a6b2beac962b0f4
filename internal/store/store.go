package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/marketscope/predictd/pkg/models"
)

var (
	ErrNotFound = errors.New("resource not found")
	// ErrConflict signals an optimistic-concurrency failure: the job's stored
	// status no longer matches the caller's expectation.
	ErrConflict     = errors.New("job status conflict")
	ErrDuplicateKey = errors.New("duplicate key violation")
)

// Store is the job persistence interface. All database operations go through
// here. Status mutations use compare-and-set on the current status, so a
// worker that lost the race gets ErrConflict instead of corrupting state.
type Store interface {
	Ping(ctx context.Context) error

	CreateJob(ctx context.Context, job *models.PredictionJob) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.PredictionJob, error)
	// UpdateJobStatus transitions a job from expectedStatus to newStatus.
	// Returns ErrConflict when the stored status differs from expectedStatus,
	// ErrNotFound when the job does not exist.
	UpdateJobStatus(ctx context.Context, id uuid.UUID, expectedStatus, newStatus string, opts ...JobUpdateOption) error
}

// validTransitions is the forward-only job state machine. Terminal states have
// no outgoing edges.
var validTransitions = map[string][]string{
	models.JobStatusPending:    {models.JobStatusProcessing, models.JobStatusFailed},
	models.JobStatusProcessing: {models.JobStatusCompleted, models.JobStatusFailed},
}

func transitionAllowed(from, to string) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type jobUpdateParams struct {
	ErrorMessage *string
	Result       *models.PredictionResult
}

type JobUpdateOption func(*jobUpdateParams)

func WithErrorMessage(msg string) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.ErrorMessage = &msg
	}
}

func WithResult(result *models.PredictionResult) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.Result = result
	}
}
