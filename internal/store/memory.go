package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marketscope/predictd/pkg/models"
)

// MemoryStore is an in-process Store backed by a mutex-guarded map. It honors
// the same compare-and-set contract as PostgresStore and is used by unit tests
// and standalone development runs.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*models.PredictionJob
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[uuid.UUID]*models.PredictionJob)}
}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

func (s *MemoryStore) CreateJob(_ context.Context, job *models.PredictionJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return ErrDuplicateKey
	}
	clone := *job
	s.jobs[job.ID] = &clone
	return nil
}

func (s *MemoryStore) GetJob(_ context.Context, id uuid.UUID) (*models.PredictionJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *job
	return &clone, nil
}

func (s *MemoryStore) UpdateJobStatus(_ context.Context, id uuid.UUID, expectedStatus, newStatus string, opts ...JobUpdateOption) error {
	if !transitionAllowed(expectedStatus, newStatus) {
		return fmt.Errorf("invalid job status transition: %s -> %s", expectedStatus, newStatus)
	}

	params := &jobUpdateParams{}
	for _, opt := range opts {
		opt(params)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if job.Status != expectedStatus {
		return ErrConflict
	}

	now := time.Now().UTC()
	job.Status = newStatus
	job.UpdatedAt = now
	if newStatus == models.JobStatusProcessing {
		job.StartedAt = &now
	}
	if newStatus == models.JobStatusCompleted || newStatus == models.JobStatusFailed {
		job.CompletedAt = &now
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.Result != nil {
		job.Result = params.Result
	}
	return nil
}

// Compile-time checks that both implementations satisfy Store.
var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
