// Package pipeline orchestrates prediction jobs: validate, persist, dispatch
// to workers, and drive the feeder → predictor flow to a terminal status.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marketscope/predictd/internal/cache"
	"github.com/marketscope/predictd/internal/modelcache"
	"github.com/marketscope/predictd/internal/plugin"
	"github.com/marketscope/predictd/internal/store"
	"github.com/marketscope/predictd/pkg/models"
)

const statusTTL = 30 * time.Minute

// ValidationError reports a malformed submit request. Surfaced synchronously;
// no job is created.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// SubmitRequest is the input to Submit.
type SubmitRequest struct {
	Symbol         string
	PredictionType string
	WindowSize     int
	RequestedBy    string
}

// Config carries the orchestrator's tuning knobs.
type Config struct {
	Workers          int
	QueueSize        int
	InferenceTimeout time.Duration
	ShortTermModel   string
	LongTermModel    string
	FeederName       string
	PredictorName    string
}

// Service is the pipeline orchestrator. Submit is cheap and never blocks on
// feeder or predictor work; a fixed worker pool consumes the job queue and
// writes terminal outcomes back to the store.
type Service struct {
	store     store.Store
	cache     cache.Cache
	feeder    models.Feeder
	predictor models.Predictor
	models    *modelcache.Cache
	cfg       Config

	queue chan *models.PredictionJob
	wg    sync.WaitGroup
}

// NewService resolves the configured feeder and predictor from the registry
// and starts the worker pool.
func NewService(st store.Store, ca cache.Cache, registry *plugin.Registry, mc *modelcache.Cache, cfg Config) (*Service, error) {
	feeder, err := registry.Feeder(cfg.FeederName)
	if err != nil {
		return nil, fmt.Errorf("resolve feeder: %w", err)
	}
	predictor, err := registry.Predictor(cfg.PredictorName)
	if err != nil {
		return nil, fmt.Errorf("resolve predictor: %w", err)
	}

	s := &Service{
		store:     st,
		cache:     ca,
		feeder:    feeder,
		predictor: predictor,
		models:    mc,
		cfg:       cfg,
		queue:     make(chan *models.PredictionJob, cfg.QueueSize),
	}

	for i := 0; i < cfg.Workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s, nil
}

// Close stops accepting jobs and waits for in-flight workers to drain the
// queue. Jobs already enqueued still run to a terminal state.
func (s *Service) Close() {
	close(s.queue)
	s.wg.Wait()
}

// Submit validates the request, persists a pending job, and schedules it.
// Returns the job immediately; processing outcomes are observed via GetStatus.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*models.PredictionJob, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	job := &models.PredictionJob{
		ID:             uuid.New(),
		Symbol:         req.Symbol,
		PredictionType: req.PredictionType,
		WindowSize:     req.WindowSize,
		Status:         models.JobStatusPending,
		RequestedBy:    req.RequestedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}

	_ = s.cache.SetJobStatus(ctx, job.ID, models.JobStatusPending, statusTTL)

	select {
	case s.queue <- job:
	default:
		// Queue saturated. The job is already visible to pollers, so give it
		// a terminal outcome instead of blocking the submit path.
		s.fail(context.Background(), job.ID, models.JobStatusPending, "job queue saturated, resubmit later")
		slog.Warn("job queue saturated", "job_id", job.ID, "symbol", job.Symbol)
	}

	return job, nil
}

// GetStatus returns the latest committed snapshot of a job.
func (s *Service) GetStatus(ctx context.Context, id uuid.UUID) (*models.PredictionJob, error) {
	return s.store.GetJob(ctx, id)
}

func validate(req SubmitRequest) error {
	if req.Symbol == "" {
		return &ValidationError{Field: "symbol", Reason: "is required"}
	}
	if req.PredictionType != models.PredictionShortTerm && req.PredictionType != models.PredictionLongTerm {
		return &ValidationError{
			Field:  "prediction_type",
			Reason: fmt.Sprintf("must be %s or %s, got %q", models.PredictionShortTerm, models.PredictionLongTerm, req.PredictionType),
		}
	}
	if req.WindowSize <= 0 {
		return &ValidationError{Field: "window_size", Reason: fmt.Sprintf("must be positive, got %d", req.WindowSize)}
	}
	return nil
}

func (s *Service) worker() {
	defer s.wg.Done()
	for job := range s.queue {
		s.processJob(job)
	}
}

// processJob drives one job from claim to a terminal status. It recovers from
// panics so a single bad job cannot take down the pool.
func (s *Service) processJob(job *models.PredictionJob) {
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in processJob", "error", r, "job_id", job.ID)
			s.fail(ctx, job.ID, models.JobStatusProcessing, fmt.Sprintf("panic: %v", r))
		}
	}()

	// Claim pending -> processing. A conflict means another worker got here
	// first; abort without touching the job.
	err := s.store.UpdateJobStatus(ctx, job.ID, models.JobStatusPending, models.JobStatusProcessing)
	if err != nil {
		if errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrNotFound) {
			slog.Warn("job claim lost", "job_id", job.ID, "error", err)
			return
		}
		slog.Error("claiming job", "job_id", job.ID, "error", err)
		return
	}
	_ = s.cache.SetJobStatus(ctx, job.ID, models.JobStatusProcessing, statusTTL)

	candles, err := s.feeder.Fetch(ctx, job.Symbol, job.WindowSize)
	if err != nil {
		s.fail(ctx, job.ID, models.JobStatusProcessing, fmt.Sprintf("fetching market data: %v", err))
		return
	}

	modelName := s.modelFor(job.PredictionType)
	handle, err := s.models.GetOrLoad(ctx, modelName)
	if err != nil {
		s.fail(ctx, job.ID, models.JobStatusProcessing, fmt.Sprintf("loading model %s: %v", modelName, err))
		return
	}

	inferCtx, cancel := context.WithTimeout(ctx, s.cfg.InferenceTimeout)
	defer cancel()

	result, err := s.predictor.Predict(inferCtx, models.Closes(candles), handle)
	if err != nil {
		s.fail(ctx, job.ID, models.JobStatusProcessing, err.Error())
		return
	}

	if len(result.Prediction) != models.ForecastHorizon || len(result.Uncertainty) != models.ForecastHorizon {
		s.fail(ctx, job.ID, models.JobStatusProcessing,
			fmt.Sprintf("model %s returned %d/%d points, want %d",
				modelName, len(result.Prediction), len(result.Uncertainty), models.ForecastHorizon))
		return
	}

	err = s.store.UpdateJobStatus(ctx, job.ID, models.JobStatusProcessing, models.JobStatusCompleted,
		store.WithResult(result))
	if err != nil {
		slog.Error("finalizing job", "job_id", job.ID, "error", err)
		return
	}
	_ = s.cache.SetJobStatus(ctx, job.ID, models.JobStatusCompleted, statusTTL)

	slog.Info("job completed", "job_id", job.ID, "symbol", job.Symbol, "model", modelName)
}

// fail records a terminal failure. A conflict here means someone else already
// moved the job; log and leave it alone.
func (s *Service) fail(ctx context.Context, jobID uuid.UUID, expectedStatus, msg string) {
	err := s.store.UpdateJobStatus(ctx, jobID, expectedStatus, models.JobStatusFailed,
		store.WithErrorMessage(msg))
	if err != nil {
		slog.Error("marking job failed", "job_id", jobID, "error", err)
		return
	}
	_ = s.cache.SetJobStatus(ctx, jobID, models.JobStatusFailed, statusTTL)
}

func (s *Service) modelFor(predictionType string) string {
	if predictionType == models.PredictionLongTerm {
		return s.cfg.LongTermModel
	}
	return s.cfg.ShortTermModel
}
