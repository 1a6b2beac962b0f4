package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/marketscope/predictd/internal/api/response"
	"github.com/marketscope/predictd/internal/pipeline"
	"github.com/marketscope/predictd/internal/store"
	"github.com/marketscope/predictd/pkg/models"
)

// Pipeline defines the orchestrator surface the handlers depend on.
type Pipeline interface {
	Submit(ctx context.Context, req pipeline.SubmitRequest) (*models.PredictionJob, error)
	GetStatus(ctx context.Context, id uuid.UUID) (*models.PredictionJob, error)
}

// NewSubmitHandler returns an http.HandlerFunc for POST /api/v1/predictions.
func NewSubmitHandler(svc Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Symbol         string `json:"symbol"`
			PredictionType string `json:"prediction_type"`
			WindowSize     int    `json:"window_size"`
			RequestedBy    string `json:"requested_by"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		job, err := svc.Submit(r.Context(), pipeline.SubmitRequest{
			Symbol:         req.Symbol,
			PredictionType: req.PredictionType,
			WindowSize:     req.WindowSize,
			RequestedBy:    req.RequestedBy,
		})
		if err != nil {
			var verr *pipeline.ValidationError
			if errors.As(err, &verr) {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", verr.Error(), nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		response.Accepted(w, submitResponse{
			JobID:     job.ID,
			Status:    job.Status,
			CreatedAt: job.CreatedAt.Format(time.RFC3339),
		})
	}
}

// NewStatusHandler returns an http.HandlerFunc for GET /api/v1/predictions/{jobID}.
func NewStatusHandler(svc Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "job id must be a UUID", nil)
			return
		}

		job, err := svc.GetStatus(r.Context(), jobID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "No such job", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		response.JSON(w, statusResponse{
			JobID:        job.ID,
			Symbol:       job.Symbol,
			Status:       job.Status,
			Result:       job.Result,
			ErrorMessage: job.ErrorMessage,
			CreatedAt:    job.CreatedAt,
			StartedAt:    job.StartedAt,
			CompletedAt:  job.CompletedAt,
		})
	}
}

type submitResponse struct {
	JobID     uuid.UUID `json:"job_id"`
	Status    string    `json:"status"`
	CreatedAt string    `json:"created_at"`
}

type statusResponse struct {
	JobID        uuid.UUID                `json:"job_id"`
	Symbol       string                   `json:"symbol"`
	Status       string                   `json:"status"`
	Result       *models.PredictionResult `json:"result,omitempty"`
	ErrorMessage *string                  `json:"error,omitempty"`
	CreatedAt    time.Time                `json:"created_at"`
	StartedAt    *time.Time               `json:"started_at,omitempty"`
	CompletedAt  *time.Time               `json:"completed_at,omitempty"`
}
