package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/marketscope/predictd/internal/api/handler"
	"github.com/marketscope/predictd/internal/pipeline"
	"github.com/marketscope/predictd/internal/store"
	"github.com/marketscope/predictd/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockPipeline satisfies handler.Pipeline for testing.
type mockPipeline struct {
	SubmitFunc    func(ctx context.Context, req pipeline.SubmitRequest) (*models.PredictionJob, error)
	GetStatusFunc func(ctx context.Context, id uuid.UUID) (*models.PredictionJob, error)
}

func (m *mockPipeline) Submit(ctx context.Context, req pipeline.SubmitRequest) (*models.PredictionJob, error) {
	return m.SubmitFunc(ctx, req)
}

func (m *mockPipeline) GetStatus(ctx context.Context, id uuid.UUID) (*models.PredictionJob, error) {
	return m.GetStatusFunc(ctx, id)
}

func TestSubmitHandler_Accepted(t *testing.T) {
	jobID := uuid.New()
	svc := &mockPipeline{
		SubmitFunc: func(_ context.Context, req pipeline.SubmitRequest) (*models.PredictionJob, error) {
			assert.Equal(t, "ACME", req.Symbol)
			assert.Equal(t, models.PredictionShortTerm, req.PredictionType)
			assert.Equal(t, 128, req.WindowSize)
			return &models.PredictionJob{
				ID:        jobID,
				Status:    models.JobStatusPending,
				CreatedAt: time.Now().UTC(),
			}, nil
		},
	}

	body := bytes.NewBufferString(`{"symbol":"ACME","prediction_type":"short_term","window_size":128}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/predictions", body)
	w := httptest.NewRecorder()

	handler.NewSubmitHandler(svc)(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]any)
	assert.Equal(t, jobID.String(), data["job_id"])
	assert.Equal(t, models.JobStatusPending, data["status"])
}

func TestSubmitHandler_InvalidJSON(t *testing.T) {
	svc := &mockPipeline{}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/predictions",
		bytes.NewBufferString(`{not json`))
	w := httptest.NewRecorder()

	handler.NewSubmitHandler(svc)(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitHandler_ValidationError(t *testing.T) {
	svc := &mockPipeline{
		SubmitFunc: func(_ context.Context, _ pipeline.SubmitRequest) (*models.PredictionJob, error) {
			return nil, &pipeline.ValidationError{Field: "prediction_type", Reason: "must be short_term or long_term"}
		},
	}

	body := bytes.NewBufferString(`{"symbol":"ACME","prediction_type":"invalid_type","window_size":128}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/predictions", body)
	w := httptest.NewRecorder()

	handler.NewSubmitHandler(svc)(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	errBody := resp["error"].(map[string]any)
	assert.Equal(t, "INVALID_REQUEST", errBody["code"])
	assert.Contains(t, errBody["message"], "prediction_type")
}

// statusRequest routes a status request through chi so URL params resolve.
func statusRequest(t *testing.T, svc handler.Pipeline, jobID string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/api/v1/predictions/{jobID}", handler.NewStatusHandler(svc))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/predictions/"+jobID, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStatusHandler_CompletedJob(t *testing.T) {
	jobID := uuid.New()
	svc := &mockPipeline{
		GetStatusFunc: func(_ context.Context, id uuid.UUID) (*models.PredictionJob, error) {
			assert.Equal(t, jobID, id)
			return &models.PredictionJob{
				ID:     jobID,
				Symbol: "ACME",
				Status: models.JobStatusCompleted,
				Result: &models.PredictionResult{
					Prediction:  []float64{1, 2, 3, 4, 5, 6},
					Uncertainty: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6},
					ModelName:   "lstm-short-v1",
				},
			}, nil
		},
	}

	w := statusRequest(t, svc, jobID.String())
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]any)
	assert.Equal(t, models.JobStatusCompleted, data["status"])

	result := data["result"].(map[string]any)
	assert.Len(t, result["prediction"], 6)
	assert.Len(t, result["uncertainty"], 6)
}

func TestStatusHandler_FailedJobCarriesError(t *testing.T) {
	jobID := uuid.New()
	msg := "fetching market data: exchange api is down"
	svc := &mockPipeline{
		GetStatusFunc: func(_ context.Context, _ uuid.UUID) (*models.PredictionJob, error) {
			return &models.PredictionJob{
				ID:           jobID,
				Status:       models.JobStatusFailed,
				ErrorMessage: &msg,
			}, nil
		},
	}

	w := statusRequest(t, svc, jobID.String())
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]any)
	assert.Equal(t, models.JobStatusFailed, data["status"])
	assert.Equal(t, msg, data["error"])
	_, hasResult := data["result"]
	assert.False(t, hasResult)
}

func TestStatusHandler_NotFound(t *testing.T) {
	svc := &mockPipeline{
		GetStatusFunc: func(_ context.Context, _ uuid.UUID) (*models.PredictionJob, error) {
			return nil, store.ErrNotFound
		},
	}

	w := statusRequest(t, svc, uuid.New().String())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusHandler_BadUUID(t *testing.T) {
	svc := &mockPipeline{}

	w := statusRequest(t, svc, "not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
