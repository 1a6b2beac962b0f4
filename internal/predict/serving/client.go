// Package serving implements a predictor against a model-serving HTTP API.
package serving

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/marketscope/predictd/internal/config"
	"github.com/marketscope/predictd/pkg/models"
)

// Client talks to a model server exposing load and predict endpoints.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new model-serving HTTP client.
func NewClient(cfg config.HTTPPredictConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Name() string { return "http" }

// LoadModel asks the server to load modelName and returns its handle.
func (c *Client) LoadModel(ctx context.Context, modelName string) (*models.ModelHandle, error) {
	u := fmt.Sprintf("%s/v1/models/%s/load", c.baseURL, url.PathEscape(modelName))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(err, models.ErrModelUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: load %q returned status %d", models.ErrModelUnavailable, modelName, resp.StatusCode)
	}

	var body loadResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding load response: %v", models.ErrModelUnavailable, err)
	}

	return &models.ModelHandle{
		Name:     modelName,
		Version:  body.Version,
		LoadedAt: time.Now().UTC(),
	}, nil
}

// Predict runs inference over series with the given model handle.
func (c *Client) Predict(ctx context.Context, series []float64, handle *models.ModelHandle) (*models.PredictionResult, error) {
	payload, err := json.Marshal(predictRequest{
		Model:   handle.Name,
		Version: handle.Version,
		Series:  series,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	u := fmt.Sprintf("%s/v1/predict", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(err, models.ErrInference)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: model %q returned status %d", models.ErrInference, handle.Name, resp.StatusCode)
	}

	var body predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", models.ErrInference, err)
	}

	if len(body.Prediction) != len(body.Uncertainty) {
		return nil, fmt.Errorf("%w: prediction/uncertainty length mismatch (%d vs %d)",
			models.ErrInference, len(body.Prediction), len(body.Uncertainty))
	}

	return &models.PredictionResult{
		Prediction:  body.Prediction,
		Uncertainty: body.Uncertainty,
		ModelName:   handle.Name,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error, fallback error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", models.ErrInferenceTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", models.ErrInferenceTimeout, err)
	}

	return fmt.Errorf("%w: %v", fallback, err)
}

// --- model server request/response types ---

type loadResponse struct {
	Version string `json:"version"`
}

type predictRequest struct {
	Model   string    `json:"model"`
	Version string    `json:"version,omitempty"`
	Series  []float64 `json:"series"`
}

type predictResponse struct {
	Prediction  []float64 `json:"prediction"`
	Uncertainty []float64 `json:"uncertainty"`
}

// Compile-time check that Client implements Predictor.
var _ models.Predictor = (*Client)(nil)
