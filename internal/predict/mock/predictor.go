// Package mock provides a deterministic predictor for tests and standalone runs.
package mock

import (
	"context"
	"time"

	"github.com/marketscope/predictd/pkg/models"
)

// Predictor satisfies models.Predictor for testing.
type Predictor struct {
	Name_         string
	PredictFunc   func(ctx context.Context, series []float64, handle *models.ModelHandle) (*models.PredictionResult, error)
	LoadModelFunc func(ctx context.Context, modelName string) (*models.ModelHandle, error)
}

func (p *Predictor) Name() string { return p.Name_ }

func (p *Predictor) Predict(ctx context.Context, series []float64, handle *models.ModelHandle) (*models.PredictionResult, error) {
	if p.PredictFunc != nil {
		return p.PredictFunc(ctx, series, handle)
	}
	return Forecast(series, handle.Name), nil
}

func (p *Predictor) LoadModel(ctx context.Context, modelName string) (*models.ModelHandle, error) {
	if p.LoadModelFunc != nil {
		return p.LoadModelFunc(ctx, modelName)
	}
	return &models.ModelHandle{Name: modelName, Version: "mock-v1", LoadedAt: time.Now().UTC()}, nil
}

// NewPredictor returns a Predictor with sensible default responses.
func NewPredictor() *Predictor {
	return &Predictor{Name_: "mock"}
}

// NewFailingPredictor returns a Predictor whose Predict always returns the given error.
func NewFailingPredictor(err error) *Predictor {
	return &Predictor{
		Name_: "mock-failing",
		PredictFunc: func(_ context.Context, _ []float64, _ *models.ModelHandle) (*models.PredictionResult, error) {
			return nil, err
		},
	}
}

// Forecast extrapolates the last observed value into a flat forecast with
// widening uncertainty. Deterministic for a given input series.
func Forecast(series []float64, modelName string) *models.PredictionResult {
	last := 100.0
	if len(series) > 0 {
		last = series[len(series)-1]
	}

	prediction := make([]float64, models.ForecastHorizon)
	uncertainty := make([]float64, models.ForecastHorizon)
	for i := 0; i < models.ForecastHorizon; i++ {
		prediction[i] = last
		uncertainty[i] = 0.5 * float64(i+1)
	}

	return &models.PredictionResult{
		Prediction:  prediction,
		Uncertainty: uncertainty,
		ModelName:   modelName,
		GeneratedAt: time.Now().UTC(),
	}
}

// Compile-time check that Predictor implements models.Predictor.
var _ models.Predictor = (*Predictor)(nil)
