package models

import (
	"context"
	"time"
)

// Feeder supplies the raw time-series window for a symbol. Never call a
// concrete data source directly — always inject this interface.
type Feeder interface {
	// Fetch returns the most recent window candles for symbol, oldest first.
	Fetch(ctx context.Context, symbol string, window int) ([]Candle, error)
	// Name returns the feeder identifier (e.g., "http", "mock").
	Name() string
}

// Predictor produces a forecast from a prepared input series. Implementations
// also act as the model cache's loader.
type Predictor interface {
	// Predict runs inference over series using the given model handle.
	Predict(ctx context.Context, series []float64, handle *ModelHandle) (*PredictionResult, error)
	// LoadModel resolves a model name into a ready-to-use handle.
	LoadModel(ctx context.Context, modelName string) (*ModelHandle, error)
	// Name returns the predictor identifier (e.g., "http", "mock").
	Name() string
}

// ModelHandle is a loaded model reference shared by all concurrent requesters.
// Opaque to everything except the predictor that produced it.
type ModelHandle struct {
	Name     string
	Version  string
	LoadedAt time.Time
}
