package models

import "errors"

// Sentinel errors for plugin implementations. Feeders and predictors wrap
// these so callers can classify failures with errors.Is without knowing
// the concrete provider.
var (
	// ErrDataUnavailable indicates the feeder could not produce a usable window.
	ErrDataUnavailable = errors.New("market data unavailable")

	// ErrFeedTimeout indicates the data source did not respond in time.
	ErrFeedTimeout = errors.New("market data fetch timed out")

	// ErrInference indicates the predictor failed to produce a forecast.
	ErrInference = errors.New("inference failed")

	// ErrModelUnavailable indicates the requested model could not be loaded.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrInferenceTimeout indicates the model server did not respond in time.
	ErrInferenceTimeout = errors.New("inference timed out")
)
