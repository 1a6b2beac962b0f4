// Package models contains shared data models used across the predictd codebase.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ForecastHorizon is the number of points every terminal result carries,
// regardless of prediction type. Prediction and Uncertainty are parallel
// sequences of exactly this length.
const ForecastHorizon = 6

// PredictionResult is the output of a completed prediction job.
type PredictionResult struct {
	Prediction  []float64 `json:"prediction"`
	Uncertainty []float64 `json:"uncertainty"`
	ModelName   string    `json:"model_name"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Candle is a single OHLCV bar as returned by a feeder. Prices are kept as
// decimals until they cross the inference boundary.
type Candle struct {
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    int64           `json:"volume"`
}

// Closes converts a candle window into the float64 close-price series that
// predictors consume.
func Closes(candles []Candle) []float64 {
	series := make([]float64, len(candles))
	for i, c := range candles {
		series[i], _ = c.Close.Float64()
	}
	return series
}
