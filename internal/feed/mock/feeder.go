// Package mock provides a deterministic feeder for tests and standalone runs.
package mock

import (
	"context"
	"time"

	"github.com/marketscope/predictd/pkg/models"
	"github.com/shopspring/decimal"
)

// Feeder satisfies models.Feeder for testing.
type Feeder struct {
	Name_     string
	FetchFunc func(ctx context.Context, symbol string, window int) ([]models.Candle, error)
}

func (f *Feeder) Name() string { return f.Name_ }

func (f *Feeder) Fetch(ctx context.Context, symbol string, window int) ([]models.Candle, error) {
	if f.FetchFunc != nil {
		return f.FetchFunc(ctx, symbol, window)
	}
	return Candles(window), nil
}

// NewFeeder returns a Feeder producing a deterministic synthetic price walk.
func NewFeeder() *Feeder {
	return &Feeder{Name_: "mock"}
}

// NewFailingFeeder returns a Feeder that always returns the given error.
func NewFailingFeeder(err error) *Feeder {
	return &Feeder{
		Name_: "mock-failing",
		FetchFunc: func(_ context.Context, _ string, _ int) ([]models.Candle, error) {
			return nil, err
		},
	}
}

// Candles generates n synthetic minute bars ending now, oldest first.
func Candles(n int) []models.Candle {
	base := time.Now().UTC().Truncate(time.Minute).Add(-time.Duration(n) * time.Minute)
	price := decimal.NewFromInt(100)
	tick := decimal.NewFromFloat(0.25)

	candles := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		// Zig-zag walk keeps values bounded and reproducible.
		if i%2 == 0 {
			price = price.Add(tick)
		} else {
			price = price.Sub(tick).Add(decimal.NewFromFloat(0.05))
		}
		candles[i] = models.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Open:      price.Sub(tick),
			High:      price.Add(tick),
			Low:       price.Sub(tick),
			Close:     price,
			Volume:    1000 + int64(i),
		}
	}
	return candles
}

// Compile-time check that Feeder implements models.Feeder.
var _ models.Feeder = (*Feeder)(nil)
