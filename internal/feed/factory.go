package feed

import (
	"fmt"

	"github.com/marketscope/predictd/internal/config"
	"github.com/marketscope/predictd/internal/feed/mock"
	"github.com/marketscope/predictd/internal/feed/ohlcv"
	"github.com/marketscope/predictd/pkg/models"
)

// NewFeeder constructs the configured feeder. Called once at server startup.
func NewFeeder(cfg config.FeedConfig) (models.Feeder, error) {
	switch cfg.Provider {
	case "http":
		return ohlcv.NewClient(cfg.HTTP), nil
	case "mock":
		return mock.NewFeeder(), nil
	default:
		return nil, fmt.Errorf("unknown feed provider %q: must be one of http, mock", cfg.Provider)
	}
}
