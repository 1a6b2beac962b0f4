package predict

import (
	"fmt"

	"github.com/marketscope/predictd/internal/config"
	"github.com/marketscope/predictd/internal/predict/mock"
	"github.com/marketscope/predictd/internal/predict/serving"
	"github.com/marketscope/predictd/pkg/models"
)

// NewPredictor constructs the configured predictor. Called once at server startup.
func NewPredictor(cfg config.PredictConfig) (models.Predictor, error) {
	switch cfg.Provider {
	case "http":
		return serving.NewClient(cfg.HTTP), nil
	case "mock":
		return mock.NewPredictor(), nil
	default:
		return nil, fmt.Errorf("unknown predict provider %q: must be one of http, mock", cfg.Provider)
	}
}
