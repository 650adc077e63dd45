package service

import (
	"context"

	"FusionRisk/internal/domain/models"
)

// BaselineAnalyzer computes per-category baselines over the lookback window.
type BaselineAnalyzer interface {
	Analyze(ctx context.Context, lb models.Lookback) (models.BaselineReport, error)
}

// Forecaster projects per-category stability over the lookback window.
type Forecaster interface {
	Forecast(ctx context.Context, lb models.Lookback) (models.ForecastReport, error)
}

// ReinforcementSyncer delivers one corrective action downstream. Any error,
// including a non-2xx response, means the action was not applied.
type ReinforcementSyncer interface {
	Sync(ctx context.Context, req models.SyncRequest) error
}
