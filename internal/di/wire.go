//go:build wireinject
// +build wireinject

package di

import (
	"FusionRisk/pkg/config"
	"FusionRisk/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideStores,
		ProvideCache,
		ProvideKafkaProducer,
		ProvideErrorCollector,
		ProvideKafkaConsumer,

		// Repositories and outbound services
		ProvideRiskPublisher,
		ProvideReinforcementSyncer,

		// Use cases
		ProvideBaselineAnalyzer,
		ProvidePredictiveForecaster,
		ProvideRiskEngine,
		ProvideCalibrationLoop,
		ProvideCalibrationScheduler,
		ProvideMetricIngestHandler,

		ProvideRateLimiter,
		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
