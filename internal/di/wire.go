//go:build wireinject
// +build wireinject

package di

import (
	"StockPulse/pkg/config"
	"StockPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedisCache,
		ProvideCacheService,

		// Repositories
		ProvideOrderStorage,
		ProvideOrderPublisher,
		ProvideAlertPublisher,
		ProvideInventoryRepo,
		ProvidePredictionStore,
		ProvideQueue,
		ProvideAnalysisSink,
		ProvideOrderFeed,

		// Engine services
		ProvideCapabilities,
		ProvideForecaster,
		ProvideAdvancedForecaster,
		ProvideSeasonalAnalyzer,
		ProvideAnomalyDetector,

		// Use cases
		ProvideOrderProcessor,
		ProvideOrderCollector,
		ProvideKafkaOrdersHandler,
		ProvidePredictor,
		ProvideSalesHistory,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
