//go:build wireinject
// +build wireinject

package di

import (
	"MacroLearn/pkg/config"
	"MacroLearn/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideTradeStore,
		ProvideCandleStore,
		ProvideBiasStore,
		ProvidePolicyPublisher,

		// Use cases
		ProvideKafkaTradesHandler,
		ProvideLearningCycle,
		ProvideRegimeClassifier,
		ProvideBiasUpdater,

		// HTTP surface
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
