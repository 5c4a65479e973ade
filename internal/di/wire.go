//go:build wireinject
// +build wireinject

package di

import (
	"GammaPulse/pkg/config"
	"GammaPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient services
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedisCache,
		ProvideCacheService,
		ProvideHTTPClient,

		// Broker access
		ProvideTokenSource,
		ProvideUpstoxClient,
		ProvideMarketStream,

		// Repositories
		ProvideSnapshotStore,
		ProvideSignalStore,
		ProvideSnapshotPublisher,

		// Use cases
		ProvideBlastScanner,
		ProvideScanQueue,
		ProvideQueueConsumer,
		ProvideKafkaSnapshotsHandler,
		ProvideSnapshotProcessor,
		ProvideChainCollector,

		// HTTP layer
		ProvideBlastHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
