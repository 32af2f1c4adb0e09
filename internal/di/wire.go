//go:build wireinject
// +build wireinject

package di

import (
	"FundPulse/pkg/config"
	"FundPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideRedisClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideHistoryStore,
		ProvideStateStore,
		ProvideResponseCache,
		ProvidePricePublisher,
		ProvideSnapshotPublisher,

		// Gateway services
		ProvideOracleClient,
		ProvideAccountingOracle,
		ProvideSharesOracle,
		ProvideParticipationOracle,
		ProvidePriceStream,
		ProvideRateGate,

		// Use cases
		ProvideValuationPipeline,
		ProvideKafkaPricesHandler,
		ProvideFeedCollector,

		// HTTP API
		ProvideAPIHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
