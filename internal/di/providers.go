package di

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"FundPulse/internal/domain/repository"
	"FundPulse/internal/handler/api"
	mid "FundPulse/internal/middleware"
	internalrepo "FundPulse/internal/repository"
	"FundPulse/internal/service/oracle"
	"FundPulse/internal/service/pricefeed"
	"FundPulse/internal/service/ratelimit"
	"FundPulse/internal/usecase"
	pkgcache "FundPulse/pkg/cache"
	pkgch "FundPulse/pkg/clickhouse"
	"FundPulse/pkg/config"
	pkgkafka "FundPulse/pkg/kafka"
	applogger "FundPulse/pkg/logger"
	"FundPulse/pkg/metrics"
	"FundPulse/pkg/server"
)

// ProvideLogger creates the application logger. Production environments
// log JSON, everything else gets console output.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "console"
	if cfg.Environment == "production" {
		format = "json"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and initializes the
// history schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.Schema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideHistoryStore creates the ClickHouse history repository.
func ProvideHistoryStore(ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.HistoryStore {
	store := internalrepo.NewCHHistoryStore(ch, cfg.ClickHouse.Database)
	store.SetLogger(l)
	return store
}

// ProvideRedisClient creates the shared Redis client for live state and
// the log queue.
func ProvideRedisClient(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		PoolTimeout:  cfg.Redis.PoolTimeout,
		MinIdleConns: cfg.Redis.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// ProvideStateStore creates the Redis-backed live entity store.
func ProvideStateStore(client *redis.Client, cfg *config.Config) repository.StateStore {
	return internalrepo.NewRedisStateStore(client, cfg.Redis.Prefix, cfg.Valuation.Registry)
}

// ProvideResponseCache creates the layered query cache (memory in front
// of Redis).
func ProvideResponseCache(cfg *config.Config) (pkgcache.Service, error) {
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns, cfg.Redis.PoolTimeout),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix+":cache"),
	)
	if err != nil {
		return nil, fmt.Errorf("response cache: %w", err)
	}
	return pkgcache.NewLayeredCache(rc), nil
}

// ProvideKafkaProducer creates the shared Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePricePublisher creates the intake topic publisher.
func ProvidePricePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.PricePublisher {
	return internalrepo.NewKafkaPricePublisher(producer, cfg.Kafka.PricesTopic)
}

// ProvideSnapshotPublisher creates the network snapshot fanout publisher.
func ProvideSnapshotPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.SnapshotPublisher {
	return internalrepo.NewKafkaSnapshotPublisher(producer, cfg.Kafka.SnapshotsTopic)
}

// ProvideKafkaConsumer creates the intake topic consumer. The worker count
// stays at one so batches are applied to the live state in order.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideOracleClient creates the chain gateway oracle client.
func ProvideOracleClient(cfg *config.Config) *oracle.Client {
	return oracle.New(cfg.Gateway.OracleURL, cfg.Gateway.OracleTimeout)
}

// ProvideAccountingOracle exposes the oracle client as AccountingOracle.
func ProvideAccountingOracle(c *oracle.Client) repository.AccountingOracle { return c }

// ProvideSharesOracle exposes the oracle client as SharesOracle.
func ProvideSharesOracle(c *oracle.Client) repository.SharesOracle { return c }

// ProvideParticipationOracle exposes the oracle client as ParticipationOracle.
func ProvideParticipationOracle(c *oracle.Client) repository.ParticipationOracle { return c }

// ProvideRateGate creates the event-time interval gate.
func ProvideRateGate(cfg *config.Config) *ratelimit.IntervalGate {
	return ratelimit.New(cfg.Valuation.MinInterval)
}

// ProvideValuationPipeline creates the valuation pipeline use case.
func ProvideValuationPipeline(
	state repository.StateStore,
	history repository.HistoryStore,
	accounting repository.AccountingOracle,
	shares repository.SharesOracle,
	participation repository.ParticipationOracle,
	snapshots repository.SnapshotPublisher,
	gate *ratelimit.IntervalGate,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.ValuationPipeline {
	return usecase.NewValuationPipeline(state, history, accounting, shares, participation, snapshots, gate, m, l)
}

// ProvideKafkaPricesHandler registers the handler for the intake topic.
func ProvideKafkaPricesHandler(pipeline *usecase.ValuationPipeline, m repository.Metrics, cfg *config.Config) *usecase.KafkaPricesHandler {
	return usecase.NewKafkaPricesHandler(cfg.Kafka.PricesTopic, pipeline, m)
}

// ProvidePriceStream creates the gateway WebSocket stream.
func ProvidePriceStream(cfg *config.Config) repository.PriceStream {
	return pricefeed.New(
		cfg.Gateway.APIKey,
		cfg.Gateway.WebSocketURL,
		cfg.Gateway.Channel,
		cfg.Gateway.ReconnectDelay,
		cfg.Gateway.PingInterval,
	)
}

// ProvideFeedCollector creates the feed collector use case.
func ProvideFeedCollector(
	stream repository.PriceStream,
	pub repository.PricePublisher,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.FeedCollector {
	pipe := mid.NewFeedPipeline(pub, m,
		mid.WithBufferSize(cfg.Valuation.FeedBufferSize),
	)
	return usecase.NewFeedCollector(stream, pub, m, pipe)
}

// ProvideAPIHandler creates the query API handler.
func ProvideAPIHandler(
	l *applogger.Logger,
	history repository.HistoryStore,
	state repository.StateStore,
	cache pkgcache.Service,
) *api.ValuationsEchoHandler {
	return api.NewValuationsEchoHandler(l, history, state, cache)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.FeedCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaPricesHandler,
	handler *api.ValuationsEchoHandler,
	chClient *pkgch.Client,
	redisClient *redis.Client,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	return server.New(cfg, l, collector, consumer, kh, handler, chClient, redisClient)
}
