package di

import (
	"context"
	"fmt"
	"time"

	"GammaPulse/internal/domain/repository"
	"GammaPulse/internal/handler/api"
	mid "GammaPulse/internal/middleware"
	internalrepo "GammaPulse/internal/repository"
	icache "GammaPulse/internal/service/cache"
	"GammaPulse/internal/service/upstox"
	"GammaPulse/internal/services/blast"
	"GammaPulse/internal/usecase"
	pkgcache "GammaPulse/pkg/cache"
	pkgch "GammaPulse/pkg/clickhouse"
	"GammaPulse/pkg/config"
	xhttp "GammaPulse/pkg/http"
	pkgkafka "GammaPulse/pkg/kafka"
	applogger "GammaPulse/pkg/logger"
	"GammaPulse/pkg/metrics"
	"GammaPulse/pkg/queue"
	"GammaPulse/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and bootstraps the schema.
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

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.option_snapshots (
            ts DateTime,
            symbol String,
            expiry String,
            atm_iv Float64,
            atm_oi Float64,
            gamma_concentration Float64,
            net_gex Float64,
            spot_price Float64,
            atm_strike Float64,
            ce_oi_total Float64,
            pe_oi_total Float64,
            ce_iv_avg Float64,
            pe_iv_avg Float64
        ) ENGINE = MergeTree ORDER BY (symbol, expiry, ts)`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.blast_signals (
            ts DateTime,
            symbol String,
            expiry String,
            probability Float64,
            direction String,
            confidence String,
            time_to_blast_min Int32,
            triggers Array(String)
        ) ENGINE = MergeTree ORDER BY (symbol, expiry, ts)`, db),
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideSnapshotStore creates the ClickHouse snapshot repository.
func ProvideSnapshotStore(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.SnapshotStore {
	store := internalrepo.NewClickHouseSnapshotStore(chClient, cfg.ClickHouse.Database+".option_snapshots")
	store.SetLogger(l)
	return store
}

// ProvideSignalStore creates the ClickHouse signal repository.
func ProvideSignalStore(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.SignalStore {
	store := internalrepo.NewClickHouseSignalStore(chClient, cfg.ClickHouse.Database+".blast_signals")
	store.SetLogger(l)
	return store
}

// ProvideKafkaProducer creates a Kafka producer; nil unless the kafka backend
// is selected.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}
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

// ProvideSnapshotPublisher creates the Kafka publisher repository.
func ProvideSnapshotPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.SnapshotPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaSnapshotPublisher(producer, cfg.Kafka.SnapshotsTopic)
}

// ProvideKafkaConsumer creates the snapshots consumer; nil unless the kafka
// backend is selected.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}
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

// ProvideKafkaSnapshotsHandler persists consumed snapshots and queues scans.
func ProvideKafkaSnapshotsHandler(
	store repository.SnapshotStore,
	scans repository.ScanQueue,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.KafkaSnapshotsHandler {
	return usecase.NewKafkaSnapshotsHandler(cfg.Kafka.SnapshotsTopic, store, scans, m)
}

// ProvideRedisCache creates the shared Redis cache; nil when Redis is disabled.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCacheService layers an in-process cache over Redis when available.
func ProvideCacheService(rc *pkgcache.RedisCache) pkgcache.Service {
	if rc == nil {
		return pkgcache.NewMemoryCache()
	}
	return pkgcache.NewLayeredCache(rc)
}

// ProvideHTTPClient creates the outbound HTTP client used for broker calls.
func ProvideHTTPClient() *xhttp.Client {
	return xhttp.NewClient(xhttp.WithTimeout(10 * time.Second))
}

// ProvideTokenSource selects between a direct access token and the
// refresh-token exchange flow.
func ProvideTokenSource(cfg *config.Config, httpClient *xhttp.Client, l *applogger.Logger) upstox.TokenSource {
	if cfg.Upstox.AccessToken != "" {
		return upstox.StaticToken(cfg.Upstox.AccessToken)
	}
	opts := []upstox.TokenOption{upstox.WithTokenLogger(l)}
	if cfg.Upstox.BaseURL != "" {
		opts = append(opts, upstox.WithTokenURL(cfg.Upstox.BaseURL+"/login/authorization/token"))
	}
	return upstox.NewTokenManager(httpClient, cfg.Upstox.ClientID, cfg.Upstox.ClientSecret, cfg.Upstox.RefreshToken, opts...)
}

// ProvideUpstoxClient creates the broker REST client.
func ProvideUpstoxClient(httpClient *xhttp.Client, tokens upstox.TokenSource, cfg *config.Config, l *applogger.Logger) *upstox.Client {
	opts := []upstox.ClientOption{upstox.WithLogger(l)}
	if cfg.Upstox.BaseURL != "" {
		opts = append(opts, upstox.WithBaseURL(cfg.Upstox.BaseURL))
	}
	return upstox.NewClient(httpClient, tokens, opts...)
}

// ProvideMarketStream creates the spot feed; nil when no feed URL is
// configured, the collector then uses chain spot prices only.
func ProvideMarketStream(cfg *config.Config, tokens upstox.TokenSource) repository.MarketStream {
	if cfg.Upstox.FeedURL == "" {
		return nil
	}
	symbolByKey := make(map[string]string, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		symbolByKey[s.InstrumentKey] = s.Name
	}
	return upstox.NewStream(
		cfg.Upstox.FeedURL,
		tokens,
		symbolByKey,
		cfg.Upstox.ReconnectDelay,
		cfg.Upstox.PingInterval,
	)
}

// ProvideBlastScanner creates the detector use case.
func ProvideBlastScanner(
	snaps repository.SnapshotStore,
	signals repository.SignalStore,
	cacheSvc pkgcache.Service,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.BlastScanner {
	opts := []usecase.ScannerOption{usecase.WithScannerLogger(l)}
	if cfg.Scanner.SignalCacheTTL > 0 {
		opts = append(opts, usecase.WithSignalCacheTTL(cfg.Scanner.SignalCacheTTL))
	}
	return usecase.NewBlastScanner(snaps, signals, blast.NewDetector(), cacheSvc, m, opts...)
}

// ProvideScanQueue publishes scan jobs to Redis, or runs them inline when
// Redis is disabled.
func ProvideScanQueue(rc *pkgcache.RedisCache, scanner *usecase.BlastScanner, l *applogger.Logger) repository.ScanQueue {
	if rc == nil {
		return usecase.NewInlineScanQueue(scanner)
	}
	return usecase.NewRedisScanQueue(queue.NewRedisPublisher(l, rc.Client()))
}

// ProvideQueueConsumer creates the Redis worker pool that runs scan jobs.
func ProvideQueueConsumer(cfg *config.Config, rc *pkgcache.RedisCache, scanner *usecase.BlastScanner, l *applogger.Logger) *queue.RedisQueue {
	if rc == nil {
		return nil
	}
	qc := &queue.QueueConfig{
		Workers:    cfg.Redis.Queue.Workers,
		QueueSize:  cfg.Redis.Queue.QueueSize,
		RetryLimit: cfg.Redis.Queue.RetryLimit,
		RetryDelay: cfg.Redis.Queue.RetryDelay,
	}
	return queue.NewRedisConsumer(l, qc, rc.Client(), []queue.Job{usecase.NewScanJobHandler(scanner)})
}

// ProvideSnapshotProcessor routes snapshots to the configured backend.
func ProvideSnapshotProcessor(
	pub repository.SnapshotPublisher,
	store repository.SnapshotStore,
	scans repository.ScanQueue,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.SnapshotProcessor {
	return usecase.NewSnapshotProcessor(pub, store, scans, m, cfg.Backend.Type)
}

// ProvideChainCollector creates the polling collector with its ingest pipeline.
func ProvideChainCollector(
	client *upstox.Client,
	processor *usecase.SnapshotProcessor,
	stream repository.MarketStream,
	cacheSvc pkgcache.Service,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.ChainCollector {
	pipe := mid.NewIngestPipeline(processor, m,
		mid.WithMaxRPS(cfg.Collector.MaxRPS),
		mid.WithBufferSize(500),
	)

	symbols := make([]usecase.SymbolConfig, 0, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		symbols = append(symbols, usecase.SymbolConfig{Name: s.Name, InstrumentKey: s.InstrumentKey})
	}

	opts := []usecase.CollectorOption{
		usecase.WithForceRun(cfg.Collector.ForceRun),
		usecase.WithCollectorLogger(l),
	}
	if cfg.Collector.ExpiryTTL > 0 {
		opts = append(opts, usecase.WithExpiryTTL(cfg.Collector.ExpiryTTL))
	}
	if stream != nil {
		opts = append(opts, usecase.WithMarketStream(stream))
	}

	return usecase.NewChainCollector(client, processor, pipe, cacheSvc, m, symbols, cfg.Collector.Interval, opts...)
}

// ProvideBlastHandler creates the HTTP handler with a response-level cache.
func ProvideBlastHandler(l *applogger.Logger, scanner *usecase.BlastScanner, collector *usecase.ChainCollector, cfg *config.Config) *api.BlastEchoHandler {
	h := api.NewBlastEchoHandler(l, scanner, collector)
	if cfg.Redis.Enabled {
		h.SetBytesCache(icache.NewRedisCache(icache.RedisConfig{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}))
	} else {
		h.SetBytesCache(icache.NewTTLCache())
	}
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.ChainCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaSnapshotsHandler,
	queueConsumer *queue.RedisQueue,
	chClient *pkgch.Client,
	handler *api.BlastEchoHandler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	app := server.New(cfg, l, collector, consumer, kh, queueConsumer, chClient)
	app.SetHTTPHandler(handler)
	return app
}
