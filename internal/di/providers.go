package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"StockPulse/internal/domain/repository"
	domsvc "StockPulse/internal/domain/service"
	mid "StockPulse/internal/middleware"
	internalrepo "StockPulse/internal/repository"
	"StockPulse/internal/service/orderfeed"
	"StockPulse/internal/services/anomaly"
	"StockPulse/internal/services/forecast"
	"StockPulse/internal/services/seasonal"
	"StockPulse/internal/usecase"
	"StockPulse/pkg/cache"
	pkgch "StockPulse/pkg/clickhouse"
	"StockPulse/pkg/config"
	pkgkafka "StockPulse/pkg/kafka"
	applogger "StockPulse/pkg/logger"
	"StockPulse/pkg/metrics"
	"StockPulse/pkg/queue"
	"StockPulse/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the schema.
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
		`CREATE TABLE IF NOT EXISTS ` + db + `.order_events_raw (
            ts DateTime,
            store_id String,
            product_id String,
            variant_id String,
            type LowCardinality(String),
            quantity Int32,
            unit_price Float64,
            event_id String
        ) ENGINE=ReplacingMergeTree ORDER BY (product_id, variant_id, ts, event_id)`,
		`CREATE TABLE IF NOT EXISTS ` + db + `.products (
            product_id String,
            variant_id String,
            name String,
            store_id String,
            category LowCardinality(String),
            pet_types String,
            price Float64,
            current_stock Int32,
            reserved_stock Int32,
            low_stock_threshold Int32,
            is_perishable UInt8,
            shelf_life String,
            expiry_date Nullable(DateTime),
            is_active UInt8,
            price_change_pct Float64,
            updated_at DateTime
        ) ENGINE=ReplacingMergeTree(updated_at) ORDER BY (product_id, variant_id)`,
		`CREATE TABLE IF NOT EXISTS ` + db + `.inventory_predictions (
            product_id String,
            variant_id String,
            period_start Date,
            period_end Date,
            predicted_demand Float64,
            urgency LowCardinality(String),
            suggested_quantity Int32,
            model LowCardinality(String),
            confidence Float64,
            created_at DateTime
        ) ENGINE=MergeTree ORDER BY (product_id, variant_id, created_at)`,
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
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

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideOrderStorage creates the ClickHouse order-event storage.
func ProvideOrderStorage(chClient *pkgch.Client, cfg *config.Config) repository.Storage {
	return internalrepo.NewClickHouseStorage(chClient.DB(), cfg.ClickHouse.Database+".order_events_raw")
}

// ProvideOrderPublisher creates the Kafka order-event publisher.
func ProvideOrderPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideAlertPublisher creates the restock alert publisher.
func ProvideAlertPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.AlertPublisher {
	return internalrepo.NewKafkaAlertPublisher(producer, cfg.Kafka.AlertTopic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
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

// ProvideKafkaOrdersHandler registers the handler for the orders topic.
func ProvideKafkaOrdersHandler(store repository.Storage, metrics repository.Metrics, cfg *config.Config) *usecase.KafkaOrdersHandler {
	return usecase.NewKafkaOrdersHandler(cfg.Kafka.Topic, store, metrics)
}

// ProvideOrderFeed creates the storefront WebSocket stream.
func ProvideOrderFeed(cfg *config.Config) repository.OrderStream {
	return orderfeed.New(
		cfg.OrderFeed.APIKey,
		cfg.OrderFeed.WebSocketURL,
		cfg.OrderFeed.StoreIDs,
		cfg.OrderFeed.ReconnectDelay,
		cfg.OrderFeed.PingInterval,
	)
}

// ProvideOrderProcessor creates the order processor use case.
func ProvideOrderProcessor(
	pub repository.Publisher,
	store repository.Storage,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.OrderProcessor {
	return usecase.NewOrderProcessor(
		pub,
		store,
		metrics,
		cfg.Backend.Type,
		cfg.Backend.BatchSize,
		cfg.Backend.BatchTimeout,
	)
}

// ProvideOrderCollector creates the order collector use case.
func ProvideOrderCollector(
	stream repository.OrderStream,
	processor *usecase.OrderProcessor,
	metrics repository.Metrics,
) *usecase.OrderCollector {
	// Ingest pipeline between the order feed and the backend
	pipe := mid.NewIngestPipeline(processor, metrics,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewOrderCollector(stream, processor, metrics, pipe)
}

// ProvideRedisCache creates the Redis cache client. Returns nil when Redis
// is disabled; downstream wiring treats that as cache-off.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("redis port: %w", err)
	}
	return cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix("stockpulse"),
	)
}

// ProvideCacheService layers an in-process cache over Redis.
func ProvideCacheService(redisCache *cache.RedisCache) cache.Service {
	if redisCache == nil {
		return nil
	}
	return cache.NewLayeredCache(redisCache)
}

// ProvideInventoryRepo creates the inventory repository adapter.
func ProvideInventoryRepo(chClient *pkgch.Client, c cache.Service, cfg *config.Config, l *applogger.Logger) repository.Inventory {
	repo := internalrepo.NewCHInventory(chClient)
	repo.SetLogger(l)
	if c != nil {
		repo.SetCache(c, cfg.Engine.CacheTTL.Snapshot, cfg.Engine.CacheTTL.CategoryAverage)
	}
	return repo
}

// ProvidePredictionStore creates the synchronous analysis persistence layer.
func ProvidePredictionStore(
	chClient *pkgch.Client,
	alerts repository.AlertPublisher,
	c cache.Service,
	cfg *config.Config,
	l *applogger.Logger,
) *internalrepo.CHPredictionStore {
	store := internalrepo.NewCHPredictionStore(chClient.DB(), cfg.Engine.HorizonDays)
	store.SetLogger(l)
	store.SetAlerts(alerts)
	if c != nil {
		store.SetCache(c, cfg.Engine.CacheTTL.Analysis)
	}
	return store
}

// ProvideQueue creates the Redis job queue draining persist jobs. Returns
// nil when Redis is disabled; persistence then runs inline.
func ProvideQueue(l *applogger.Logger, redisCache *cache.RedisCache, store *internalrepo.CHPredictionStore) *queue.RedisQueue {
	if redisCache == nil {
		return nil
	}
	return queue.NewRedisConsumer(l, &queue.QueueConfig{
		Workers:    2,
		QueueSize:  1000,
		RetryLimit: 3,
		RetryDelay: 5 * time.Second,
	}, redisCache.Client(), []queue.Job{
		internalrepo.NewPersistAnalysisJob(store),
	}, queue.WithKeyPrefix("stockpulse"))
}

// ProvideAnalysisSink picks queued persistence when the queue is available,
// inline otherwise.
func ProvideAnalysisSink(q *queue.RedisQueue, store *internalrepo.CHPredictionStore) repository.AnalysisSink {
	if q != nil {
		return internalrepo.NewQueuedAnalysisSink(q)
	}
	return store
}

// ProvideCapabilities maps model feature flags onto engine capabilities.
func ProvideCapabilities(cfg *config.Config) domsvc.Capabilities {
	return domsvc.Capabilities{
		Decomposition:   cfg.Engine.Models.Decomposition,
		Smoothing:       cfg.Engine.Models.Smoothing,
		Trees:           cfg.Engine.Models.Trees,
		IsolationForest: cfg.Engine.Models.IsolationFor,
	}
}

// ProvideForecaster creates the statistical demand forecaster.
func ProvideForecaster(caps domsvc.Capabilities, l *applogger.Logger) domsvc.DemandForecaster {
	return forecast.New(caps, forecast.WithLogger(l))
}

// ProvideAdvancedForecaster creates the tree-ensemble forecaster.
func ProvideAdvancedForecaster(caps domsvc.Capabilities, l *applogger.Logger) domsvc.AdvancedForecaster {
	return forecast.NewAdvanced(caps, forecast.WithAdvancedLogger(l))
}

// ProvideSeasonalAnalyzer creates the seasonal analyzer.
func ProvideSeasonalAnalyzer() domsvc.SeasonalAnalyzer {
	return seasonal.New()
}

// ProvideAnomalyDetector creates the anomaly detector.
func ProvideAnomalyDetector(caps domsvc.Capabilities) domsvc.AnomalyDetector {
	return anomaly.New(caps)
}

// ProvidePredictor creates the analysis orchestrator.
func ProvidePredictor(
	repo repository.Inventory,
	forecaster domsvc.DemandForecaster,
	advanced domsvc.AdvancedForecaster,
	seasonalAn domsvc.SeasonalAnalyzer,
	anomalyDet domsvc.AnomalyDetector,
	m repository.Metrics,
	sink repository.AnalysisSink,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.InventoryPredictor {
	return usecase.NewInventoryPredictor(repo, forecaster, advanced, seasonalAn, anomalyDet, m,
		usecase.WithWindowDays(cfg.Engine.SeriesWindowDays),
		usecase.WithSafetyStockDays(cfg.Engine.SafetyStockDays),
		usecase.WithBatchWorkers(cfg.Engine.BatchWorkers),
		usecase.WithBatchLimit(cfg.Engine.BatchLimit),
		usecase.WithAnalysisTimeout(cfg.Engine.AnalysisTimeout),
		usecase.WithPriceImpact(cfg.Engine.PriceImpact),
		usecase.WithSink(sink),
		usecase.WithPredictorLogger(l),
	)
}

// ProvideSalesHistory creates the sales history read use case.
func ProvideSalesHistory(repo repository.Inventory) *usecase.SalesHistoryUseCase {
	return usecase.NewSalesHistoryUseCase(repo)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.OrderCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaOrdersHandler,
	chClient *pkgch.Client,
	predictor *usecase.InventoryPredictor,
	history *usecase.SalesHistoryUseCase,
	q *queue.RedisQueue,
	producer *pkgkafka.Producer,
) *server.App {
	// Attach hook to consumer: example NoopHook for now; can be replaced via config
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	// Aggregate noisy engine logs onto the log topic when configured.
	if cfg.Kafka.LogTopic != "" && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogTopic,
			Publisher:      &kafkaLogPublisher{producer: producer},
		})
	}

	app := server.New(cfg, l, collector, consumer, kh, chClient, q)
	app.Predictor = predictor
	app.History = history
	if collector != nil {
		app.OrderProc = collector.Processor()
	}
	return app
}

// kafkaLogPublisher adapts the Kafka producer to the log collector's
// publisher interface.
type kafkaLogPublisher struct {
	producer *pkgkafka.Producer
}

func (p *kafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}
