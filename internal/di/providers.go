package di

import (
	"context"
	"fmt"
	"time"

	"GridPulse/internal/domain/repository"
	"GridPulse/internal/engine"
	"GridPulse/internal/handler/api"
	mid "GridPulse/internal/middleware"
	internalrepo "GridPulse/internal/repository"
	icache "GridPulse/internal/service/cache"
	"GridPulse/internal/service/provider"
	"GridPulse/internal/usecase"
	pkgch "GridPulse/pkg/clickhouse"
	"GridPulse/pkg/config"
	pkgkafka "GridPulse/pkg/kafka"
	applogger "GridPulse/pkg/logger"
	"GridPulse/pkg/metrics"
	pkgqueue "GridPulse/pkg/queue"
	"GridPulse/pkg/server"

	"github.com/redis/go-redis/v9"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideClickHouseClient creates a ClickHouse client.
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
		"CREATE TABLE IF NOT EXISTS " + db + ".spot_prices (" +
			"starts_at DateTime, zone LowCardinality(String), duration_s Int64, " +
			"price Float64, level LowCardinality(String), currency LowCardinality(String), event_id String" +
			") ENGINE=ReplacingMergeTree ORDER BY (zone, starts_at)",
		"CREATE TABLE IF NOT EXISTS " + db + ".detected_periods (" +
			"zone LowCardinality(String), date Date, direction LowCardinality(String), " +
			"start DateTime, `end` DateTime, duration_s Int64, interval_count UInt16, " +
			"avg Float64, min Float64, max Float64, " +
			"smoothed_count UInt16, gap_count UInt16, attempt UInt8, target_met UInt8" +
			") ENGINE=ReplacingMergeTree ORDER BY (zone, direction, start)",
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

// ProvidePriceStorage creates ClickHouse storage repository.
func ProvidePriceStorage(chClient *pkgch.Client, cfg *config.Config) repository.Storage {
	db := cfg.ClickHouse.Database
	return internalrepo.NewClickHouseStorage(chClient.DB(), db+".spot_prices", db+".detected_periods")
}

// ProvidePricePublisher creates Kafka publisher repository.
func ProvidePricePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic, cfg.Kafka.ResultTopic)
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

// ProvideKafkaPricesHandler registers handler for the prices topic.
func ProvideKafkaPricesHandler(store repository.Storage, assembler *usecase.DayAssembler, metrics repository.Metrics, cfg *config.Config) *usecase.KafkaPricesHandler {
	return usecase.NewKafkaPricesHandler(cfg.Kafka.Topic, store, assembler, metrics)
}

// ProvidePriceStream creates the provider WebSocket stream.
func ProvidePriceStream(cfg *config.Config) repository.PriceStream {
	return provider.New(
		cfg.Provider.APIToken,
		cfg.Provider.WebSocketURL,
		cfg.Provider.Zones,
		cfg.Provider.ReconnectDelay,
		cfg.Provider.PingInterval,
	)
}

// ProvideCurveFetcher creates the provider REST curve client.
func ProvideCurveFetcher(cfg *config.Config) repository.CurveFetcher {
	timeout := cfg.Server.ReadTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return provider.NewCurveClient(cfg.Provider.BaseURL, cfg.Provider.APIToken, timeout)
}

// ProvideEngine creates the detection engine.
func ProvideEngine(cfg *config.Config, log *applogger.Logger) *engine.Engine {
	return engine.New(
		engine.WithSmoother(engine.SmootherConfig{
			Context:    cfg.Detection.Smoother.Context,
			Confidence: cfg.Detection.Smoother.Confidence,
			Symmetry:   cfg.Detection.Smoother.Symmetry,
			Zigzag:     cfg.Detection.Smoother.Zigzag,
		}),
		engine.WithLogger(log),
	)
}

// ProvideResultCache creates the detection result cache.
func ProvideResultCache(cfg *config.Config) *icache.ResultCache {
	return icache.NewResultCache(cfg.Detection.ResultTTL)
}

// ProvideDetector creates the detector use case.
func ProvideDetector(eng *engine.Engine, results *icache.ResultCache, metrics repository.Metrics, log *applogger.Logger) *usecase.Detector {
	return usecase.NewDetector(eng, results, metrics, log)
}

// ProvideResultProcessor creates the result sink.
func ProvideResultProcessor(store repository.Storage, pub repository.Publisher, metrics repository.Metrics) *usecase.ResultProcessor {
	return usecase.NewResultProcessor(store, pub, metrics)
}

// ProvideDayAssembler creates the day assembler.
func ProvideDayAssembler(
	fetch repository.CurveFetcher,
	det *usecase.Detector,
	sink *usecase.ResultProcessor,
	metrics repository.Metrics,
	log *applogger.Logger,
	cfg *config.Config,
) *usecase.DayAssembler {
	return usecase.NewDayAssembler(fetch, det, sink, metrics, log, cfg.Detection.Best, cfg.Detection.Peak)
}

// ProvideIntervalProcessor creates the interval processor use case.
func ProvideIntervalProcessor(
	pub repository.Publisher,
	store repository.Storage,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.IntervalProcessor {
	return usecase.NewIntervalProcessor(
		pub,
		store,
		metrics,
		cfg.Backend.Type,
		cfg.Backend.BatchSize,
		cfg.Backend.BatchTimeout,
	)
}

// ProvidePriceCollector creates the price collector use case.
func ProvidePriceCollector(
	stream repository.PriceStream,
	processor *usecase.IntervalProcessor,
	assembler *usecase.DayAssembler,
	metrics repository.Metrics,
) *usecase.PriceCollector {
	// Build middleware pipeline between WebSocket and backend
	pipe := mid.NewIngestPipeline(processor, metrics,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewPriceCollector(stream, processor, assembler, metrics, pipe)
}

// ProvideCurvePoller creates the day-ahead curve poller, backed by a Redis
// queue when Redis is enabled so fetches get retries and a DLQ.
func ProvideCurvePoller(assembler *usecase.DayAssembler, m repository.Metrics, log *applogger.Logger, cfg *config.Config) *usecase.CurvePoller {
	job := usecase.NewCurveFetchJob(assembler, log)
	var q pkgqueue.QueueService
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		rq := pkgqueue.NewRedisQueue(log, &pkgqueue.QueueConfig{
			Workers:    2,
			RetryLimit: 3,
			RetryDelay: 30 * time.Second,
		}, rdb, pkgqueue.ModeProducerConsumer)
		rq.RegisterJob(job)
		rq.RegisterJob(usecase.NewErrorLogsJob(m, log))
		if err := rq.Start(); err != nil {
			log.Warn("redis queue start failed, polling inline", applogger.Error(err))
		} else {
			q = rq
			// aggregate repeated error logs onto the queue
			log.AddCollector(&applogger.CollectionConfig{
				TimeInterval:   30 * time.Second,
				CountThreshold: 100,
				Topic:          "error_logs",
				Publisher:      rq,
			})
		}
	}
	return usecase.NewCurvePoller(cfg.Provider.Zones, cfg.Provider.PollInterval, q, job, log)
}

// ProvidePeriodsUseCase creates the stored-period query use case.
func ProvidePeriodsUseCase(store repository.Storage) *usecase.PeriodsUseCase {
	return usecase.NewPeriodsUseCase(store)
}

// ProvidePeriodsHandler creates the HTTP handler.
func ProvidePeriodsHandler(
	log *applogger.Logger,
	det *usecase.Detector,
	assembler *usecase.DayAssembler,
	periods *usecase.PeriodsUseCase,
	store repository.Storage,
	collector *usecase.PriceCollector,
	cfg *config.Config,
) *api.PeriodsEchoHandler {
	h := api.NewPeriodsEchoHandler(log, det, assembler, periods, store, cfg.Detection.Best, cfg.Detection.Peak)
	h.SetCollector(collector)
	if cfg.Redis.Enabled {
		h.SetCache(icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}))
	}
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	collector *usecase.PriceCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaPricesHandler,
	chClient *pkgch.Client,
	handler *api.PeriodsEchoHandler,
	poller *usecase.CurvePoller,
	log *applogger.Logger,
) *server.App {
	// Attach hook to consumer: example NoopHook for now; can be replaced via config
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	app := server.New(cfg, collector, consumer, kh, chClient, log)
	app.SetHTTPHandler(handler)
	app.SetPoller(poller)
	if collector != nil {
		app.Proc = collector.Processor()
	}
	return app
}
