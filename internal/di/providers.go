package di

import (
	"context"
	"fmt"
	"io"
	"time"

	"FusionRisk/internal/domain/models"
	"FusionRisk/internal/domain/repository"
	domsvc "FusionRisk/internal/domain/service"
	"FusionRisk/internal/handler/api"
	internalrepo "FusionRisk/internal/repository"
	"FusionRisk/internal/service/ratelimit"
	"FusionRisk/internal/services/analytics"
	"FusionRisk/internal/usecase"
	"FusionRisk/pkg/cache"
	pkgch "FusionRisk/pkg/clickhouse"
	"FusionRisk/pkg/config"
	"FusionRisk/pkg/http/middleware"
	pkgkafka "FusionRisk/pkg/kafka"
	applogger "FusionRisk/pkg/logger"
	"FusionRisk/pkg/metrics"
	pkgpg "FusionRisk/pkg/postgres"
	"FusionRisk/pkg/server"

	"github.com/labstack/echo/v4"
)

// Stores groups the storage-backed repositories of the selected backend.
type Stores struct {
	Metrics repository.MetricStore
	Risk    repository.RiskEventStore
	Audit   repository.AuditSink
	closer  io.Closer
}

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New(nil)
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the schema exists.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(pkgch.Config{
		Host:         cfg.ClickHouse.Host,
		Port:         cfg.ClickHouse.Port,
		Database:     cfg.ClickHouse.Database,
		User:         cfg.ClickHouse.User,
		Password:     cfg.ClickHouse.Password,
		UseHTTP:      cfg.ClickHouse.UseHTTP,
		AsyncInsert:  cfg.ClickHouse.AsyncInsert,
		WaitForAsync: cfg.ClickHouse.WaitForAsync,
		DialTimeout:  cfg.ClickHouse.DialTimeout,
		ReadTimeout:  cfg.ClickHouse.ReadTimeout,
		MaxExecTime:  cfg.ClickHouse.MaxExecutionTime,
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.ClickHouseSchema()); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvidePostgresClient connects through gorm and migrates the tables.
func ProvidePostgresClient(cfg *config.Config) (*pkgpg.Client, error) {
	client, err := pkgpg.Connect(cfg.Postgres.DSN,
		pkgpg.WithPool(cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns, cfg.Postgres.ConnLifetime),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres client: %w", err)
	}
	if err := client.Migrate(internalrepo.PostgresModels()...); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}
	return client, nil
}

// ProvideStores selects the storage backend named in config.
func ProvideStores(cfg *config.Config, l *applogger.Logger) (*Stores, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		client, err := ProvidePostgresClient(cfg)
		if err != nil {
			return nil, err
		}
		store := internalrepo.NewPGStore(client, l)
		l.Info("storage: postgres ready")
		return &Stores{Metrics: store, Risk: store, Audit: store, closer: client}, nil
	default:
		client, err := ProvideClickHouseClient(cfg)
		if err != nil {
			return nil, err
		}
		risk := internalrepo.NewCHRiskStore(client, l)
		l.Info("storage: clickhouse ready", applogger.String("database", cfg.ClickHouse.Database))
		return &Stores{
			Metrics: internalrepo.NewCHMetricStore(client, l),
			Risk:    risk,
			Audit:   risk,
			closer:  client,
		}, nil
	}
}

// ProvideCache uses Redis when enabled and an in-process cache otherwise.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		l.Info("cache: using in-memory cache")
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Redis.MemoryMaxSize)), nil
	}
	c, err := cache.NewRedisCache(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return c, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithDelivery(cfg.Kafka.RequiredAcks, cfg.Kafka.Producer.MaxAttempts, cfg.Kafka.Compression),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithKeyHashing(),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideErrorCollector publishes aggregated error logs when a logs topic is set.
func ProvideErrorCollector(cfg *config.Config, producer *pkgkafka.Producer, l *applogger.Logger) *applogger.Collector {
	if producer == nil || cfg.Kafka.LogsTopic == "" {
		return nil
	}
	c := applogger.NewCollector(applogger.CollectorConfig{
		FlushInterval: 30 * time.Second,
		MaxDistinct:   100,
		Topic:         cfg.Kafka.LogsTopic,
		Publisher:     producer,
	})
	l.AttachCollector(c)
	return c
}

// ProvideRiskPublisher publishes risk events to Kafka when it is enabled.
func ProvideRiskPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.RiskEventPublisher {
	if producer == nil {
		return internalrepo.NoopRiskPublisher{}
	}
	return internalrepo.NewKafkaRiskPublisher(producer, cfg.Kafka.RiskEventsTopic)
}

// ProvideReinforcementSyncer creates the HTTP client for the sync endpoint.
func ProvideReinforcementSyncer(cfg *config.Config) domsvc.ReinforcementSyncer {
	return analytics.NewHTTPReinforcementSyncer(cfg)
}

func lookback(lb config.Lookback) models.Lookback {
	return models.Lookback{MaxRecords: lb.MaxRecords, MaxAge: lb.MaxAge}
}

func ProvideBaselineAnalyzer(stores *Stores, m repository.Metrics, l *applogger.Logger, cfg *config.Config) *usecase.BaselineAnalyzer {
	return usecase.NewBaselineAnalyzer(stores.Metrics, stores.Audit, m, l, lookback(cfg.Pipeline.Baseline.Lookback))
}

func ProvidePredictiveForecaster(stores *Stores, m repository.Metrics, l *applogger.Logger, cfg *config.Config) *usecase.PredictiveForecaster {
	return usecase.NewPredictiveForecaster(stores.Metrics, stores.Audit, m, l, lookback(cfg.Pipeline.Forecast.Lookback))
}

func ProvideRiskEngine(
	forecaster *usecase.PredictiveForecaster,
	syncer domsvc.ReinforcementSyncer,
	stores *Stores,
	pub repository.RiskEventPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.RiskEngine {
	return usecase.NewRiskEngine(forecaster, syncer, stores.Risk, pub, stores.Audit, m, l)
}

func ProvideCalibrationLoop(baseline *usecase.BaselineAnalyzer, stores *Stores, m repository.Metrics, l *applogger.Logger, cfg *config.Config) *usecase.CalibrationLoop {
	return usecase.NewCalibrationLoop(baseline, stores.Metrics, stores.Audit, m, l, lookback(cfg.Pipeline.Calibration.Lookback))
}

func ProvideCalibrationScheduler(loop *usecase.CalibrationLoop, c cache.Service, cfg *config.Config, l *applogger.Logger) *usecase.CalibrationScheduler {
	return usecase.NewCalibrationScheduler(loop, c, cfg.Pipeline.Calibration.Interval, l)
}

// ProvideKafkaConsumer creates the metric ingest consumer, or nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
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
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(
		pkgkafka.TraceHook{},
		usecase.NewIngestValidationHook(l),
	))
	return consumer, nil
}

// ProvideMetricIngestHandler handles the metrics topic.
func ProvideMetricIngestHandler(cfg *config.Config, stores *Stores, m repository.Metrics, l *applogger.Logger) *usecase.MetricIngestHandler {
	return usecase.NewMetricIngestHandler(cfg.Kafka.MetricsTopic, stores.Metrics, m, l)
}

// ProvideRateLimiter creates the per-client limiter, or nil when disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.Server.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.Server.RateLimit.Burst, cfg.Server.RateLimit.RefillPerSec)
}

// ProvideHTTPHandler wires the pipeline routes behind auth and the optional rate limiter.
func ProvideHTTPHandler(
	cfg *config.Config,
	l *applogger.Logger,
	stores *Stores,
	baseline *usecase.BaselineAnalyzer,
	forecaster *usecase.PredictiveForecaster,
	risk *usecase.RiskEngine,
	loop *usecase.CalibrationLoop,
	scheduler *usecase.CalibrationScheduler,
	limiter *ratelimit.Limiter,
) *api.PipelineEchoHandler {
	var extra []echo.MiddlewareFunc
	if limiter != nil {
		extra = append(extra, limiter.Middleware())
	}
	mw := api.Middlewares(middleware.NewSharedSecretAuthenticator(cfg.Auth.InternalToken), l, extra...)
	return api.NewPipelineEchoHandler(l, baseline, forecaster, risk, loop, scheduler, stores.Metrics, mw...)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler *api.PipelineEchoHandler,
	stores *Stores,
	c cache.Service,
	producer *pkgkafka.Producer,
	_ *applogger.Collector,
	consumer *pkgkafka.Consumer,
	kh *usecase.MetricIngestHandler,
	scheduler *usecase.CalibrationScheduler,
	limiter *ratelimit.Limiter,
) *server.App {
	closers := []io.Closer{stores.closer, c}
	if producer != nil {
		closers = append(closers, producer)
	}
	background := []server.Background{scheduler}
	if limiter != nil {
		background = append(background, limiter)
	}
	return server.New(cfg, l, handler, consumer, kh, background, closers)
}
