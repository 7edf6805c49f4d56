package di

import (
	"context"
	"fmt"
	"time"

	domrepo "StockCast/internal/domain/repository"
	internalrepo "StockCast/internal/repository"
	"StockCast/internal/service/datafile"
	"StockCast/internal/services/features"
	"StockCast/internal/services/trainer"
	"StockCast/internal/usecase"
	"StockCast/pkg/cache"
	pkgch "StockCast/pkg/clickhouse"
	"StockCast/pkg/config"
	pkgkafka "StockCast/pkg/kafka"
	applogger "StockCast/pkg/logger"
	"StockCast/pkg/metrics"
	"StockCast/pkg/server"
)

// ProvideLogger creates the application logger.
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

// ProvideMetrics creates a Prometheus recorder, or a no-op when metrics are
// disabled.
func ProvideMetrics(cfg *config.Config) domrepo.Metrics {
	if !cfg.Metrics.Enabled {
		return domrepo.NopMetrics{}
	}
	return metrics.New()
}

// ProvideArtifactStore builds the persistence stack: a filesystem store
// fronted by a byte cache. With Redis enabled the cache is layered
// (memory over Redis), otherwise in-process memory only.
func ProvideArtifactStore(cfg *config.Config, l *applogger.Logger) (domrepo.ArtifactStore, error) {
	fs, err := internalrepo.NewFSStore(cfg.Models.Dir, l)
	if err != nil {
		return nil, fmt.Errorf("artifact store: %w", err)
	}

	var store cache.Store
	if cfg.Cache.Redis.Enabled {
		redis, err := cache.NewRedisStore(
			cache.WithRedisAddr(cfg.Cache.Redis.Addr),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		store = cache.NewLayeredStore(redis, cache.WithMemoryMaxEntries(cfg.Cache.MemorySize))
	} else {
		store = cache.NewMemoryStore(cache.WithMemoryMaxEntries(cfg.Cache.MemorySize))
	}

	return internalrepo.NewCachedStore(fs, store, cfg.Cache.Redis.TTL, l), nil
}

// ProvideReportSink builds the telemetry sink for the configured backend.
func ProvideReportSink(cfg *config.Config, l *applogger.Logger) (domrepo.ReportSink, error) {
	switch cfg.Reporting.Backend {
	case "kafka":
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Reporting.Kafka.Brokers),
			pkgkafka.WithCompression(cfg.Reporting.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Reporting.Kafka.RequiredAcks),
			pkgkafka.WithMaxAttempts(cfg.Reporting.Kafka.MaxAttempts),
			pkgkafka.WithBatch(cfg.Reporting.Kafka.BatchSize, cfg.Reporting.Kafka.BatchTimeout),
			pkgkafka.WithTimeouts(cfg.Reporting.Kafka.WriteTimeout, cfg.Reporting.Kafka.WriteTimeout),
			pkgkafka.WithAsync(cfg.Reporting.Kafka.Async),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		return internalrepo.NewKafkaSink(producer, cfg.Reporting.Kafka.Topic, l), nil

	case "clickhouse":
		client, err := pkgch.NewClient(
			pkgch.WithHost(cfg.Reporting.ClickHouse.Host),
			pkgch.WithPort(cfg.Reporting.ClickHouse.Port),
			pkgch.WithDatabase(cfg.Reporting.ClickHouse.Database),
			pkgch.WithCredentials(cfg.Reporting.ClickHouse.User, cfg.Reporting.ClickHouse.Password),
			pkgch.WithMaxConnections(10, 5),
			pkgch.WithTimeouts(cfg.Reporting.ClickHouse.DialTimeout, cfg.Reporting.ClickHouse.ReadTimeout),
			pkgch.WithMaxExecutionTime(cfg.Reporting.ClickHouse.MaxExecutionTime),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sink, err := internalrepo.NewCHSink(ctx, client, l)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("clickhouse sink: %w", err)
		}
		return sink, nil

	default:
		return domrepo.NopSink{}, nil
	}
}

// ProvideEngineer creates the feature engineer.
func ProvideEngineer() *features.Engineer {
	return features.NewEngineer()
}

// ProvideTrainer creates the trainer from config.
func ProvideTrainer(cfg *config.Config, sink domrepo.ReportSink, m domrepo.Metrics, l *applogger.Logger) *trainer.Trainer {
	return trainer.New(trainer.Options{
		Horizons:      cfg.Models.Horizons,
		Trials:        cfg.Models.Trials,
		Folds:         cfg.Models.Folds,
		Workers:       cfg.Models.Workers,
		SearchTimeout: cfg.Models.SearchTimeout,
		Seed:          cfg.Models.Seed,
	}, sink, m, l)
}

// ProvideLoader creates the input file loader.
func ProvideLoader(cfg *config.Config, l *applogger.Logger) *datafile.Loader {
	return datafile.NewLoader(cfg.Data.Dir, l)
}

// ProvideManager creates the model manager.
func ProvideManager(
	engineer *features.Engineer,
	tr *trainer.Trainer,
	store domrepo.ArtifactStore,
	loader *datafile.Loader,
	m domrepo.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.Manager {
	return usecase.NewManager(engineer, tr, store, loader, m, l, usecase.ManagerOptions{
		Horizons: cfg.Models.Horizons,
		MaxAge:   time.Duration(cfg.Models.MaxAgeDays) * 24 * time.Hour,
	})
}

// ProvideApp creates the application runner and ties the sink's lifetime to
// the app shutdown.
func ProvideApp(
	cfg *config.Config,
	manager *usecase.Manager,
	loader *datafile.Loader,
	sink domrepo.ReportSink,
	l *applogger.Logger,
) *server.App {
	app := server.New(cfg, manager, loader, l)
	app.OnShutdown(sink.Close)
	return app
}
