package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"

	"github.com/Ramsey-B/sage/config"
	runrepo "github.com/Ramsey-B/sage/internal/repositories/run"
	"github.com/Ramsey-B/sage/pkg/classifier"
	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/embedding"
	"github.com/Ramsey-B/sage/pkg/events"
	"github.com/Ramsey-B/sage/pkg/kafka"
	"github.com/Ramsey-B/sage/pkg/middleware"
	"github.com/Ramsey-B/sage/pkg/oracle"
	"github.com/Ramsey-B/sage/pkg/prefilter"
	"github.com/Ramsey-B/sage/pkg/ratelimit"
	"github.com/Ramsey-B/sage/pkg/reconcile"
	redisclient "github.com/Ramsey-B/sage/pkg/redis"
	"github.com/Ramsey-B/sage/pkg/routes/health"
	reconcileroute "github.com/Ramsey-B/sage/pkg/routes/reconcile"
	runroute "github.com/Ramsey-B/sage/pkg/routes/run"
	"github.com/Ramsey-B/sage/pkg/startup"
	"github.com/Ramsey-B/sage/pkg/tracing"
	"github.com/Ramsey-B/sage/pkg/tracing/exporters"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	logger.WithField("version", version).Infof("Starting %s", cfg.AppName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.TracingEnabled {
		shutdown, err := initTracing(ctx, cfg)
		if err != nil {
			logger.WithError(err).Warn("Tracing init failed; continuing without traces")
		} else {
			defer shutdown(context.Background())
		}
	}

	// Infrastructure

	var db *sqlx.DB
	var redis *redisclient.Client
	var producer *kafka.Producer

	manager := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	manager.AddDependency(&dependency{
		name: "postgres",
		start: func(ctx context.Context) error {
			dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
				cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName, cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode)
			conn, err := sqlx.ConnectContext(ctx, cfg.DatabaseDriver, dsn)
			if err != nil {
				return err
			}
			conn.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
			conn.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
			conn.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)
			db = conn
			return nil
		},
		stop: func(context.Context) error {
			if db != nil {
				return db.Close()
			}
			return nil
		},
	})
	manager.AddDependency(&dependency{
		name:      "migrations",
		dependsOn: []string{"postgres"},
		start: func(ctx context.Context) error {
			driver, err := migratepg.WithInstance(db.DB, &migratepg.Config{})
			if err != nil {
				return err
			}
			ms := database.NewMigrationService(logger, &database.MigrationConfig{
				MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
				Version:             uint(cfg.DatabaseMigrationVersion),
				Force:               cfg.DatabaseMigrationForce,
				AutoRollback:        cfg.DatabaseMigrationAutoRollback,
			})
			return ms.Migrate(cfg.DatabaseName, driver)
		},
		stop: func(context.Context) error { return nil },
	})
	manager.AddDependency(&dependency{
		name: "redis",
		start: func(ctx context.Context) error {
			client, err := redisclient.NewClient(redisclient.Config{
				Host:     cfg.RedisHost,
				Port:     cfg.RedisPort,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			}, logger)
			if err != nil {
				return err
			}
			redis = client
			return nil
		},
		stop: func(context.Context) error {
			if redis != nil {
				return redis.Close()
			}
			return nil
		},
	})
	manager.AddDependency(&dependency{
		name: "kafka",
		start: func(ctx context.Context) error {
			producer = kafka.NewProducer(kafka.ProducerConfig{
				Brokers:      cfg.KafkaBrokers,
				Topic:        cfg.KafkaOutputTopic,
				BatchSize:    cfg.KafkaBatchSize,
				BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
				RequiredAcks: cfg.KafkaRequiredAcks,
				Compression:  cfg.KafkaCompression,
			}, logger)
			return nil
		},
		stop: func(context.Context) error {
			if producer != nil {
				return producer.Close()
			}
			return nil
		},
	})

	if err := manager.Start(ctx); err != nil {
		logger.WithError(err).Error("Startup failed")
		os.Exit(1)
	}
	defer manager.Stop(context.Background())

	// Engine wiring

	geminiOracle := oracle.NewGeminiOracle(oracle.GeminiConfig{
		BaseURL: cfg.GeminiBaseURL,
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		Timeout: cfg.GeminiTimeout,
	}, logger)

	embedder := embedding.NewCachedProvider(
		embedding.NewGeminiProvider(embedding.GeminiConfig{
			BaseURL: cfg.GeminiBaseURL,
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiEmbeddingModel,
			Timeout: cfg.GeminiTimeout,
		}),
		redis,
		cfg.GeminiEmbeddingModel,
		cfg.EmbedCacheTTL,
		logger,
	)

	pipeline := reconcile.NewPipeline(
		logger,
		prefilter.NewService(logger, embedder, cfg.SimilarityThreshold),
		classifier.NewService(logger, geminiOracle, classifier.Config{
			MaxAttempts:    cfg.ClassifyMaxAttempts,
			RetryBaseDelay: cfg.ClassifyRetryDelay,
		}),
		reconcile.Config{WorkerCount: cfg.ReconcileWorkerCount},
	)

	budget := ratelimit.NewDailyBudget(redis, ratelimit.Policy{
		DefaultLimit: cfg.BudgetDefaultLimit,
		MemberLimit:  cfg.BudgetMemberLimit,
	}, logger)

	repo := runrepo.NewRepository(database.NewDatabaseInstance(db, logger), logger)
	emitter := events.NewEmitter(producer, logger)

	// HTTP

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.AllowOrigins,
		AllowMethods:  cfg.AllowMethods,
		AllowHeaders:  []string{echo.HeaderContentType, middleware.HeaderTenantID, middleware.HeaderUserID, middleware.HeaderUserMember},
		ExposeHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining"},
	}))
	e.Use(middleware.Context())
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Logger(logger))
	e.HTTPErrorHandler = middleware.Error(logger)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	checker := health.NewChecker(db, pinger{redis}, geminiOracle.Configured(), version)
	checker.RegisterRoutes(e)

	reconcileroute.NewHandler(logger, pipeline, repo, emitter).RegisterRoutes(e, middleware.DailyBudget(budget))
	runroute.NewHandler(logger, repo, emitter).RegisterRoutes(e)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		ReadTimeout:       time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		checker.SetReady(true)
		if err := e.StartServer(server); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("HTTP server stopped")
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		logger.Info("Shutdown signal received")
	case <-ctx.Done():
	}

	checker.SetReady(false)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}
}

func newLogger(cfg *config.Config) ectologger.Logger {
	var zapLogger *zap.Logger
	var err error
	if cfg.PrettyLogs {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		zapLogger = zap.NewNop()
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func initTracing(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	var exporter sdktrace.SpanExporter
	var err error
	if cfg.TracingProtocol == "console" {
		exporter, err = exporters.NewConsoleExporter(cfg.PrettyLogs)
	} else {
		exporter, err = exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: cfg.TracingEndpoint,
			Protocol: cfg.TracingProtocol,
			Insecure: cfg.TracingInsecure,
			Timeout:  10 * time.Second,
		})
	}
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(sdkresource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.AppName),
			semconv.ServiceVersion(version),
		)),
	)
	otel.SetTracerProvider(provider)
	tracing.SetTracer(provider.Tracer(cfg.AppName))

	return provider.Shutdown, nil
}

// dependency adapts closures to the startup manager.
type dependency struct {
	name      string
	dependsOn []string
	start     func(context.Context) error
	stop      func(context.Context) error
}

func (d *dependency) GetName() string                 { return d.name }
func (d *dependency) DependsOn() []string             { return d.dependsOn }
func (d *dependency) Start(ctx context.Context) error { return d.start(ctx) }
func (d *dependency) Stop(ctx context.Context) error  { return d.stop(ctx) }

// pinger adapts the Redis client to the health checker.
type pinger struct {
	client *redisclient.Client
}

func (p pinger) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return p.client.Ping(ctx)
}
