package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/VishalVrk/rfid-cart/internal/config"
	"github.com/VishalVrk/rfid-cart/internal/domain"
	"github.com/VishalVrk/rfid-cart/internal/engine"
	"github.com/VishalVrk/rfid-cart/internal/event"
	feedredis "github.com/VishalVrk/rfid-cart/internal/feed/redis"
	handler "github.com/VishalVrk/rfid-cart/internal/handler/http"
	"github.com/VishalVrk/rfid-cart/internal/repository/postgres"
	"github.com/VishalVrk/rfid-cart/internal/repository/postgres/migrations"
	"github.com/VishalVrk/rfid-cart/internal/service"
	filestore "github.com/VishalVrk/rfid-cart/internal/store/file"
	redisstore "github.com/VishalVrk/rfid-cart/internal/store/redis"
	"github.com/VishalVrk/rfid-cart/pkg/breaker"
	"github.com/VishalVrk/rfid-cart/pkg/database"
	"github.com/VishalVrk/rfid-cart/pkg/health"
	pkgkafka "github.com/VishalVrk/rfid-cart/pkg/kafka"
	"github.com/VishalVrk/rfid-cart/pkg/middleware"
	"github.com/VishalVrk/rfid-cart/pkg/tracing"
)

const idempotencyKeyPrefix = "trolley:processed:"

// App wires together all dependencies and runs the trolley storefront.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *goredis.Client
	producer       *pkgkafka.Producer
	dlq            *pkgkafka.DLQProducer
	paymentStatus  *pkgkafka.Consumer
	cart           *service.CartSession
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    handler.ServiceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}

	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, handler.ServiceName)

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Configure slow query logging.
	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	// Initialize Redis, which carries the trolley feed and the persisted cart.
	redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
		URL:      cfg.RedisURL,
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	}, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	// Initialize Kafka producers.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	kafkaCfg.Async = cfg.KafkaAsync
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	dlq := pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
	logger.Info("kafka producer initialized",
		slog.Any("brokers", cfg.KafkaBrokers),
		slog.Bool("async", cfg.KafkaAsync),
	)
	eventProducer := event.NewProducer(producer, logger)

	// Open the cart engine over the persisted snapshot and the feed mirror.
	feed := feedredis.New(redisClient, cfg.FeedNamespace, cfg.FeedChannel, logger)
	eng := engine.Open(ctx, cartStore(cfg, redisClient), feed, logger, engineOptions(cfg))

	// Build the dependency graph.
	productRepo := postgres.NewProductRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	accountRepo := postgres.NewPaymentAccountRepository(pool)

	catalogService := service.NewCatalogService(productRepo, logger)
	cartSession := service.NewCartSession(eng, feed, catalogService, eventProducer, logger)
	if err := cartSession.Start(ctx); err != nil {
		logger.Warn("trolley feed unavailable, cart runs without live sync",
			slog.String("error", err.Error()),
		)
	}

	paymentService := service.NewPaymentService(paymentRepo, accountRepo, cartSession, eventProducer, service.PaymentConfig{
		MerchantName:    cfg.MerchantName,
		TransactionNote: cfg.TransactionNote,
		Fallback: domain.PaymentAccount{
			Name:  cfg.MerchantName,
			UPIID: cfg.FallbackUPIID,
		},
	}, logger)
	accountService := service.NewAccountService(accountRepo, logger)

	// Clear the cart once its payment is confirmed.
	eventConsumer := event.NewConsumer(cartSession, logger)
	idempotencyStore := pkgkafka.NewRedisIdempotencyStore(redisClient, idempotencyKeyPrefix,
		time.Duration(cfg.EventDedupTTLHours)*time.Hour)
	paymentStatusConsumer := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  cfg.KafkaConsumerGroup,
		Topic:    event.TopicPaymentStatusChanged,
		MinBytes: 1,
		MaxBytes: 10e6,
	}, eventConsumer.PaymentStatusHandler(idempotencyStore), dlq, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.Register("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	// HTTP router.
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	router := handler.NewRouter(handler.RouterConfig{
		Cart:           cartSession,
		Catalog:        catalogService,
		Payments:       paymentService,
		Accounts:       accountService,
		Health:         healthHandler,
		AdminToken:     cfg.AdminToken,
		AdminJWTSecret: cfg.AdminJWTSecret,
		CORS:           corsCfg,
		RequestTimeout: time.Duration(cfg.HTTPRequestTimeoutSec) * time.Second,
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}, logger)
	if cfg.AdminToken == "" && cfg.AdminJWTSecret == "" {
		logger.Warn("ADMIN_TOKEN and ADMIN_JWT_SECRET not set, admin API is disabled")
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       time.Duration(cfg.HTTPReadTimeoutSecs) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTPWriteTimeoutSecs) * time.Second,
		IdleTimeout:       time.Duration(cfg.HTTPIdleTimeoutSecs) * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redis:          redisClient,
		producer:       producer,
		dlq:            dlq,
		paymentStatus:  paymentStatusConsumer,
		cart:           cartSession,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// cartStore picks the persisted cart backend.
func cartStore(cfg *config.Config, client *goredis.Client) engine.StateStore {
	if cfg.StoreBackend == config.StoreBackendFile {
		return filestore.New(cfg.StorePath)
	}
	return redisstore.New(client, cfg.StoreKey, time.Duration(cfg.StoreTTLHrs)*time.Hour)
}

func engineOptions(cfg *config.Config) engine.Options {
	return engine.Options{
		FeedQueueSize: cfg.FeedQueueSize,
		WriteTimeout:  time.Duration(cfg.SinkWriteTimeoutMs) * time.Millisecond,
		DrainTimeout:  time.Duration(cfg.SinkDrainTimeoutMs) * time.Millisecond,
		Breaker: breaker.Config{
			Name:         "trolley-feed",
			MaxRequests:  cfg.CBMaxRequests,
			Interval:     time.Duration(cfg.CBInterval) * time.Second,
			Timeout:      time.Duration(cfg.CBTimeout) * time.Second,
			FailureRatio: cfg.CBFailureRatio,
			MinRequests:  cfg.CBMinRequests,
		},
	}
}

// Run starts the HTTP server and the payment event consumer, then blocks until
// the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	// Start HTTP server.
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Start Kafka consumer.
	go func() {
		if err := a.paymentStatus.Start(ctx); err != nil {
			errCh <- fmt.Errorf("payment status consumer: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order:
// 1. HTTP server (drain in-flight requests)
// 2. Kafka consumer
// 3. Cart session (release the feed, drain engine writes)
// 4. Tracer
// 5. Kafka producers
// 6. Redis and PostgreSQL
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Stop consuming payment events.
	if err := a.paymentStatus.Close(); err != nil {
		a.logger.Error("payment status consumer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 3. Stop the cart session while Redis is still reachable.
	a.cart.Stop()

	// 4. Flush pending spans.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 5. Close Kafka producers.
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	if err := a.dlq.Close(); err != nil {
		a.logger.Error("kafka dlq producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 6. Close Redis and PostgreSQL.
	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
