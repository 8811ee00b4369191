package config

import (
	"fmt"
	"strings"

	pkgconfig "github.com/VishalVrk/rfid-cart/pkg/config"
)

// Store backends for the persisted cart.
const (
	StoreBackendRedis = "redis"
	StoreBackendFile  = "file"
)

// Config holds all configuration for the trolley storefront.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort              int `env:"HTTP_PORT" envDefault:"8080"`
	HTTPReadTimeoutSecs   int `env:"HTTP_READ_TIMEOUT_SECONDS" envDefault:"15"`
	HTTPWriteTimeoutSecs  int `env:"HTTP_WRITE_TIMEOUT_SECONDS" envDefault:"15"`
	HTTPIdleTimeoutSecs   int `env:"HTTP_IDLE_TIMEOUT_SECONDS" envDefault:"60"`
	HTTPRequestTimeoutSec int `env:"HTTP_REQUEST_TIMEOUT_SECONDS" envDefault:"10"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"trolley"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"trolley_secret"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"trolley"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Slow query logging, 0 disables it
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`

	// Redis carries the trolley feed, the persisted cart and the consumer
	// idempotency keys. RedisURL wins over the discrete fields when set.
	RedisURL  string `env:"REDIS_URL"`
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Trolley feed
	FeedNamespace string `env:"FEED_NAMESPACE" envDefault:"smart_trolley"`
	FeedChannel   string `env:"FEED_CHANNEL" envDefault:"smart_trolley:changes"`

	// Persisted cart
	StoreBackend string `env:"CART_STORE_BACKEND" envDefault:"redis"`
	StoreKey     string `env:"CART_STORE_KEY" envDefault:"cart"`
	StorePath    string `env:"CART_STORE_PATH" envDefault:"cart.json"`
	StoreTTLHrs  int    `env:"CART_STORE_TTL_HOURS" envDefault:"0"`

	// Engine sinks
	FeedQueueSize      int `env:"ENGINE_FEED_QUEUE_SIZE" envDefault:"256"`
	SinkWriteTimeoutMs int `env:"ENGINE_WRITE_TIMEOUT_MS" envDefault:"5000"`
	SinkDrainTimeoutMs int `env:"ENGINE_DRAIN_TIMEOUT_MS" envDefault:"5000"`

	// Circuit breaker around the feed mirror
	CBMaxRequests  uint32  `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBInterval     int     `env:"CB_INTERVAL_SECONDS" envDefault:"60"`
	CBTimeout      int     `env:"CB_TIMEOUT_SECONDS" envDefault:"30"`
	CBFailureRatio float64 `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32  `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// Kafka
	KafkaBrokers       []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaConsumerGroup string   `env:"KAFKA_CONSUMER_GROUP" envDefault:"trolley-storefront"`
	KafkaAsync         bool     `env:"KAFKA_ASYNC" envDefault:"true"`
	EventDedupTTLHours int      `env:"EVENT_DEDUP_TTL_HOURS" envDefault:"24"`

	// Checkout
	MerchantName    string `env:"MERCHANT_NAME" envDefault:"Cartopia"`
	TransactionNote string `env:"TRANSACTION_NOTE" envDefault:"Payment for Cartopia order"`
	FallbackUPIID   string `env:"FALLBACK_UPI_ID" envDefault:"vishalvrk97@okhdfcbank"`

	// Admin API credentials: a static bearer token and/or an HS256 secret for
	// signed tokens. Both empty disables the admin routes.
	AdminToken     string `env:"ADMIN_TOKEN"`
	AdminJWTSecret string `env:"ADMIN_JWT_SECRET"`

	// Per-IP rate limit on the public API, 0 disables it
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.0/8,::1/128" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if c.FeedNamespace == "" {
		return fmt.Errorf("FEED_NAMESPACE is required")
	}
	switch c.StoreBackend {
	case StoreBackendRedis:
		if c.StoreKey == "" {
			return fmt.Errorf("CART_STORE_KEY is required for the redis store")
		}
	case StoreBackendFile:
		if c.StorePath == "" {
			return fmt.Errorf("CART_STORE_PATH is required for the file store")
		}
	default:
		return fmt.Errorf("invalid CART_STORE_BACKEND %q: want %s or %s", c.StoreBackend, StoreBackendRedis, StoreBackendFile)
	}
	if c.FeedQueueSize < 1 {
		return fmt.Errorf("ENGINE_FEED_QUEUE_SIZE must be positive, got %d", c.FeedQueueSize)
	}
	if c.SinkWriteTimeoutMs < 1 {
		return fmt.Errorf("ENGINE_WRITE_TIMEOUT_MS must be positive, got %d", c.SinkWriteTimeoutMs)
	}
	if c.CBFailureRatio <= 0 || c.CBFailureRatio > 1.0 {
		return fmt.Errorf("CB_FAILURE_RATIO must be in (0, 1], got %f", c.CBFailureRatio)
	}
	if !strings.Contains(c.FallbackUPIID, "@") {
		return fmt.Errorf("FALLBACK_UPI_ID must look like name@bank, got %q", c.FallbackUPIID)
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must not be negative")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}
