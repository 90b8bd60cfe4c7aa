package config

import (
	"fmt"
	"time"

	"github.com/utafrali/catalog-search/pkg/database"
	pkgconfig "github.com/utafrali/catalog-search/pkg/config"
	"github.com/utafrali/catalog-search/pkg/tracing"
)

// ServiceName identifies this service in logs, metrics and traces.
const ServiceName = "catalog-search"

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Cache backends.
const (
	CacheRedis  = "redis"
	CacheMemory = "memory"
	CacheNone   = "none"
)

// Config holds all configuration for the catalog search service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Version     string `env:"SERVICE_VERSION" envDefault:"dev"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8000"`
	RequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	AdminToken      string        `env:"ADMIN_TOKEN"`
	PprofCIDRs      []string      `env:"PPROF_ALLOWED_CIDRS" envSeparator:","`

	// Catalog store
	StoreBackend string `env:"STORE_BACKEND" envDefault:"postgres"`

	// PostgreSQL
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"postgres"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"postgres"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"catalog"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	DBMaxConns        int32         `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns        int32         `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	SlowQueryMS       int           `env:"LOG_SLOW_QUERY_MS" envDefault:"200"`

	// Result cache
	CacheBackend           string        `env:"CACHE_BACKEND" envDefault:"redis"`
	CacheTTL               time.Duration `env:"SEARCH_CACHE_TTL" envDefault:"15m"`
	CacheInvalidateOnWrite bool          `env:"SEARCH_CACHE_INVALIDATE_ON_WRITE" envDefault:"false"`
	CacheMaxEntries        int           `env:"SEARCH_CACHE_MAX_ENTRIES" envDefault:"10000"`
	SearchMaxAge           time.Duration `env:"SEARCH_HTTP_MAX_AGE" envDefault:"0s"`

	// Redis
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"10"`

	// Kafka
	KafkaEnabled       bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers       []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaConsumerGroup string   `env:"KAFKA_CONSUMER_GROUP" envDefault:"catalog-search"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELInsecure   bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	return LoadFrom(nil)
}

// LoadFrom reads configuration from environ, or from the process
// environment when environ is nil.
func LoadFrom(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadFrom(cfg, environ); err != nil {
		return nil, fmt.Errorf("load catalog search config: %w", err)
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
	switch c.StoreBackend {
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be one of postgres, memory: got %q", c.StoreBackend)
	}
	switch c.CacheBackend {
	case CacheRedis, CacheMemory, CacheNone:
	default:
		return fmt.Errorf("CACHE_BACKEND must be one of redis, memory, none: got %q", c.CacheBackend)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("SEARCH_CACHE_TTL must be positive: got %s", c.CacheTTL)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0: got %v", c.OTELSampleRate)
	}
	return nil
}

// Postgres returns the connection pool settings.
func (c *Config) Postgres() database.PostgresConfig {
	return database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPassword,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSLMode,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: c.DBMaxConnLifetime,
		MaxConnIdleTime: c.DBMaxConnIdleTime,
	}
}

// Redis returns the Redis client settings.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
		PoolSize: c.RedisPoolSize,
	}
}

// Tracing returns the OpenTelemetry exporter settings.
func (c *Config) Tracing() tracing.Config {
	return tracing.Config{
		Enabled:        c.OTELEnabled,
		ServiceName:    ServiceName,
		ServiceVersion: c.Version,
		Environment:    c.Environment,
		OTLPEndpoint:   c.OTELEndpoint,
		Insecure:       c.OTELInsecure,
		SampleRate:     c.OTELSampleRate,
	}
}

// SlowQueryThreshold is the duration above which queries are logged.
// Zero disables slow query logging.
func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.SlowQueryMS) * time.Millisecond
}
