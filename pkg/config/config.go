// Package config loads the geodir service configuration from defaults, an
// optional file, environment variables and command-line flags.
package config

import "time"

// Database type constants
const (
	// DatabaseTypePostgres represents PostgreSQL database
	DatabaseTypePostgres = "postgres"
	// DatabaseTypeMySQL represents MySQL database
	DatabaseTypeMySQL = "mysql"
)

// Event bus type constants
const (
	// EventBusTypeNone disables change event publishing
	EventBusTypeNone = "none"
	// EventBusTypeKafka represents Apache Kafka event bus
	EventBusTypeKafka = "kafka"
)

// Config is the root configuration structure for the directory service
type Config struct {
	Service       ServiceConfig
	HTTP          HTTPConfig
	Management    ManagementConfig
	Database      DatabaseConfig
	EventBus      EventBusConfig  `mapstructure:"eventbus"`
	RateLimit     RateLimitConfig `mapstructure:"ratelimit"`
	Observability ObservabilityConfig
	Seed          SeedConfig
}

// ServiceConfig configures service identity metadata.
type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// HTTPConfig configures the public API server
type HTTPConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxRequestSize  int64         `mapstructure:"max_request_size"`
}

// ManagementConfig configures the management server (health, metrics, version).
type ManagementConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig configures database connections
type DatabaseConfig struct {
	Type            string        `mapstructure:"type"` // postgres, mysql
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
	// AutoMigrate applies pending schema migrations when the server starts.
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// EventBusConfig configures change event publishing
type EventBusConfig struct {
	Type             string        `mapstructure:"type"` // none, kafka
	Brokers          []string      `mapstructure:"brokers"`
	Topic            string        `mapstructure:"topic"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
	// BreakerThreshold consecutive publish failures open the circuit.
	BreakerThreshold int           `mapstructure:"breaker_threshold"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown"`
}

// Rate limit backend constants
const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
)

// RateLimitConfig configures per-client rate limiting on the public API.
// The memory backend limits each instance on its own; the redis backend
// shares one fixed-window counter per client across instances.
type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Backend           string        `mapstructure:"backend"` // memory, redis
	RequestsPerSecond int           `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	RedisURL          string        `mapstructure:"redis_url"`
	RedisPrefix       string        `mapstructure:"redis_prefix"`
	RedisTimeout      time.Duration `mapstructure:"redis_timeout"`
}

// ObservabilityConfig configures logging, metrics, and tracing
type ObservabilityConfig struct {
	LogLevel          string  `mapstructure:"log_level"`
	LogFormat         string  `mapstructure:"log_format"` // json, text
	MetricsEnabled    bool    `mapstructure:"metrics_enabled"`
	TracingEnabled    bool    `mapstructure:"tracing_enabled"`
	TracingSampleRate float64 `mapstructure:"tracing_sample_rate"`
	TracingEndpoint   string  `mapstructure:"tracing_endpoint"`
}

// SeedConfig configures the sample-data loader.
type SeedConfig struct {
	// File is a YAML fixture; empty means the built-in fixture.
	File             string `mapstructure:"file"`
	IgnoreDuplicates bool   `mapstructure:"ignore_duplicates"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:        "geodir",
			Environment: "production",
		},
		HTTP: HTTPConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxRequestSize:  1 << 20,
		},
		Management: ManagementConfig{
			Enabled:      true,
			Port:         9090,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Type:            DatabaseTypePostgres,
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			QueryTimeout:    10 * time.Second,
		},
		EventBus: EventBusConfig{
			Type:             EventBusTypeNone,
			Topic:            "geodir.changes",
			OperationTimeout: 5 * time.Second,
			BreakerThreshold: 5,
			BreakerCooldown:  30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Backend:           RateLimitBackendMemory,
			RequestsPerSecond: 50,
			Burst:             100,
			RedisPrefix:       "geodir:ratelimit",
			RedisTimeout:      time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel:          "info",
			LogFormat:         "json",
			MetricsEnabled:    true,
			TracingSampleRate: 0.1,
		},
	}
}
