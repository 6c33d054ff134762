package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader defines the interface for loading configuration
type Loader interface {
	Load() (*Config, error)
	Validate(*Config) error
}

// ViperLoader implements Loader using Viper for configuration management
type ViperLoader struct {
	configFile string
	envPrefix  string
	flags      *pflag.FlagSet
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"http-port":         "http.port",
	"management-port":   "management.port",
	"database-type":     "database.type",
	"database-url":      "database.url",
	"auto-migrate":      "database.auto_migrate",
	"log-level":         "observability.log_level",
	"log-format":        "observability.log_format",
	"file":              "seed.file",
	"ignore-duplicates": "seed.ignore_duplicates",
}

// NewViperLoader creates a new ViperLoader
// configFile: path to configuration file (optional, can be empty)
// envPrefix: prefix for environment variables (e.g., "GEODIR")
func NewViperLoader(configFile, envPrefix string) *ViperLoader {
	return &ViperLoader{
		configFile: configFile,
		envPrefix:  envPrefix,
	}
}

// WithFlags makes the known flags of fs override every other source when set.
func (l *ViperLoader) WithFlags(fs *pflag.FlagSet) *ViperLoader {
	l.flags = fs
	return l
}

// Load loads configuration with precedence: flags > ENV > file > defaults
func (l *ViperLoader) Load() (*Config, error) {
	v := viper.New()

	l.setDefaults(v, DefaultConfig())

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", l.configFile, err)
		}
	}

	v.SetEnvPrefix(l.envPrefix)
	l.bindEnvVars(v)

	if err := l.bindFlags(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := l.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// bindEnvVars explicitly binds environment variables for nested structs
func (l *ViperLoader) bindEnvVars(v *viper.Viper) {
	v.BindEnv("service.name", l.prefixedEnv("SERVICE_NAME"))
	v.BindEnv("service.environment", l.prefixedEnv("SERVICE_ENVIRONMENT"), l.prefixedEnv("ENVIRONMENT"))

	// HTTP
	v.BindEnv("http.port", l.prefixedEnv("HTTP_PORT"))
	v.BindEnv("http.read_timeout", l.prefixedEnv("HTTP_READ_TIMEOUT"))
	v.BindEnv("http.write_timeout", l.prefixedEnv("HTTP_WRITE_TIMEOUT"))
	v.BindEnv("http.idle_timeout", l.prefixedEnv("HTTP_IDLE_TIMEOUT"))
	v.BindEnv("http.shutdown_timeout", l.prefixedEnv("HTTP_SHUTDOWN_TIMEOUT"))
	v.BindEnv("http.max_request_size", l.prefixedEnv("HTTP_MAX_REQUEST_SIZE"))

	// Management
	v.BindEnv("management.enabled", l.prefixedEnv("MGMT_ENABLED"))
	v.BindEnv("management.port", l.prefixedEnv("MGMT_PORT"))
	v.BindEnv("management.read_timeout", l.prefixedEnv("MGMT_READ_TIMEOUT"))
	v.BindEnv("management.write_timeout", l.prefixedEnv("MGMT_WRITE_TIMEOUT"))

	// Database
	v.BindEnv("database.type", l.prefixedEnv("DB_TYPE"))
	v.BindEnv("database.url", l.prefixedEnv("DB_URL"), "DATABASE_URL")
	v.BindEnv("database.max_open_conns", l.prefixedEnv("DB_MAX_OPEN_CONNS"))
	v.BindEnv("database.max_idle_conns", l.prefixedEnv("DB_MAX_IDLE_CONNS"))
	v.BindEnv("database.conn_max_lifetime", l.prefixedEnv("DB_CONN_MAX_LIFETIME"))
	v.BindEnv("database.conn_max_idle_time", l.prefixedEnv("DB_CONN_MAX_IDLE_TIME"))
	v.BindEnv("database.query_timeout", l.prefixedEnv("DB_QUERY_TIMEOUT"))
	v.BindEnv("database.auto_migrate", l.prefixedEnv("DB_AUTO_MIGRATE"))

	// Event bus
	v.BindEnv("eventbus.type", l.prefixedEnv("EVENTBUS_TYPE"))
	v.BindEnv("eventbus.brokers", l.prefixedEnv("EVENTBUS_BROKERS"))
	v.BindEnv("eventbus.topic", l.prefixedEnv("EVENTBUS_TOPIC"))
	v.BindEnv("eventbus.operation_timeout", l.prefixedEnv("EVENTBUS_OPERATION_TIMEOUT"))
	v.BindEnv("eventbus.breaker_threshold", l.prefixedEnv("EVENTBUS_BREAKER_THRESHOLD"))
	v.BindEnv("eventbus.breaker_cooldown", l.prefixedEnv("EVENTBUS_BREAKER_COOLDOWN"))

	// Rate limiting
	v.BindEnv("ratelimit.enabled", l.prefixedEnv("RATELIMIT_ENABLED"))
	v.BindEnv("ratelimit.backend", l.prefixedEnv("RATELIMIT_BACKEND"))
	v.BindEnv("ratelimit.requests_per_second", l.prefixedEnv("RATELIMIT_REQUESTS_PER_SECOND"))
	v.BindEnv("ratelimit.burst", l.prefixedEnv("RATELIMIT_BURST"))
	v.BindEnv("ratelimit.redis_url", l.prefixedEnv("RATELIMIT_REDIS_URL"))
	v.BindEnv("ratelimit.redis_prefix", l.prefixedEnv("RATELIMIT_REDIS_PREFIX"))
	v.BindEnv("ratelimit.redis_timeout", l.prefixedEnv("RATELIMIT_REDIS_TIMEOUT"))

	// Observability
	v.BindEnv("observability.log_level", l.prefixedEnv("LOG_LEVEL"))
	v.BindEnv("observability.log_format", l.prefixedEnv("LOG_FORMAT"))
	v.BindEnv("observability.metrics_enabled", l.prefixedEnv("METRICS_ENABLED"))
	v.BindEnv("observability.tracing_enabled", l.prefixedEnv("TRACING_ENABLED"))
	v.BindEnv("observability.tracing_sample_rate", l.prefixedEnv("TRACING_SAMPLE_RATE"))
	v.BindEnv("observability.tracing_endpoint", l.prefixedEnv("TRACING_ENDPOINT"))

	// Seed
	v.BindEnv("seed.file", l.prefixedEnv("SEED_FILE"))
	v.BindEnv("seed.ignore_duplicates", l.prefixedEnv("SEED_IGNORE_DUPLICATES"))
}

func (l *ViperLoader) bindFlags(v *viper.Viper) error {
	if l.flags == nil {
		return nil
	}
	for name, key := range flagKeys {
		flag := l.flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

func (l *ViperLoader) prefixedEnv(suffix string) string {
	prefix := strings.TrimSpace(l.envPrefix)
	if prefix == "" {
		prefix = "GEODIR"
	}
	return fmt.Sprintf("%s_%s", strings.ToUpper(prefix), suffix)
}

// setDefaults sets default values in Viper from the default config
func (l *ViperLoader) setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("service.name", cfg.Service.Name)
	v.SetDefault("service.environment", cfg.Service.Environment)

	// HTTP defaults
	v.SetDefault("http.port", cfg.HTTP.Port)
	v.SetDefault("http.read_timeout", cfg.HTTP.ReadTimeout)
	v.SetDefault("http.write_timeout", cfg.HTTP.WriteTimeout)
	v.SetDefault("http.idle_timeout", cfg.HTTP.IdleTimeout)
	v.SetDefault("http.shutdown_timeout", cfg.HTTP.ShutdownTimeout)
	v.SetDefault("http.max_request_size", cfg.HTTP.MaxRequestSize)

	// Management defaults
	v.SetDefault("management.enabled", cfg.Management.Enabled)
	v.SetDefault("management.port", cfg.Management.Port)
	v.SetDefault("management.read_timeout", cfg.Management.ReadTimeout)
	v.SetDefault("management.write_timeout", cfg.Management.WriteTimeout)

	// Database defaults
	v.SetDefault("database.type", cfg.Database.Type)
	v.SetDefault("database.url", cfg.Database.URL)
	v.SetDefault("database.max_open_conns", cfg.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", cfg.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", cfg.Database.ConnMaxLifetime)
	v.SetDefault("database.conn_max_idle_time", cfg.Database.ConnMaxIdleTime)
	v.SetDefault("database.query_timeout", cfg.Database.QueryTimeout)
	v.SetDefault("database.auto_migrate", cfg.Database.AutoMigrate)

	// Event bus defaults
	v.SetDefault("eventbus.type", cfg.EventBus.Type)
	v.SetDefault("eventbus.brokers", cfg.EventBus.Brokers)
	v.SetDefault("eventbus.topic", cfg.EventBus.Topic)
	v.SetDefault("eventbus.operation_timeout", cfg.EventBus.OperationTimeout)
	v.SetDefault("eventbus.breaker_threshold", cfg.EventBus.BreakerThreshold)
	v.SetDefault("eventbus.breaker_cooldown", cfg.EventBus.BreakerCooldown)

	// Rate limit defaults
	v.SetDefault("ratelimit.enabled", cfg.RateLimit.Enabled)
	v.SetDefault("ratelimit.backend", cfg.RateLimit.Backend)
	v.SetDefault("ratelimit.requests_per_second", cfg.RateLimit.RequestsPerSecond)
	v.SetDefault("ratelimit.burst", cfg.RateLimit.Burst)
	v.SetDefault("ratelimit.redis_url", cfg.RateLimit.RedisURL)
	v.SetDefault("ratelimit.redis_prefix", cfg.RateLimit.RedisPrefix)
	v.SetDefault("ratelimit.redis_timeout", cfg.RateLimit.RedisTimeout)

	// Observability defaults
	v.SetDefault("observability.log_level", cfg.Observability.LogLevel)
	v.SetDefault("observability.log_format", cfg.Observability.LogFormat)
	v.SetDefault("observability.metrics_enabled", cfg.Observability.MetricsEnabled)
	v.SetDefault("observability.tracing_enabled", cfg.Observability.TracingEnabled)
	v.SetDefault("observability.tracing_sample_rate", cfg.Observability.TracingSampleRate)
	v.SetDefault("observability.tracing_endpoint", cfg.Observability.TracingEndpoint)

	// Seed defaults
	v.SetDefault("seed.file", cfg.Seed.File)
	v.SetDefault("seed.ignore_duplicates", cfg.Seed.IgnoreDuplicates)
}

// Validate validates the configuration and returns detailed errors
func (l *ViperLoader) Validate(cfg *Config) error {
	var errs []error

	cfg.Database.Type = strings.ToLower(strings.TrimSpace(cfg.Database.Type))
	cfg.EventBus.Type = strings.ToLower(strings.TrimSpace(cfg.EventBus.Type))
	cfg.EventBus.Brokers = normalizeStringSlice(cfg.EventBus.Brokers)

	if strings.TrimSpace(cfg.Service.Name) == "" {
		errs = append(errs, errors.New("service.name is required"))
	}

	if cfg.HTTP.Port < 1 || cfg.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid http.port: %d (must be between 1 and 65535)", cfg.HTTP.Port))
	}
	if cfg.HTTP.ReadTimeout <= 0 {
		errs = append(errs, errors.New("http.read_timeout must be positive"))
	}
	if cfg.HTTP.WriteTimeout <= 0 {
		errs = append(errs, errors.New("http.write_timeout must be positive"))
	}
	if cfg.HTTP.MaxRequestSize <= 0 {
		errs = append(errs, errors.New("http.max_request_size must be positive"))
	}

	if cfg.Management.Enabled {
		if cfg.Management.Port < 1 || cfg.Management.Port > 65535 {
			errs = append(errs, fmt.Errorf("invalid management.port: %d (must be between 1 and 65535)", cfg.Management.Port))
		}
		if cfg.Management.Port == cfg.HTTP.Port {
			errs = append(errs, fmt.Errorf("management.port must differ from http.port (both %d)", cfg.HTTP.Port))
		}
	}

	validDatabaseTypes := []string{DatabaseTypePostgres, DatabaseTypeMySQL}
	if !contains(validDatabaseTypes, cfg.Database.Type) {
		errs = append(errs, fmt.Errorf("invalid database.type: %s (must be one of: %v)", cfg.Database.Type, validDatabaseTypes))
	}
	if cfg.Database.MaxOpenConns < 0 {
		errs = append(errs, errors.New("database.max_open_conns cannot be negative"))
	}
	if cfg.Database.MaxIdleConns < 0 {
		errs = append(errs, errors.New("database.max_idle_conns cannot be negative"))
	}
	if cfg.Database.MaxOpenConns > 0 && cfg.Database.MaxIdleConns > cfg.Database.MaxOpenConns {
		errs = append(errs, errors.New("database.max_idle_conns cannot exceed database.max_open_conns"))
	}
	if cfg.Database.QueryTimeout < 0 {
		errs = append(errs, errors.New("database.query_timeout cannot be negative"))
	}

	switch cfg.EventBus.Type {
	case "", EventBusTypeNone:
		cfg.EventBus.Type = EventBusTypeNone
	case EventBusTypeKafka:
		if len(cfg.EventBus.Brokers) == 0 {
			errs = append(errs, errors.New("eventbus.brokers is required for Kafka"))
		}
		if strings.TrimSpace(cfg.EventBus.Topic) == "" {
			errs = append(errs, errors.New("eventbus.topic is required for Kafka"))
		}
		if cfg.EventBus.BreakerThreshold < 0 {
			errs = append(errs, errors.New("eventbus.breaker_threshold cannot be negative"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid eventbus.type: %s (must be one of: [none kafka])", cfg.EventBus.Type))
	}

	if cfg.RateLimit.Enabled {
		cfg.RateLimit.Backend = strings.ToLower(strings.TrimSpace(cfg.RateLimit.Backend))
		switch cfg.RateLimit.Backend {
		case "", RateLimitBackendMemory:
			cfg.RateLimit.Backend = RateLimitBackendMemory
		case RateLimitBackendRedis:
			if strings.TrimSpace(cfg.RateLimit.RedisURL) == "" {
				errs = append(errs, errors.New("ratelimit.redis_url is required for the redis backend"))
			}
		default:
			errs = append(errs, fmt.Errorf("invalid ratelimit.backend: %s (must be one of: [memory redis])", cfg.RateLimit.Backend))
		}
		if cfg.RateLimit.RequestsPerSecond <= 0 {
			errs = append(errs, errors.New("ratelimit.requests_per_second must be positive"))
		}
		if cfg.RateLimit.Burst < 0 {
			errs = append(errs, errors.New("ratelimit.burst cannot be negative"))
		}
	}

	validLogLevels := []string{"debug", "info", "warn", "warning", "error"}
	if !contains(validLogLevels, strings.ToLower(cfg.Observability.LogLevel)) {
		errs = append(errs, fmt.Errorf("invalid observability.log_level: %s (must be one of: %v)", cfg.Observability.LogLevel, validLogLevels))
	}
	validLogFormats := []string{"json", "text", "console"}
	if !contains(validLogFormats, strings.ToLower(cfg.Observability.LogFormat)) {
		errs = append(errs, fmt.Errorf("invalid observability.log_format: %s (must be one of: %v)", cfg.Observability.LogFormat, validLogFormats))
	}
	if cfg.Observability.TracingSampleRate < 0 || cfg.Observability.TracingSampleRate > 1 {
		errs = append(errs, fmt.Errorf("invalid observability.tracing_sample_rate: %v (must be between 0 and 1)", cfg.Observability.TracingSampleRate))
	}
	if cfg.Observability.TracingEnabled && strings.TrimSpace(cfg.Observability.TracingEndpoint) == "" {
		errs = append(errs, errors.New("observability.tracing_endpoint is required when tracing is enabled"))
	}

	return errors.Join(errs...)
}

// RequireDatabaseURL reports whether a database URL has been configured.
// Commands that touch the store call it after Load.
func (c *Config) RequireDatabaseURL() error {
	raw := strings.TrimSpace(c.Database.URL)
	if raw == "" {
		return errors.New("database.url is required")
	}
	if c.Database.Type == DatabaseTypePostgres && strings.Contains(raw, "://") {
		if _, err := url.Parse(raw); err != nil {
			return fmt.Errorf("invalid database.url: %w", err)
		}
	}
	return nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func normalizeStringSlice(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
