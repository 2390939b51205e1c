package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config holds all configuration for the pricing service
type Config struct {
	AppName  string         `mapstructure:"app_name"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Limits   LimitsConfig   `mapstructure:"rate_limit"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
	Log      LogConfig      `mapstructure:"log"`
}

// HTTPConfig holds the API server configuration
type HTTPConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// MetricsConfig holds the Prometheus side server configuration
type MetricsConfig struct {
	Address string `mapstructure:"address"`
}

// PostgresConfig holds PostgreSQL configuration. An empty DSN selects the in-memory rule store.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// RedisConfig holds Redis configuration. An empty address disables the snapshot cache.
type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	DB          int           `mapstructure:"db"`
	Password    string        `mapstructure:"password"`
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
}

// KafkaConfig holds event publishing configuration
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// LimitsConfig holds per-fleet-account API throttling. It needs Redis.
type LimitsConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SamplingRatio  float64 `mapstructure:"sampling_ratio"`
	Environment    string  `mapstructure:"environment"`
}

// PricingConfig holds engine tunables
type PricingConfig struct {
	TaxRate          float64       `mapstructure:"tax_rate"`
	DemandFreshness  time.Duration `mapstructure:"demand_freshness"`
	BatchConcurrency int           `mapstructure:"batch_concurrency"`
	MaxScenarios     int           `mapstructure:"max_scenarios"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load loads configuration from file and environment variables.
// An empty path reads the environment only.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "pricing-service")
	v.SetDefault("http.address", ":8080")
	v.SetDefault("http.read_timeout", "10s")
	v.SetDefault("http.write_timeout", "30s")
	v.SetDefault("http.shutdown_timeout", "15s")
	v.SetDefault("metrics.address", ":9090")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.snapshot_ttl", "30s")
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "pricing.events")
	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.requests_per_minute", 600)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("tracing.sampling_ratio", 1.0)
	v.SetDefault("tracing.environment", "development")
	v.SetDefault("pricing.tax_rate", 0.0)
	v.SetDefault("pricing.demand_freshness", "5m")
	v.SetDefault("pricing.batch_concurrency", 8)
	v.SetDefault("pricing.max_scenarios", 500)
	v.SetDefault("log.level", "info")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.AppName == "" {
		return fmt.Errorf("app_name is required")
	}
	if c.HTTP.Address == "" {
		return fmt.Errorf("http.address is required")
	}
	if c.Postgres.DSN != "" && c.Postgres.MaxConns <= 0 {
		return fmt.Errorf("postgres.max_conns must be greater than 0")
	}
	if c.Redis.Addr != "" && c.Redis.SnapshotTTL <= 0 {
		return fmt.Errorf("redis.snapshot_ttl must be positive")
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers is required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required when kafka is enabled")
		}
	}
	if c.Limits.Enabled {
		if c.Redis.Addr == "" {
			return fmt.Errorf("rate_limit requires redis.addr")
		}
		if c.Limits.RequestsPerMinute <= 0 {
			return fmt.Errorf("rate_limit.requests_per_minute must be greater than 0")
		}
	}
	if c.Pricing.TaxRate < 0 || c.Pricing.TaxRate > 1 {
		return fmt.Errorf("pricing.tax_rate must be within [0, 1]")
	}
	if c.Pricing.DemandFreshness < 0 {
		return fmt.Errorf("pricing.demand_freshness must not be negative")
	}
	if c.Pricing.MaxScenarios < 0 {
		return fmt.Errorf("pricing.max_scenarios must not be negative")
	}
	return nil
}
