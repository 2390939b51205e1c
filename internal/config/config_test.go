package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "pricing-service", cfg.AppName)
	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, 5*time.Minute, cfg.Pricing.DemandFreshness)
	assert.Equal(t, 8, cfg.Pricing.BatchConcurrency)
	assert.Equal(t, 500, cfg.Pricing.MaxScenarios)
	assert.Equal(t, 30*time.Second, cfg.Redis.SnapshotTTL)
	assert.Empty(t, cfg.Postgres.DSN)
	assert.False(t, cfg.Kafka.Enabled)
	assert.False(t, cfg.Limits.Enabled)
	assert.Equal(t, 600, cfg.Limits.RequestsPerMinute)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app_name: pricing-test
pricing:
  tax_rate: 0.0825
  demand_freshness: 90s
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
  topic: pricing.audit
`), 0o600))

	t.Setenv("PRICING_BATCH_CONCURRENCY", "3")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "pricing-test", cfg.AppName)
	assert.InDelta(t, 0.0825, cfg.Pricing.TaxRate, 1e-9)
	assert.Equal(t, 90*time.Second, cfg.Pricing.DemandFreshness)
	assert.Equal(t, 3, cfg.Pricing.BatchConcurrency)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "pricing.audit", cfg.Kafka.Topic)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			AppName: "pricing-service",
			HTTP:    HTTPConfig{Address: ":8080"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing app name", mutate: func(c *Config) { c.AppName = "" }, wantErr: true},
		{name: "tax rate above one", mutate: func(c *Config) { c.Pricing.TaxRate = 1.5 }, wantErr: true},
		{name: "postgres without conns", mutate: func(c *Config) { c.Postgres.DSN = "postgres://x" }, wantErr: true},
		{name: "kafka without topic", mutate: func(c *Config) {
			c.Kafka = KafkaConfig{Enabled: true, Brokers: []string{"k:9092"}}
		}, wantErr: true},
		{name: "redis without ttl", mutate: func(c *Config) { c.Redis.Addr = "localhost:6379" }, wantErr: true},
		{name: "rate limit without redis", mutate: func(c *Config) {
			c.Limits = LimitsConfig{Enabled: true, RequestsPerMinute: 10}
		}, wantErr: true},
		{name: "rate limit with redis", mutate: func(c *Config) {
			c.Redis = RedisConfig{Addr: "localhost:6379", SnapshotTTL: time.Second}
			c.Limits = LimitsConfig{Enabled: true, RequestsPerMinute: 10}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
