package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
mode = "server"
log_level = "debug"

[supabase]
host = "db.internal"
port = 6543

[chain]
failure_rate = 0.1
min_confirm_delay = "1s"
max_confirm_delay = "10s"

[swap]
token = "ANT"
starting_balance = 500
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "server", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "db.internal", cfg.Supabase.Host)
	assert.Equal(t, 6543, cfg.Supabase.Port)
	assert.Equal(t, 0.1, cfg.Chain.FailureRate)
	assert.Equal(t, time.Second, cfg.Chain.MinConfirmDelay.Duration)
	assert.Equal(t, 10*time.Second, cfg.Chain.MaxConfirmDelay.Duration)
	assert.Equal(t, 500.0, cfg.Swap.StartingBalance)

	// Untouched sections keep their defaults.
	assert.Equal(t, "postgres", cfg.Supabase.Database)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "USDX", cfg.Swap.QuoteToken)

	require.NoError(t, cfg.Validate())
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("mode = \"full\"\n"), 0o600))

	t.Setenv("ANTDLE_SUPABASE_PASSWORD", "s3cret")
	t.Setenv("ANTDLE_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("ANTDLE_CHAIN_FAILURE_RATE", "0.25")
	t.Setenv("ANTDLE_FEED_ASSETS", "BTC, ETH ,SOL")
	t.Setenv("ANTDLE_WORKER_SWEEP_INTERVAL", "90s")
	t.Setenv("ANTDLE_MODE", "worker")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Supabase.Password)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, 0.25, cfg.Chain.FailureRate)
	assert.Equal(t, []string{"BTC", "ETH", "SOL"}, cfg.Feed.Assets)
	assert.Equal(t, 90*time.Second, cfg.Worker.SweepInterval.Duration)
	assert.Equal(t, "worker", cfg.Mode)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad mode", func(c *Config) { c.Mode = "turbo" }, "unknown mode"},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "unknown log_level"},
		{"failure rate above one", func(c *Config) { c.Chain.FailureRate = 1.5 }, "failure_rate"},
		{"inverted confirm delays", func(c *Config) {
			c.Chain.MinConfirmDelay = duration{5 * time.Second}
			c.Chain.MaxConfirmDelay = duration{time.Second}
		}, "max_confirm_delay"},
		{"feed without assets", func(c *Config) { c.Feed.Assets = nil }, "at least one asset"},
		{"http feed without endpoint", func(c *Config) {
			c.Feed.Source = "http"
			c.Feed.HTTPEndpoint = ""
		}, "http_endpoint"},
		{"zero swap rate", func(c *Config) { c.Swap.Rate = 0 }, "rate must be > 0"},
		{"archive without bucket", func(c *Config) {
			c.Worker.ArchiveEnabled = true
			c.S3.Bucket = ""
		}, "bucket"},
		{"bad server port", func(c *Config) { c.Server.Port = 0 }, "port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Operator.PrivateKey = "0xdeadbeef"
	cfg.Supabase.Password = "hunter2"
	cfg.Redis.Password = "redispass"
	cfg.S3.SecretKey = "sk"
	cfg.Server.APIKey = "api-key"
	cfg.Notify.TelegramToken = "tg-token"

	red := RedactedConfig(&cfg)

	assert.Equal(t, "***", red.Operator.PrivateKey)
	assert.Equal(t, "***", red.Supabase.Password)
	assert.Equal(t, "***", red.Redis.Password)
	assert.Equal(t, "***", red.S3.SecretKey)
	assert.Equal(t, "***", red.Server.APIKey)
	assert.Equal(t, "***", red.Notify.TelegramToken)

	// Originals untouched.
	assert.Equal(t, "hunter2", cfg.Supabase.Password)

	// Empty secrets stay empty rather than becoming placeholders.
	assert.Empty(t, red.Operator.KeyPassword)

	// Mutating the copy's slices must not leak back.
	red.Feed.Assets[0] = "XXX"
	assert.NotEqual(t, "XXX", cfg.Feed.Assets[0])
}
