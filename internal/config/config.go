// Package config defines the top-level configuration for the antdle market
// backend and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ANTDLE_* environment variables.
type Config struct {
	Operator Operator       `toml:"operator"`
	Supabase SupabaseConfig `toml:"supabase"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Chain    ChainConfig    `toml:"chain"`
	Feed     FeedConfig     `toml:"feed"`
	Swap     SwapConfig     `toml:"swap"`
	Worker   WorkerConfig   `toml:"worker"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// Operator holds the house wallet used as the counterparty address on
// simulated transactions.
type Operator struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// SupabaseConfig holds PostgreSQL / Supabase connection parameters.
type SupabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for the archiver.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ChainConfig tunes the simulated transaction pipeline.
type ChainConfig struct {
	// ChainID is reported in transaction events for UI display.
	ChainID int `toml:"chain_id"`
	// MinConfirmDelay and MaxConfirmDelay bound the simulated time between
	// submission and resolution.
	MinConfirmDelay duration `toml:"min_confirm_delay"`
	MaxConfirmDelay duration `toml:"max_confirm_delay"`
	// FailureRate is the probability in [0,1] that a submission resolves
	// to failed instead of confirmed.
	FailureRate float64 `toml:"failure_rate"`
}

// FeedConfig configures the price feed poller.
type FeedConfig struct {
	Enabled bool `toml:"enabled"`
	// Source selects the price source: "simulated" (random walk) or "http".
	Source       string   `toml:"source"`
	HTTPEndpoint string   `toml:"http_endpoint"`
	Assets       []string `toml:"assets"`
	Interval     duration `toml:"interval"`
	// Volatility is the per-tick fractional step of the simulated source.
	Volatility float64 `toml:"volatility"`
	// SettleExpired enables automatic settlement of expired markets at the
	// latest feed price on each poll cycle.
	SettleExpired bool `toml:"settle_expired"`
}

// SwapConfig configures the demo token swap.
type SwapConfig struct {
	// Token is the staking token symbol; QuoteToken is its counterpart.
	Token      string `toml:"token"`
	QuoteToken string `toml:"quote_token"`
	// Rate is how many quote tokens one staking token buys.
	Rate float64 `toml:"rate"`
	// StartingBalance is credited to a wallet on first connect.
	StartingBalance float64 `toml:"starting_balance"`
}

// WorkerConfig configures the background maintenance workers.
type WorkerConfig struct {
	Enabled bool `toml:"enabled"`
	// SweepInterval is how often the pending-transaction sweeper runs.
	SweepInterval duration `toml:"sweep_interval"`
	// PendingTimeout is the age past which a pending transaction is
	// force-resolved by the sweeper.
	PendingTimeout duration `toml:"pending_timeout"`
	// ArchiveEnabled turns on periodic archival to object storage.
	ArchiveEnabled  bool     `toml:"archive_enabled"`
	ArchiveInterval duration `toml:"archive_interval"`
	RetentionDays   int      `toml:"retention_days"`
	SweepBatchSize  int      `toml:"sweep_batch_size"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	// RateLimit is requests per client per minute; 0 disables limiting.
	RateLimit int `toml:"rate_limit"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Supabase: SupabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "antdle-archive",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Chain: ChainConfig{
			ChainID:         137,
			MinConfirmDelay: duration{500 * time.Millisecond},
			MaxConfirmDelay: duration{3 * time.Second},
			FailureRate:     0.05,
		},
		Feed: FeedConfig{
			Enabled:       true,
			Source:        "simulated",
			Assets:        []string{"BTC", "ETH", "ANT"},
			Interval:      duration{30 * time.Second},
			Volatility:    0.01,
			SettleExpired: true,
		},
		Swap: SwapConfig{
			Token:           "ANT",
			QuoteToken:      "USDX",
			Rate:            0.85,
			StartingBalance: 1000,
		},
		Worker: WorkerConfig{
			Enabled:         true,
			SweepInterval:   duration{time.Minute},
			PendingTimeout:  duration{5 * time.Minute},
			ArchiveEnabled:  false,
			ArchiveInterval: duration{24 * time.Hour},
			RetentionDays:   90,
			SweepBatchSize:  50,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   300,
		},
		Notify: NotifyConfig{
			Events: []string{"market_settled", "tx_failed", "claim_paid"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server": true,
	"feed":   true,
	"worker": true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validFeedSources enumerates the accepted values for FeedConfig.Source.
var validFeedSources = map[string]bool{
	"simulated": true,
	"http":      true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, feed, worker, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Supabase
	if strings.TrimSpace(c.Supabase.DSN) == "" {
		if c.Supabase.Host == "" {
			errs = append(errs, "supabase: host must not be empty (or set supabase.dsn)")
		}
		if c.Supabase.Port <= 0 || c.Supabase.Port > 65535 {
			errs = append(errs, fmt.Sprintf("supabase: port must be 1-65535, got %d", c.Supabase.Port))
		}
		if c.Supabase.Database == "" {
			errs = append(errs, "supabase: database must not be empty")
		}
	}
	if c.Supabase.PoolMaxConns < 1 {
		errs = append(errs, "supabase: pool_max_conns must be >= 1")
	}
	if c.Supabase.PoolMinConns < 0 {
		errs = append(errs, "supabase: pool_min_conns must be >= 0")
	}
	if c.Supabase.PoolMinConns > c.Supabase.PoolMaxConns {
		errs = append(errs, "supabase: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 is only required when archival is on.
	if c.Worker.ArchiveEnabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when worker.archive_enabled is set")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when worker.archive_enabled is set")
		}
		if c.Worker.RetentionDays < 1 {
			errs = append(errs, "worker: retention_days must be >= 1 when archival is enabled")
		}
	}

	// Chain
	if c.Chain.FailureRate < 0 || c.Chain.FailureRate > 1 {
		errs = append(errs, fmt.Sprintf("chain: failure_rate must be in [0,1], got %v", c.Chain.FailureRate))
	}
	if c.Chain.MinConfirmDelay.Duration < 0 {
		errs = append(errs, "chain: min_confirm_delay must not be negative")
	}
	if c.Chain.MaxConfirmDelay.Duration < c.Chain.MinConfirmDelay.Duration {
		errs = append(errs, "chain: max_confirm_delay must not be less than min_confirm_delay")
	}

	// Feed
	if c.Feed.Enabled {
		if !validFeedSources[strings.ToLower(c.Feed.Source)] {
			errs = append(errs, fmt.Sprintf("feed: unknown source %q (valid: simulated, http)", c.Feed.Source))
		}
		if strings.ToLower(c.Feed.Source) == "http" && c.Feed.HTTPEndpoint == "" {
			errs = append(errs, "feed: http_endpoint is required when source is http")
		}
		if len(c.Feed.Assets) == 0 {
			errs = append(errs, "feed: at least one asset is required when the feed is enabled")
		}
		if c.Feed.Interval.Duration <= 0 {
			errs = append(errs, "feed: interval must be positive")
		}
		if c.Feed.Volatility <= 0 || c.Feed.Volatility >= 1 {
			errs = append(errs, fmt.Sprintf("feed: volatility must be in (0,1), got %v", c.Feed.Volatility))
		}
	}

	// Swap
	if c.Swap.Token == "" || c.Swap.QuoteToken == "" {
		errs = append(errs, "swap: token and quote_token must not be empty")
	}
	if c.Swap.Rate <= 0 {
		errs = append(errs, "swap: rate must be > 0")
	}
	if c.Swap.StartingBalance < 0 {
		errs = append(errs, "swap: starting_balance must not be negative")
	}

	// Worker
	if c.Worker.Enabled {
		if c.Worker.SweepInterval.Duration <= 0 {
			errs = append(errs, "worker: sweep_interval must be positive")
		}
		if c.Worker.PendingTimeout.Duration <= 0 {
			errs = append(errs, "worker: pending_timeout must be positive")
		}
		if c.Worker.SweepBatchSize < 1 {
			errs = append(errs, "worker: sweep_batch_size must be >= 1")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must not be negative")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
