package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ANTDLE_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ANTDLE_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Operator ──
	setStr(&cfg.Operator.PrivateKey, "ANTDLE_OPERATOR_PRIVATE_KEY")
	setStr(&cfg.Operator.EncryptedKeyPath, "ANTDLE_OPERATOR_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Operator.KeyPassword, "ANTDLE_OPERATOR_KEY_PASSWORD")

	// ── Supabase ──
	setStr(&cfg.Supabase.DSN, "ANTDLE_SUPABASE_DSN")
	setStr(&cfg.Supabase.DSN, "ANTDLE_SUPABASE_URL") // compatibility alias
	setStr(&cfg.Supabase.Host, "ANTDLE_SUPABASE_HOST")
	setInt(&cfg.Supabase.Port, "ANTDLE_SUPABASE_PORT")
	setStr(&cfg.Supabase.Database, "ANTDLE_SUPABASE_DATABASE")
	setStr(&cfg.Supabase.User, "ANTDLE_SUPABASE_USER")
	setStr(&cfg.Supabase.Password, "ANTDLE_SUPABASE_PASSWORD")
	setStr(&cfg.Supabase.SSLMode, "ANTDLE_SUPABASE_SSL_MODE")
	setInt(&cfg.Supabase.PoolMaxConns, "ANTDLE_SUPABASE_POOL_MAX_CONNS")
	setInt(&cfg.Supabase.PoolMinConns, "ANTDLE_SUPABASE_POOL_MIN_CONNS")
	setBool(&cfg.Supabase.RunMigrations, "ANTDLE_SUPABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ANTDLE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ANTDLE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ANTDLE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ANTDLE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ANTDLE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ANTDLE_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "ANTDLE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ANTDLE_S3_REGION")
	setStr(&cfg.S3.Bucket, "ANTDLE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ANTDLE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ANTDLE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ANTDLE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ANTDLE_S3_FORCE_PATH_STYLE")

	// ── Chain ──
	setInt(&cfg.Chain.ChainID, "ANTDLE_CHAIN_ID")
	setDuration(&cfg.Chain.MinConfirmDelay, "ANTDLE_CHAIN_MIN_CONFIRM_DELAY")
	setDuration(&cfg.Chain.MaxConfirmDelay, "ANTDLE_CHAIN_MAX_CONFIRM_DELAY")
	setFloat64(&cfg.Chain.FailureRate, "ANTDLE_CHAIN_FAILURE_RATE")

	// ── Feed ──
	setBool(&cfg.Feed.Enabled, "ANTDLE_FEED_ENABLED")
	setStr(&cfg.Feed.Source, "ANTDLE_FEED_SOURCE")
	setStr(&cfg.Feed.HTTPEndpoint, "ANTDLE_FEED_HTTP_ENDPOINT")
	setStringSlice(&cfg.Feed.Assets, "ANTDLE_FEED_ASSETS")
	setDuration(&cfg.Feed.Interval, "ANTDLE_FEED_INTERVAL")
	setFloat64(&cfg.Feed.Volatility, "ANTDLE_FEED_VOLATILITY")
	setBool(&cfg.Feed.SettleExpired, "ANTDLE_FEED_SETTLE_EXPIRED")

	// ── Swap ──
	setStr(&cfg.Swap.Token, "ANTDLE_SWAP_TOKEN")
	setStr(&cfg.Swap.QuoteToken, "ANTDLE_SWAP_QUOTE_TOKEN")
	setFloat64(&cfg.Swap.Rate, "ANTDLE_SWAP_RATE")
	setFloat64(&cfg.Swap.StartingBalance, "ANTDLE_SWAP_STARTING_BALANCE")

	// ── Worker ──
	setBool(&cfg.Worker.Enabled, "ANTDLE_WORKER_ENABLED")
	setDuration(&cfg.Worker.SweepInterval, "ANTDLE_WORKER_SWEEP_INTERVAL")
	setDuration(&cfg.Worker.PendingTimeout, "ANTDLE_WORKER_PENDING_TIMEOUT")
	setBool(&cfg.Worker.ArchiveEnabled, "ANTDLE_WORKER_ARCHIVE_ENABLED")
	setDuration(&cfg.Worker.ArchiveInterval, "ANTDLE_WORKER_ARCHIVE_INTERVAL")
	setInt(&cfg.Worker.RetentionDays, "ANTDLE_WORKER_RETENTION_DAYS")
	setInt(&cfg.Worker.SweepBatchSize, "ANTDLE_WORKER_SWEEP_BATCH_SIZE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ANTDLE_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ANTDLE_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ANTDLE_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "ANTDLE_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "ANTDLE_SERVER_RATE_LIMIT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ANTDLE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ANTDLE_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ANTDLE_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ANTDLE_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "ANTDLE_MODE")
	setStr(&cfg.LogLevel, "ANTDLE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
