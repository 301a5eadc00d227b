package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/phamdat721101/antdle-market/internal/blob/s3"
	"github.com/phamdat721101/antdle-market/internal/cache/redis"
	"github.com/phamdat721101/antdle-market/internal/chain"
	"github.com/phamdat721101/antdle-market/internal/config"
	"github.com/phamdat721101/antdle-market/internal/domain"
	"github.com/phamdat721101/antdle-market/internal/notify"
	"github.com/phamdat721101/antdle-market/internal/service"
	"github.com/phamdat721101/antdle-market/internal/store/postgres"
	"github.com/phamdat721101/antdle-market/internal/wallet"
)

// Dependencies bundles everything the application modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	MarketStore      domain.MarketStore
	PositionStore    domain.PositionStore
	TransactionStore domain.TransactionStore
	PriceStore       domain.PriceStore
	BalanceStore     domain.BalanceStore
	AuditStore       domain.AuditStore

	// Caches
	PriceCache  domain.PriceCache
	MarketCache domain.MarketCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// Simulated chain
	Simulator *chain.Simulator

	// Services
	Markets *service.MarketService
	Trades  *service.TradeService
	Claims  *service.ClaimService
	Wallets *service.WalletService
	Prices  *service.PriceService
	History *service.HistoryService

	// Blob storage (nil when archiving is disabled)
	Archiver domain.Archiver

	// Notifications
	Notifier *notify.Notifier

	// Health pingers
	PostgresPing func(ctx context.Context) error
	RedisPing    func(ctx context.Context) error
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them with a cleanup function for shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Supabase.DSN,
		Host:     cfg.Supabase.Host,
		Port:     cfg.Supabase.Port,
		Database: cfg.Supabase.Database,
		User:     cfg.Supabase.User,
		Password: cfg.Supabase.Password,
		SSLMode:  cfg.Supabase.SSLMode,
		MaxConns: cfg.Supabase.PoolMaxConns,
		MinConns: cfg.Supabase.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Supabase.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.MarketStore = postgres.NewMarketStore(pool)
	deps.PositionStore = postgres.NewPositionStore(pool)
	deps.TransactionStore = postgres.NewTransactionStore(pool)
	deps.PriceStore = postgres.NewPriceStore(pool)
	deps.BalanceStore = postgres.NewBalanceStore(pool)
	deps.AuditStore = postgres.NewAuditStore(pool)
	deps.PostgresPing = pool.Ping

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.PriceCache = redis.NewPriceCache(redisClient)
	deps.MarketCache = redis.NewMarketCache(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)
	deps.RedisPing = redisClient.Ping

	// --- Operator wallet ---
	// The operator address is the counterparty on every simulated
	// transaction. Without a configured key a throwaway one is generated;
	// balances and history stay consistent within the process lifetime.
	operator, err := operatorAddress(cfg)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: operator key: %w", err)
	}

	// --- Chain simulator ---
	deps.Simulator = chain.NewSimulator(deps.TransactionStore, deps.SignalBus, logger, chain.Config{
		Operator:        operator,
		ChainID:         cfg.Chain.ChainID,
		MinConfirmDelay: cfg.Chain.MinConfirmDelay.Duration,
		MaxConfirmDelay: cfg.Chain.MaxConfirmDelay.Duration,
		FailureRate:     cfg.Chain.FailureRate,
	})
	closers = append(closers, deps.Simulator.Wait)

	// --- Services ---
	deps.Markets = service.NewMarketService(
		deps.MarketStore, deps.PriceStore, deps.MarketCache,
		deps.LockManager, deps.SignalBus, deps.AuditStore, logger,
	)
	deps.Trades = service.NewTradeService(
		deps.MarketStore, deps.PositionStore, deps.BalanceStore,
		deps.Simulator, deps.MarketCache, deps.SignalBus,
		deps.AuditStore, logger, cfg.Swap.Token,
	)
	deps.Claims = service.NewClaimService(
		deps.PositionStore, deps.MarketStore, deps.BalanceStore,
		deps.Simulator, deps.SignalBus, deps.AuditStore, logger, cfg.Swap.Token,
	)
	deps.Wallets = service.NewWalletService(
		deps.BalanceStore, deps.Simulator, deps.AuditStore, logger,
		service.SwapConfig{
			Token:           cfg.Swap.Token,
			QuoteToken:      cfg.Swap.QuoteToken,
			Rate:            cfg.Swap.Rate,
			StartingBalance: cfg.Swap.StartingBalance,
		},
	)
	deps.Prices = service.NewPriceService(deps.PriceStore, deps.PriceCache, deps.SignalBus, logger)
	deps.History = service.NewHistoryService(deps.TransactionStore)

	// --- S3 blob storage (only when archiving is on) ---
	if cfg.Worker.ArchiveEnabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewArchiver(
			s3blob.NewWriter(s3Client),
			deps.TransactionStore,
			deps.AuditStore,
		)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

// operatorAddress resolves the operator wallet address from the configured
// private key, falling back to a generated throwaway key.
func operatorAddress(cfg *config.Config) (string, error) {
	if cfg.Operator.PrivateKey == "" && cfg.Operator.EncryptedKeyPath == "" {
		_, addr, err := wallet.Generate()
		return addr, err
	}

	priv, err := wallet.LoadKey(wallet.KeyConfig{
		RawPrivateKey:    cfg.Operator.PrivateKey,
		EncryptedKeyPath: cfg.Operator.EncryptedKeyPath,
		KeyPassword:      cfg.Operator.KeyPassword,
	})
	if err != nil {
		return "", err
	}
	return wallet.DeriveAddress(priv)
}
