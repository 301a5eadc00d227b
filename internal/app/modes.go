package app

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/phamdat721101/antdle-market/internal/feed"
	"github.com/phamdat721101/antdle-market/internal/notify"
	"github.com/phamdat721101/antdle-market/internal/server"
	"github.com/phamdat721101/antdle-market/internal/server/handler"
	"github.com/phamdat721101/antdle-market/internal/server/ws"
	"github.com/phamdat721101/antdle-market/internal/worker"
)

// shutdownGrace is how long in-flight HTTP requests get to finish.
const shutdownGrace = 10 * time.Second

// ServerMode runs the HTTP + WebSocket API only. Prices and settlement are
// expected to come from a separate feed process.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	a.startNotifier(ctx, g, deps)
	return g.Wait()
}

// FeedMode runs the price poller only.
func (a *App) FeedMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting feed mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startFeed(ctx, g, deps)
	return g.Wait()
}

// WorkerMode runs the background maintenance loops only.
func (a *App) WorkerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting worker mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startWorkers(ctx, g, deps)
	return g.Wait()
}

// FullMode runs everything in one process: API server, price feed, workers,
// and notifications.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps)
	}
	if a.cfg.Feed.Enabled {
		a.startFeed(ctx, g, deps)
	}
	if a.cfg.Worker.Enabled {
		a.startWorkers(ctx, g, deps)
	}
	a.startNotifier(ctx, g, deps)
	return g.Wait()
}

// startHTTPServer adds the API server and WebSocket hub goroutines to the
// errgroup. The server is shut down gracefully when the context is
// cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	hub := ws.NewHub(deps.SignalBus, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"postgres": pingerFunc(deps.PostgresPing),
			"redis":    pingerFunc(deps.RedisPing),
		}, a.logger),
		Markets:      handler.NewMarketHandler(deps.Markets, deps.Claims, a.logger),
		Trades:       handler.NewTradeHandler(deps.Trades, deps.Claims, a.logger),
		Wallet:       handler.NewWalletHandler(deps.Wallets, a.logger),
		Transactions: handler.NewTransactionHandler(deps.History, a.logger),
		Prices:       handler.NewPriceHandler(deps.Prices, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// startFeed adds the price poller goroutine to the errgroup.
func (a *App) startFeed(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	var source feed.PriceSource
	if strings.EqualFold(a.cfg.Feed.Source, "http") {
		source = feed.NewHTTPSource(a.cfg.Feed.HTTPEndpoint)
	} else {
		source = feed.NewSimulatedSource(a.cfg.Feed.Volatility, 0)
	}

	var settler feed.MarketSettler
	if a.cfg.Feed.SettleExpired {
		settler = deps.Markets
	}

	poller := feed.NewPoller(
		source, deps.Prices, settler,
		a.cfg.Feed.Assets, a.cfg.Feed.Interval.Duration, a.logger,
	)
	g.Go(func() error {
		return poller.Run(ctx)
	})
}

// startWorkers adds the transaction sweeper and, when archiving is wired,
// the archive runner to the errgroup.
func (a *App) startWorkers(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	sweeper := worker.NewSweeper(deps.TransactionStore, deps.Simulator, worker.SweeperConfig{
		Interval:       a.cfg.Worker.SweepInterval.Duration,
		PendingTimeout: a.cfg.Worker.PendingTimeout.Duration,
		BatchSize:      a.cfg.Worker.SweepBatchSize,
	}, a.logger)
	g.Go(func() error {
		return sweeper.Run(ctx)
	})

	if deps.Archiver != nil {
		runner := worker.NewArchiveRunner(deps.Archiver, worker.ArchiveConfig{
			Interval:      a.cfg.Worker.ArchiveInterval.Duration,
			RetentionDays: a.cfg.Worker.RetentionDays,
		}, a.logger)
		g.Go(func() error {
			return runner.Run(ctx)
		})
	}
}

// startNotifier adds the event watcher goroutine when at least one
// notification channel is configured.
func (a *App) startNotifier(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if a.cfg.Notify.TelegramToken == "" && a.cfg.Notify.DiscordWebhookURL == "" {
		return
	}

	watcher := notify.NewWatcher(deps.SignalBus, deps.Notifier, a.logger)
	g.Go(func() error {
		return watcher.Run(ctx)
	})
}

// pingerFunc adapts a plain ping function to the handler.Pinger interface.
type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }
