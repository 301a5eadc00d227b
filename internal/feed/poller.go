package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/phamdat721101/antdle-market/internal/domain"
)

// settleBatchSize bounds how many expired markets one poll cycle settles.
const settleBatchSize = 20

// PriceRecorder persists a price observation. Implemented by
// service.PriceService.
type PriceRecorder interface {
	Record(ctx context.Context, p domain.PricePoint) error
}

// MarketSettler settles expired active markets at the latest feed price.
// Implemented by service.MarketService.
type MarketSettler interface {
	SettleExpired(ctx context.Context, limit int) (int, error)
}

// Poller ticks on a fixed interval, records one observation per configured
// asset, and optionally sweeps expired markets into settlement.
type Poller struct {
	source   PriceSource
	recorder PriceRecorder
	settler  MarketSettler
	assets   []string
	interval time.Duration
	logger   *slog.Logger
}

// NewPoller creates a Poller. settler may be nil to disable automatic
// settlement of expired markets.
func NewPoller(
	source PriceSource,
	recorder PriceRecorder,
	settler MarketSettler,
	assets []string,
	interval time.Duration,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		source:   source,
		recorder: recorder,
		settler:  settler,
		assets:   assets,
		interval: interval,
		logger:   logger.With(slog.String("component", "feed_poller")),
	}
}

// Run polls until the context is cancelled. The first cycle runs immediately
// so markets never wait a full interval for their first price.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("feed poller started",
		slog.Int("assets", len(p.assets)),
		slog.Duration("interval", p.interval),
	)
	defer p.logger.Info("feed poller stopped")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.cycle(ctx)
		}
	}
}

// cycle records one observation per asset, then settles expired markets.
// Per-asset failures are logged and skipped; the remaining assets still
// record.
func (p *Poller) cycle(ctx context.Context) {
	now := time.Now().UTC()
	for _, asset := range p.assets {
		price, err := p.source.Price(ctx, asset)
		if err != nil {
			p.logger.WarnContext(ctx, "price fetch failed",
				slog.String("asset_name", asset),
				slog.String("error", err.Error()),
			)
			continue
		}

		if err := p.recorder.Record(ctx, domain.PricePoint{
			AssetName: asset,
			Price:     price,
			Timestamp: now,
		}); err != nil {
			p.logger.WarnContext(ctx, "price record failed",
				slog.String("asset_name", asset),
				slog.String("error", err.Error()),
			)
		}
	}

	if p.settler == nil {
		return
	}
	settled, err := p.settler.SettleExpired(ctx, settleBatchSize)
	if err != nil {
		p.logger.WarnContext(ctx, "settle expired failed",
			slog.String("error", err.Error()),
		)
		return
	}
	if settled > 0 {
		p.logger.InfoContext(ctx, "settled expired markets",
			slog.Int("count", settled),
		)
	}
}
