// Package service contains the application services that tie stores, caches,
// the signal bus, and the transaction simulator together.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phamdat721101/antdle-market/internal/domain"
	"github.com/phamdat721101/antdle-market/internal/wallet"
)

// settleLockTTL bounds how long a settlement lock may be held before it
// expires on its own.
const settleLockTTL = 30 * time.Second

// MarketService handles market creation, lookup, and settlement.
type MarketService struct {
	markets domain.MarketStore
	prices  domain.PriceStore
	cache   domain.MarketCache
	locks   domain.LockManager
	bus     domain.SignalBus
	audit   domain.AuditStore
	logger  *slog.Logger
}

// NewMarketService creates a MarketService with all required dependencies.
func NewMarketService(
	markets domain.MarketStore,
	prices domain.PriceStore,
	cache domain.MarketCache,
	locks domain.LockManager,
	bus domain.SignalBus,
	audit domain.AuditStore,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		markets: markets,
		prices:  prices,
		cache:   cache,
		locks:   locks,
		bus:     bus,
		audit:   audit,
		logger:  logger,
	}
}

// CreateMarketParams carries the caller-supplied fields for a new market.
type CreateMarketParams struct {
	AssetName   string
	Description string
	StrikePrice float64
	ExpiryAt    time.Time
	Creator     string
}

// CreateMarket validates the parameters, persists a new active market with
// empty pools, and publishes a market_created event.
func (s *MarketService) CreateMarket(ctx context.Context, p CreateMarketParams) (domain.Market, error) {
	if p.AssetName == "" {
		return domain.Market{}, fmt.Errorf("market_service: asset name required: %w", domain.ErrInvalidState)
	}
	if p.StrikePrice <= 0 {
		return domain.Market{}, fmt.Errorf("market_service: strike price must be positive: %w", domain.ErrInvalidAmount)
	}
	now := time.Now().UTC()
	if !p.ExpiryAt.After(now) {
		return domain.Market{}, fmt.Errorf("market_service: expiry must be in the future: %w", domain.ErrInvalidState)
	}
	if p.Creator != "" && !wallet.ValidAddress(p.Creator) {
		return domain.Market{}, fmt.Errorf("market_service: invalid creator address: %w", domain.ErrInvalidState)
	}

	m := domain.Market{
		ID:          uuid.New().String(),
		AssetName:   p.AssetName,
		Description: p.Description,
		StrikePrice: p.StrikePrice,
		ExpiryAt:    p.ExpiryAt.UTC(),
		Status:      domain.MarketStatusActive,
		Creator:     p.Creator,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.markets.Create(ctx, m); err != nil {
		return domain.Market{}, fmt.Errorf("market_service: create: %w", err)
	}

	evt, _ := json.Marshal(map[string]any{
		"event":        "market_created",
		"market_id":    m.ID,
		"asset_name":   m.AssetName,
		"strike_price": m.StrikePrice,
		"expiry_at":    m.ExpiryAt.Format(time.RFC3339),
	})
	if err := s.bus.Publish(ctx, "markets", evt); err != nil {
		s.logger.WarnContext(ctx, "market_service: publish event failed",
			slog.String("market_id", m.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.audit.Log(ctx, "market_created", map[string]any{
		"market_id":  m.ID,
		"asset_name": m.AssetName,
		"creator":    m.Creator,
	}); err != nil {
		s.logger.WarnContext(ctx, "market_service: audit log failed",
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "market_service: market created",
		slog.String("market_id", m.ID),
		slog.String("asset_name", m.AssetName),
		slog.Float64("strike_price", m.StrikePrice),
	)

	return m, nil
}

// GetMarket retrieves a market by ID, checking the cache first and falling
// back to the persistent store on a cache miss.
func (s *MarketService) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	m, err := s.cache.Get(ctx, id)
	if err == nil {
		return m, nil
	}

	// Cache miss or error -- fall through to store.
	m, err = s.markets.GetByID(ctx, id)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: get by id %q: %w", id, err)
	}

	// Back-fill cache; log but do not fail on cache write errors.
	if cacheErr := s.cache.Set(ctx, m); cacheErr != nil {
		s.logger.WarnContext(ctx, "market_service: cache set failed",
			slog.String("market_id", id),
			slog.String("error", cacheErr.Error()),
		)
	}

	return m, nil
}

// ListMarkets returns markets filtered by status directly from the store.
func (s *MarketService) ListMarkets(ctx context.Context, status domain.MarketStatus, opts domain.ListOpts) ([]domain.Market, error) {
	markets, err := s.markets.List(ctx, status, opts)
	if err != nil {
		return nil, fmt.Errorf("market_service: list: %w", err)
	}
	return markets, nil
}

// SettleMarket transitions a market from active to settled at the given
// price. The transition is serialized through a per-market distributed lock
// and applied as a single conditional update, so it happens exactly once even
// under concurrent callers. A market whose expiry has not passed cannot be
// settled.
func (s *MarketService) SettleMarket(ctx context.Context, id string, settledPrice float64) (domain.Market, error) {
	unlock, err := s.locks.Acquire(ctx, "settle:"+id, settleLockTTL)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: settle %s: %w", id, err)
	}
	defer unlock()

	m, err := s.markets.GetByID(ctx, id)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: settle %s: %w", id, err)
	}
	if m.Status != domain.MarketStatusActive {
		return domain.Market{}, fmt.Errorf("market_service: settle %s: %w", id, domain.ErrAlreadySettled)
	}
	now := time.Now().UTC()
	if !m.Expired(now) {
		return domain.Market{}, fmt.Errorf("market_service: settle %s before expiry: %w", id, domain.ErrInvalidState)
	}

	if err := s.markets.Settle(ctx, id, settledPrice); err != nil {
		return domain.Market{}, fmt.Errorf("market_service: settle %s: %w", id, err)
	}

	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "market_service: cache invalidate failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
	}

	m.Status = domain.MarketStatusSettled
	m.SettledPrice = &settledPrice
	m.UpdatedAt = now

	evt, _ := json.Marshal(map[string]any{
		"event":         "market_settled",
		"market_id":     m.ID,
		"asset_name":    m.AssetName,
		"strike_price":  m.StrikePrice,
		"settled_price": settledPrice,
		"yes_pool":      m.YesPool,
		"no_pool":       m.NoPool,
	})
	if err := s.bus.Publish(ctx, "markets", evt); err != nil {
		s.logger.WarnContext(ctx, "market_service: publish event failed",
			slog.String("market_id", m.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.audit.Log(ctx, "market_settled", map[string]any{
		"market_id":     m.ID,
		"settled_price": settledPrice,
	}); err != nil {
		s.logger.WarnContext(ctx, "market_service: audit log failed",
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "market_service: market settled",
		slog.String("market_id", m.ID),
		slog.Float64("settled_price", settledPrice),
	)

	return m, nil
}

// SettleExpired finds active markets past their expiry and settles each at
// the latest recorded feed price for its asset. Markets without a price
// observation are skipped and retried on the next cycle. Returns the number
// of markets settled.
func (s *MarketService) SettleExpired(ctx context.Context, limit int) (int, error) {
	now := time.Now().UTC()
	expired, err := s.markets.ListExpiredActive(ctx, now, limit)
	if err != nil {
		return 0, fmt.Errorf("market_service: list expired: %w", err)
	}

	settled := 0
	for _, m := range expired {
		pp, err := s.prices.Latest(ctx, m.AssetName)
		if err != nil {
			s.logger.WarnContext(ctx, "market_service: no settlement price",
				slog.String("market_id", m.ID),
				slog.String("asset_name", m.AssetName),
				slog.String("error", err.Error()),
			)
			continue
		}

		if _, err := s.SettleMarket(ctx, m.ID, pp.Price); err != nil {
			// Lost the lock race or already settled; either way another
			// worker handled it.
			s.logger.WarnContext(ctx, "market_service: settle expired skipped",
				slog.String("market_id", m.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		settled++
	}

	return settled, nil
}

// Count returns the total number of markets in the persistent store.
func (s *MarketService) Count(ctx context.Context) (int64, error) {
	count, err := s.markets.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("market_service: count: %w", err)
	}
	return count, nil
}
