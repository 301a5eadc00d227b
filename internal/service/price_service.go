package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/phamdat721101/antdle-market/internal/domain"
)

// PriceService records feed observations and serves latest-price lookups.
type PriceService struct {
	prices domain.PriceStore
	cache  domain.PriceCache
	bus    domain.SignalBus
	logger *slog.Logger
}

// NewPriceService creates a PriceService with all required dependencies.
func NewPriceService(
	prices domain.PriceStore,
	cache domain.PriceCache,
	bus domain.SignalBus,
	logger *slog.Logger,
) *PriceService {
	return &PriceService{
		prices: prices,
		cache:  cache,
		bus:    bus,
		logger: logger,
	}
}

// Record persists a price observation, refreshes the cache, and publishes a
// price event for websocket subscribers.
func (s *PriceService) Record(ctx context.Context, p domain.PricePoint) error {
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now().UTC()
	}

	if err := s.prices.Insert(ctx, p); err != nil {
		return fmt.Errorf("price_service: insert: %w", err)
	}

	if cacheErr := s.cache.SetPrice(ctx, p.AssetName, p.Price, p.Timestamp); cacheErr != nil {
		s.logger.WarnContext(ctx, "price_service: cache set failed",
			slog.String("asset_name", p.AssetName),
			slog.String("error", cacheErr.Error()),
		)
	}

	evt, _ := json.Marshal(map[string]any{
		"event":      "price_tick",
		"asset_name": p.AssetName,
		"price":      p.Price,
		"timestamp":  p.Timestamp.Format(time.RFC3339),
	})
	if pubErr := s.bus.Publish(ctx, "prices", evt); pubErr != nil {
		s.logger.WarnContext(ctx, "price_service: publish event failed",
			slog.String("asset_name", p.AssetName),
			slog.String("error", pubErr.Error()),
		)
	}

	return nil
}

// Latest returns the most recent price for an asset, preferring the cache and
// falling back to the store.
func (s *PriceService) Latest(ctx context.Context, assetName string) (domain.PricePoint, error) {
	price, ts, err := s.cache.GetPrice(ctx, assetName)
	if err == nil {
		return domain.PricePoint{AssetName: assetName, Price: price, Timestamp: ts}, nil
	}

	pp, err := s.prices.Latest(ctx, assetName)
	if err != nil {
		return domain.PricePoint{}, fmt.Errorf("price_service: latest %s: %w", assetName, err)
	}

	if cacheErr := s.cache.SetPrice(ctx, pp.AssetName, pp.Price, pp.Timestamp); cacheErr != nil {
		s.logger.WarnContext(ctx, "price_service: cache backfill failed",
			slog.String("asset_name", assetName),
			slog.String("error", cacheErr.Error()),
		)
	}

	return pp, nil
}

// LatestMany returns the most recent cached prices for several assets in one
// round trip. Assets without a cached price are omitted.
func (s *PriceService) LatestMany(ctx context.Context, assetNames []string) (map[string]float64, error) {
	prices, err := s.cache.GetPrices(ctx, assetNames)
	if err != nil {
		return nil, fmt.Errorf("price_service: latest many: %w", err)
	}
	return prices, nil
}
