package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phamdat721101/antdle-market/internal/domain"
)

type marketFixture struct {
	markets *memMarketStore
	prices  *memPriceStore
	svc     *MarketService
}

func newMarketFixture(t *testing.T) *marketFixture {
	t.Helper()
	markets := newMemMarketStore()
	prices := newMemPriceStore()
	svc := NewMarketService(
		markets, prices, noopMarketCache{}, newMemLockManager(),
		newMemBus(), &memAuditStore{}, discardLogger(),
	)
	return &marketFixture{markets: markets, prices: prices, svc: svc}
}

func TestCreateMarket(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()

	m, err := f.svc.CreateMarket(ctx, CreateMarketParams{
		AssetName:   "BTC",
		Description: "BTC above 50k by Friday",
		StrikePrice: 50000,
		ExpiryAt:    time.Now().Add(48 * time.Hour),
		Creator:     testWallet,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, m.ID)
	assert.Equal(t, domain.MarketStatusActive, m.Status)
	assert.Nil(t, m.SettledPrice)
	assert.Zero(t, m.YesPool)
	assert.Zero(t, m.NoPool)

	stored, err := f.markets.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "BTC", stored.AssetName)
}

func TestCreateMarketValidation(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()
	future := time.Now().Add(time.Hour)

	_, err := f.svc.CreateMarket(ctx, CreateMarketParams{StrikePrice: 100, ExpiryAt: future})
	assert.ErrorIs(t, err, domain.ErrInvalidState, "missing asset name")

	_, err = f.svc.CreateMarket(ctx, CreateMarketParams{AssetName: "BTC", ExpiryAt: future})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount, "non-positive strike")

	_, err = f.svc.CreateMarket(ctx, CreateMarketParams{
		AssetName: "BTC", StrikePrice: 100, ExpiryAt: time.Now().Add(-time.Hour),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidState, "past expiry")

	_, err = f.svc.CreateMarket(ctx, CreateMarketParams{
		AssetName: "BTC", StrikePrice: 100, ExpiryAt: future, Creator: "bogus",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidState, "bad creator address")
}

func TestSettleMarket(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()

	require.NoError(t, f.markets.Create(ctx, domain.Market{
		ID:          "m1",
		AssetName:   "ETH",
		StrikePrice: 3000,
		ExpiryAt:    time.Now().Add(-time.Minute),
		Status:      domain.MarketStatusActive,
	}))

	m, err := f.svc.SettleMarket(ctx, "m1", 3100)
	require.NoError(t, err)
	assert.Equal(t, domain.MarketStatusSettled, m.Status)
	require.NotNil(t, m.SettledPrice)
	assert.Equal(t, 3100.0, *m.SettledPrice)

	// Settlement is one-shot.
	_, err = f.svc.SettleMarket(ctx, "m1", 2900)
	assert.ErrorIs(t, err, domain.ErrAlreadySettled)

	stored, err := f.markets.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 3100.0, *stored.SettledPrice, "price must not change on retry")
}

func TestSettleMarketBeforeExpiry(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()

	require.NoError(t, f.markets.Create(ctx, domain.Market{
		ID:       "m1",
		ExpiryAt: time.Now().Add(time.Hour),
		Status:   domain.MarketStatusActive,
	}))

	_, err := f.svc.SettleMarket(ctx, "m1", 100)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestSettleMarketNotFound(t *testing.T) {
	f := newMarketFixture(t)

	_, err := f.svc.SettleMarket(context.Background(), "nope", 100)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSettleExpired(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()

	require.NoError(t, f.markets.Create(ctx, domain.Market{
		ID:        "m1",
		AssetName: "BTC",
		ExpiryAt:  time.Now().Add(-time.Hour),
		Status:    domain.MarketStatusActive,
	}))
	require.NoError(t, f.markets.Create(ctx, domain.Market{
		ID:        "m2",
		AssetName: "DOGE", // no feed price recorded
		ExpiryAt:  time.Now().Add(-time.Hour),
		Status:    domain.MarketStatusActive,
	}))
	require.NoError(t, f.markets.Create(ctx, domain.Market{
		ID:        "m3",
		AssetName: "BTC",
		ExpiryAt:  time.Now().Add(time.Hour),
		Status:    domain.MarketStatusActive,
	}))

	require.NoError(t, f.prices.Insert(ctx, domain.PricePoint{
		AssetName: "BTC", Price: 51234, Timestamp: time.Now(),
	}))

	settled, err := f.svc.SettleExpired(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, settled, "only the expired market with a price settles")

	m1, _ := f.markets.GetByID(ctx, "m1")
	assert.Equal(t, domain.MarketStatusSettled, m1.Status)
	m2, _ := f.markets.GetByID(ctx, "m2")
	assert.Equal(t, domain.MarketStatusActive, m2.Status)
	m3, _ := f.markets.GetByID(ctx, "m3")
	assert.Equal(t, domain.MarketStatusActive, m3.Status)
}
