package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phamdat721101/antdle-market/internal/domain"
)

const (
	testWallet = "0x9d8A62f656a8d1615C1294fd71e9CFb3E4855A4F"
	testToken  = "ANT"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type tradeFixture struct {
	markets   *memMarketStore
	positions *memPositionStore
	balances  *memBalanceStore
	submitter *fakeSubmitter
	svc       *TradeService
}

func newTradeFixture(t *testing.T) *tradeFixture {
	t.Helper()
	markets := newMemMarketStore()
	positions := newMemPositionStore(markets)
	balances := newMemBalanceStore()
	submitter := &fakeSubmitter{}
	svc := NewTradeService(
		markets, positions, balances, submitter,
		noopMarketCache{}, newMemBus(), &memAuditStore{},
		discardLogger(), testToken,
	)
	return &tradeFixture{
		markets:   markets,
		positions: positions,
		balances:  balances,
		submitter: submitter,
		svc:       svc,
	}
}

func activeMarket(id string, expiry time.Time) domain.Market {
	return domain.Market{
		ID:          id,
		AssetName:   "BTC",
		StrikePrice: 50000,
		ExpiryAt:    expiry,
		Status:      domain.MarketStatusActive,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestPlaceTrade(t *testing.T) {
	f := newTradeFixture(t)
	ctx := context.Background()

	require.NoError(t, f.markets.Create(ctx, activeMarket("m1", time.Now().Add(time.Hour))))
	require.NoError(t, f.balances.Credit(ctx, testWallet, testToken, 100))

	res, err := f.svc.PlaceTrade(ctx, PlaceTradeParams{
		MarketID: "m1",
		Wallet:   testWallet,
		Side:     domain.SideYes,
		Amount:   25,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.Position.ID)
	assert.Equal(t, domain.SideYes, res.Position.Side)
	assert.Equal(t, domain.TxKindTrade, res.Transaction.Kind)

	// The stake moved from the balance into the yes pool.
	b, err := f.balances.Get(ctx, testWallet, testToken)
	require.NoError(t, err)
	assert.Equal(t, 75.0, b.Amount)

	m, err := f.markets.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 25.0, m.YesPool)
	assert.Equal(t, 0.0, m.NoPool)
}

func TestPlaceTradeOnExpiredMarket(t *testing.T) {
	f := newTradeFixture(t)
	ctx := context.Background()

	// Expired but not yet settled: still closed for trading.
	require.NoError(t, f.markets.Create(ctx, activeMarket("m1", time.Now().Add(-time.Minute))))
	require.NoError(t, f.balances.Credit(ctx, testWallet, testToken, 100))

	_, err := f.svc.PlaceTrade(ctx, PlaceTradeParams{
		MarketID: "m1",
		Wallet:   testWallet,
		Side:     domain.SideYes,
		Amount:   10,
	})
	assert.ErrorIs(t, err, domain.ErrMarketClosed)

	// Nothing was debited.
	b, err := f.balances.Get(ctx, testWallet, testToken)
	require.NoError(t, err)
	assert.Equal(t, 100.0, b.Amount)
}

func TestPlaceTradeValidation(t *testing.T) {
	f := newTradeFixture(t)
	ctx := context.Background()
	require.NoError(t, f.markets.Create(ctx, activeMarket("m1", time.Now().Add(time.Hour))))

	_, err := f.svc.PlaceTrade(ctx, PlaceTradeParams{
		MarketID: "m1", Wallet: testWallet, Side: domain.SideYes, Amount: 0,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.PlaceTrade(ctx, PlaceTradeParams{
		MarketID: "m1", Wallet: testWallet, Side: domain.SideYes, Amount: -5,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.PlaceTrade(ctx, PlaceTradeParams{
		MarketID: "m1", Wallet: testWallet, Side: "maybe", Amount: 10,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = f.svc.PlaceTrade(ctx, PlaceTradeParams{
		MarketID: "m1", Wallet: "not-an-address", Side: domain.SideYes, Amount: 10,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestPlaceTradeInsufficientFunds(t *testing.T) {
	f := newTradeFixture(t)
	ctx := context.Background()

	require.NoError(t, f.markets.Create(ctx, activeMarket("m1", time.Now().Add(time.Hour))))
	require.NoError(t, f.balances.Credit(ctx, testWallet, testToken, 5))

	_, err := f.svc.PlaceTrade(ctx, PlaceTradeParams{
		MarketID: "m1", Wallet: testWallet, Side: domain.SideNo, Amount: 10,
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
}

func TestPlaceTradeRefundsStakeOnRace(t *testing.T) {
	f := newTradeFixture(t)
	ctx := context.Background()

	// Market appears active at validation time but settles before the
	// position write lands.
	m := activeMarket("m1", time.Now().Add(time.Hour))
	require.NoError(t, f.markets.Create(ctx, m))
	require.NoError(t, f.balances.Credit(ctx, testWallet, testToken, 100))

	f.markets.mu.Lock()
	settled := f.markets.markets["m1"]
	price := 60000.0
	settled.Status = domain.MarketStatusSettled
	settled.SettledPrice = &price
	// Expiry left in the future so only the Place-level guard can reject.
	f.markets.markets["m1"] = settled
	f.markets.mu.Unlock()

	// Build the service against a reader that still reports the stale
	// active market, simulating the race window.
	stale := newMemMarketStore()
	require.NoError(t, stale.Create(ctx, m))
	svc := NewTradeService(
		stale, f.positions, f.balances, f.submitter,
		noopMarketCache{}, newMemBus(), &memAuditStore{},
		discardLogger(), testToken,
	)

	_, err := svc.PlaceTrade(ctx, PlaceTradeParams{
		MarketID: "m1", Wallet: testWallet, Side: domain.SideYes, Amount: 40,
	})
	assert.ErrorIs(t, err, domain.ErrMarketClosed)

	// The debited stake was refunded.
	b, err := f.balances.Get(ctx, testWallet, testToken)
	require.NoError(t, err)
	assert.Equal(t, 100.0, b.Amount)
}

func TestListPositionsClassifiesOutcomes(t *testing.T) {
	f := newTradeFixture(t)
	ctx := context.Background()

	require.NoError(t, f.markets.Create(ctx, activeMarket("open", time.Now().Add(time.Hour))))
	settled := activeMarket("done", time.Now().Add(-time.Hour))
	price := 60000.0
	settled.Status = domain.MarketStatusSettled
	settled.SettledPrice = &price
	require.NoError(t, f.markets.Create(ctx, settled))

	require.NoError(t, f.positions.Place(ctx, domain.Position{
		ID: "p1", MarketID: "open", Wallet: testWallet, Side: domain.SideYes, Amount: 10,
	}))
	require.NoError(t, f.positions.place(domain.Position{
		ID: "p2", MarketID: "done", Wallet: testWallet, Side: domain.SideYes, Amount: 10,
	}))
	require.NoError(t, f.positions.place(domain.Position{
		ID: "p3", MarketID: "done", Wallet: testWallet, Side: domain.SideNo, Amount: 10,
	}))

	positions, err := f.svc.ListPositions(ctx, testWallet, domain.ListOpts{Limit: 10})
	require.NoError(t, err)
	require.Len(t, positions, 3)

	outcomes := map[string]domain.PositionOutcome{}
	for _, p := range positions {
		outcomes[p.ID] = p.Outcome
	}
	assert.Equal(t, domain.OutcomePending, outcomes["p1"])
	assert.Equal(t, domain.OutcomeWin, outcomes["p2"], "yes wins above strike")
	assert.Equal(t, domain.OutcomeLoss, outcomes["p3"])
}
