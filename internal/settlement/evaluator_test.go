package settlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phamdat721101/antdle-market/internal/domain"
)

func settledMarket(strike, settled, yesPool, noPool float64) domain.Market {
	return domain.Market{
		ID:           "mkt-1",
		AssetName:    "ANT",
		StrikePrice:  strike,
		YesPool:      yesPool,
		NoPool:       noPool,
		Status:       domain.MarketStatusSettled,
		SettledPrice: &settled,
	}
}

func TestWinner(t *testing.T) {
	tests := []struct {
		name    string
		strike  float64
		settled float64
		want    domain.Side
	}{
		{"settled above strike", 50, 60, domain.SideYes},
		{"settled below strike", 50, 40, domain.SideNo},
		{"settled equal to strike resolves to no", 50, 50, domain.SideNo},
		{"barely above", 50, 50.01, domain.SideYes},
		{"zero strike", 0, 0, domain.SideNo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Winner(tt.strike, tt.settled))
		})
	}
}

func TestPayoutPariMutuel(t *testing.T) {
	// yes_pool=100, no_pool=100, strike=50, settled=60: a 10 ANT yes
	// position takes back its stake plus a 10% share of the no pool.
	m := settledMarket(50, 60, 100, 100)
	pos := domain.Position{ID: "pos-1", MarketID: m.ID, Side: domain.SideYes, Amount: 10}

	payout, err := Payout(pos, m)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, payout, 1e-9)
}

func TestPayoutTieResolvesToNo(t *testing.T) {
	m := settledMarket(50, 50, 100, 100)

	_, err := Payout(domain.Position{ID: "p", Side: domain.SideYes, Amount: 10}, m)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	payout, err := Payout(domain.Position{ID: "p", Side: domain.SideNo, Amount: 10}, m)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, payout, 1e-9)
}

func TestPayoutEmptyLosingPool(t *testing.T) {
	// Everyone staked on the winning side: stake back exactly, no surplus.
	m := settledMarket(50, 60, 250, 0)
	pos := domain.Position{ID: "p", Side: domain.SideYes, Amount: 25}

	payout, err := Payout(pos, m)
	require.NoError(t, err)
	assert.Equal(t, 25.0, payout)
}

func TestPayoutInvalidStates(t *testing.T) {
	settled := settledMarket(50, 60, 100, 100)

	active := settled
	active.Status = domain.MarketStatusActive
	active.SettledPrice = nil

	tests := []struct {
		name string
		pos  domain.Position
		m    domain.Market
	}{
		{"market not settled", domain.Position{Side: domain.SideYes, Amount: 10}, active},
		{"already claimed", domain.Position{Side: domain.SideYes, Amount: 10, Claimed: true}, settled},
		{"losing side", domain.Position{Side: domain.SideNo, Amount: 10}, settled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Payout(tt.pos, tt.m)
			assert.ErrorIs(t, err, domain.ErrInvalidState)
		})
	}
}

func TestPayoutNeverZeroOnWinningPath(t *testing.T) {
	m := settledMarket(50, 60, 1000, 3)
	pos := domain.Position{ID: "p", Side: domain.SideYes, Amount: 0.01}

	payout, err := Payout(pos, m)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, payout, pos.Amount)
	assert.Positive(t, payout)
}

func TestPayoutConservation(t *testing.T) {
	// The sum of payouts across every winning position must not exceed the
	// combined pools, regardless of how the winning pool is split.
	stakes := []float64{10, 25.5, 0.03, 101.47, 63}
	var yesPool float64
	for _, s := range stakes {
		yesPool += s
	}
	m := settledMarket(50, 75, yesPool, 137.41)

	var total float64
	for i, s := range stakes {
		pos := domain.Position{ID: "p", Side: domain.SideYes, Amount: s}
		payout, err := Payout(pos, m)
		require.NoError(t, err, "stake %d", i)
		total += payout
	}

	assert.LessOrEqual(t, total, m.YesPool+m.NoPool)
}

func TestPayoutDeterministic(t *testing.T) {
	m := settledMarket(42.5, 43.1, 317.77, 289.13)
	pos := domain.Position{ID: "p", Side: domain.SideYes, Amount: 12.34}

	first, err := Payout(pos, m)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		again, err := Payout(pos, m)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestOutcome(t *testing.T) {
	active := domain.Market{Status: domain.MarketStatusActive, StrikePrice: 50}
	assert.Equal(t, domain.OutcomePending, Outcome(domain.SideYes, active))

	settled := settledMarket(50, 60, 100, 100)
	assert.Equal(t, domain.OutcomeWin, Outcome(domain.SideYes, settled))
	assert.Equal(t, domain.OutcomeLoss, Outcome(domain.SideNo, settled))
}
