package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phamdat721101/antdle-market/internal/domain"
	"github.com/phamdat721101/antdle-market/internal/wallet"
)

func newWalletService(balances *memBalanceStore) *WalletService {
	return NewWalletService(
		balances, &fakeSubmitter{}, &memAuditStore{}, discardLogger(),
		SwapConfig{Token: "ANT", QuoteToken: "USDX", Rate: 0.85, StartingBalance: 1000},
	)
}

func TestConnectSeedsBalance(t *testing.T) {
	balances := newMemBalanceStore()
	svc := newWalletService(balances)
	ctx := context.Background()

	sess, err := svc.Connect(ctx)
	require.NoError(t, err)
	assert.True(t, wallet.ValidAddress(sess.Address))
	assert.NotEmpty(t, sess.PrivateKey)

	b, err := balances.Get(ctx, sess.Address, "ANT")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, b.Amount)
}

func TestBalancesReadsZeroForMissingRows(t *testing.T) {
	svc := newWalletService(newMemBalanceStore())

	out, err := svc.Balances(context.Background(), testWallet)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"ANT": 0, "USDX": 0}, out)
}

// wrappingBalanceStore returns ErrNotFound wrapped the way the postgres
// layer does, so Balances must match the sentinel, not the bare error.
type wrappingBalanceStore struct {
	*memBalanceStore
}

func (s *wrappingBalanceStore) Get(ctx context.Context, wallet, token string) (domain.Balance, error) {
	b, err := s.memBalanceStore.Get(ctx, wallet, token)
	if err != nil {
		return domain.Balance{}, fmt.Errorf("postgres: get balance %s/%s: %w", wallet, token, err)
	}
	return b, nil
}

func TestBalancesSkipsWrappedNotFound(t *testing.T) {
	svc := NewWalletService(
		&wrappingBalanceStore{newMemBalanceStore()},
		&fakeSubmitter{}, &memAuditStore{}, discardLogger(),
		SwapConfig{Token: "ANT", QuoteToken: "USDX", Rate: 0.85},
	)

	out, err := svc.Balances(context.Background(), testWallet)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"ANT": 0, "USDX": 0}, out)
}

func TestSwap(t *testing.T) {
	balances := newMemBalanceStore()
	svc := newWalletService(balances)
	ctx := context.Background()

	require.NoError(t, balances.Credit(ctx, testWallet, "ANT", 100))

	res, err := svc.Swap(ctx, testWallet, "ANT", 40)
	require.NoError(t, err)
	assert.Equal(t, "USDX", res.ToToken)
	assert.InDelta(t, 34.0, res.AmountOut, 1e-9)

	out, err := svc.Balances(ctx, testWallet)
	require.NoError(t, err)
	assert.InDelta(t, 60.0, out["ANT"], 1e-9)
	assert.InDelta(t, 34.0, out["USDX"], 1e-9)

	// Swap back at the inverse rate.
	res, err = svc.Swap(ctx, testWallet, "USDX", 34)
	require.NoError(t, err)
	assert.Equal(t, "ANT", res.ToToken)
	assert.InDelta(t, 40.0, res.AmountOut, 1e-9)
}

func TestSwapValidation(t *testing.T) {
	balances := newMemBalanceStore()
	svc := newWalletService(balances)
	ctx := context.Background()

	_, err := svc.Swap(ctx, testWallet, "ANT", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.Swap(ctx, testWallet, "BTC", 10)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = svc.Swap(ctx, "nope", "ANT", 10)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	// No balance to debit.
	_, err = svc.Swap(ctx, testWallet, "ANT", 10)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
}
