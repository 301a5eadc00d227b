// Package settlement determines market outcomes and computes position
// payouts. Everything here is a pure function of the market and position
// records: no I/O, no randomness, no clock.
package settlement

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/phamdat721101/antdle-market/internal/domain"
)

// decCtx is the decimal context for payout arithmetic. Rounding is always
// down so that the sum of payouts can never exceed the combined pools.
var decCtx = func() *apd.Context {
	ctx := apd.BaseContext.WithPrecision(28)
	ctx.Rounding = apd.RoundDown
	return ctx
}()

// Winner returns the winning side for a settled price against the strike.
// Yes wins strictly when the settled price exceeds the strike; a settled
// price equal to the strike resolves to no.
func Winner(strikePrice, settledPrice float64) domain.Side {
	if settledPrice > strikePrice {
		return domain.SideYes
	}
	return domain.SideNo
}

// Outcome classifies a position against its market: pending while the market
// is unsettled, win or loss afterwards.
func Outcome(side domain.Side, m domain.Market) domain.PositionOutcome {
	if m.Status != domain.MarketStatusSettled || m.SettledPrice == nil {
		return domain.OutcomePending
	}
	if side == Winner(m.StrikePrice, *m.SettledPrice) {
		return domain.OutcomeWin
	}
	return domain.OutcomeLoss
}

// Payout computes the pari-mutuel payout for a winning, unclaimed position:
// the stake back plus a share of the losing pool proportional to the stake's
// share of the winning pool.
//
//	payout = amount + amount/winningPool * losingPool
//
// The result is quantized to 2 decimal places, rounding down, and floored at
// the stake so rounding never eats into the principal. When the losing pool
// is empty the payout is exactly the stake.
//
// It returns domain.ErrInvalidState when the market is not settled, the
// position is already claimed, or the position is on the losing side.
func Payout(pos domain.Position, m domain.Market) (float64, error) {
	if m.Status != domain.MarketStatusSettled || m.SettledPrice == nil {
		return 0, fmt.Errorf("market %s not settled: %w", m.ID, domain.ErrInvalidState)
	}
	if pos.Claimed {
		return 0, fmt.Errorf("position %s already claimed: %w", pos.ID, domain.ErrInvalidState)
	}

	winner := Winner(m.StrikePrice, *m.SettledPrice)
	if pos.Side != winner {
		return 0, fmt.Errorf("position %s on losing side: %w", pos.ID, domain.ErrInvalidState)
	}

	winningPool := m.Pool(winner)
	losingPool := m.Pool(winner.Opposite())
	if losingPool <= 0 || winningPool <= 0 {
		// No surplus to distribute; the stake comes back as-is.
		return pos.Amount, nil
	}

	amount := new(apd.Decimal)
	if _, err := amount.SetFloat64(pos.Amount); err != nil {
		return 0, fmt.Errorf("settlement: amount: %w", err)
	}
	winning := new(apd.Decimal)
	if _, err := winning.SetFloat64(winningPool); err != nil {
		return 0, fmt.Errorf("settlement: winning pool: %w", err)
	}
	losing := new(apd.Decimal)
	if _, err := losing.SetFloat64(losingPool); err != nil {
		return 0, fmt.Errorf("settlement: losing pool: %w", err)
	}

	share := new(apd.Decimal)
	if _, err := decCtx.Quo(share, amount, winning); err != nil {
		return 0, fmt.Errorf("settlement: pool share: %w", err)
	}
	if _, err := decCtx.Mul(share, share, losing); err != nil {
		return 0, fmt.Errorf("settlement: surplus: %w", err)
	}

	payout := new(apd.Decimal)
	if _, err := decCtx.Add(payout, amount, share); err != nil {
		return 0, fmt.Errorf("settlement: payout: %w", err)
	}
	if _, err := decCtx.Quantize(payout, payout, -2); err != nil {
		return 0, fmt.Errorf("settlement: quantize: %w", err)
	}

	result, err := payout.Float64()
	if err != nil {
		return 0, fmt.Errorf("settlement: payout out of range: %w", err)
	}
	if result < pos.Amount {
		result = pos.Amount
	}
	return result, nil
}
