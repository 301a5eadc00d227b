package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/phamdat721101/antdle-market/internal/domain"
	"github.com/phamdat721101/antdle-market/internal/settlement"
)

// ClaimService pays out winning positions once their market has settled.
type ClaimService struct {
	positions  domain.PositionStore
	markets    domain.MarketStore
	balances   domain.BalanceStore
	submitter  domain.Submitter
	bus        domain.SignalBus
	audit      domain.AuditStore
	logger     *slog.Logger
	stakeToken string
}

// NewClaimService creates a ClaimService with all required dependencies.
func NewClaimService(
	positions domain.PositionStore,
	markets domain.MarketStore,
	balances domain.BalanceStore,
	submitter domain.Submitter,
	bus domain.SignalBus,
	audit domain.AuditStore,
	logger *slog.Logger,
	stakeToken string,
) *ClaimService {
	return &ClaimService{
		positions:  positions,
		markets:    markets,
		balances:   balances,
		submitter:  submitter,
		bus:        bus,
		audit:      audit,
		logger:     logger,
		stakeToken: stakeToken,
	}
}

// ClaimResult is the outcome of a successful claim.
type ClaimResult struct {
	PositionID  string                  `json:"position_id"`
	Payout      float64                 `json:"payout"`
	Transaction domain.ChainTransaction `json:"transaction"`
}

// Claim pays out a winning, unclaimed position. The payout is computed by the
// settlement evaluator; the claimed flag is then flipped with a conditional
// update, which is the idempotency gate: under concurrent claims exactly one
// caller wins the flip and credits the payout.
//
// Evaluator failures (market not settled, already claimed, losing side)
// propagate unchanged as domain.ErrInvalidState.
func (s *ClaimService) Claim(ctx context.Context, positionID, walletAddr string) (ClaimResult, error) {
	pos, err := s.positions.GetByID(ctx, positionID)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("claim_service: get position %s: %w", positionID, err)
	}
	if walletAddr != "" && pos.Wallet != walletAddr {
		// Do not leak other wallets' position state.
		return ClaimResult{}, fmt.Errorf("claim_service: position %s: %w", positionID, domain.ErrNotFound)
	}

	m, err := s.markets.GetByID(ctx, pos.MarketID)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("claim_service: get market %s: %w", pos.MarketID, err)
	}

	payout, err := settlement.Payout(pos, m)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("claim_service: evaluate position %s: %w", positionID, err)
	}

	// Flip the flag before paying: a concurrent duplicate claim fails here
	// and never double-credits.
	if err := s.positions.MarkClaimed(ctx, positionID); err != nil {
		return ClaimResult{}, fmt.Errorf("claim_service: mark claimed %s: %w", positionID, err)
	}

	if err := s.balances.Credit(ctx, pos.Wallet, s.stakeToken, payout); err != nil {
		// The claim flag is already set; surface the failure loudly instead
		// of unwinding it, so the operator can reconcile from the audit log.
		s.logger.ErrorContext(ctx, "claim_service: payout credit failed",
			slog.String("position_id", positionID),
			slog.String("wallet", pos.Wallet),
			slog.Float64("payout", payout),
			slog.String("error", err.Error()),
		)
		return ClaimResult{}, fmt.Errorf("claim_service: credit payout: %w", err)
	}

	tx, err := s.submitter.Submit(ctx, domain.ChainTransaction{
		Wallet:     pos.Wallet,
		Kind:       domain.TxKindClaim,
		Amount:     payout,
		MarketID:   &pos.MarketID,
		PositionID: &pos.ID,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "claim_service: submit transaction failed",
			slog.String("position_id", positionID),
			slog.String("error", err.Error()),
		)
	}

	evt, _ := json.Marshal(map[string]any{
		"event":       "claim_paid",
		"position_id": pos.ID,
		"market_id":   pos.MarketID,
		"wallet":      pos.Wallet,
		"payout":      payout,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
	if pubErr := s.bus.Publish(ctx, "trades", evt); pubErr != nil {
		s.logger.WarnContext(ctx, "claim_service: publish event failed",
			slog.String("position_id", pos.ID),
			slog.String("error", pubErr.Error()),
		)
	}

	if auditErr := s.audit.Log(ctx, "claim_paid", map[string]any{
		"position_id": pos.ID,
		"market_id":   pos.MarketID,
		"wallet":      pos.Wallet,
		"payout":      payout,
	}); auditErr != nil {
		s.logger.WarnContext(ctx, "claim_service: audit log failed",
			slog.String("error", auditErr.Error()),
		)
	}

	s.logger.InfoContext(ctx, "claim_service: claim paid",
		slog.String("position_id", pos.ID),
		slog.Float64("payout", payout),
	)

	return ClaimResult{PositionID: pos.ID, Payout: payout, Transaction: tx}, nil
}

// ProcessMarket claims every winning, unclaimed position on a settled market
// on behalf of its holders. Used by the batch worker after settlement.
// Returns the number of positions paid.
func (s *ClaimService) ProcessMarket(ctx context.Context, marketID string) (int, error) {
	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return 0, fmt.Errorf("claim_service: get market %s: %w", marketID, err)
	}
	if m.Status != domain.MarketStatusSettled {
		return 0, fmt.Errorf("claim_service: market %s not settled: %w", marketID, domain.ErrInvalidState)
	}

	positions, err := s.positions.ListByMarket(ctx, marketID, domain.ListOpts{})
	if err != nil {
		return 0, fmt.Errorf("claim_service: list positions: %w", err)
	}

	paid := 0
	for _, pos := range positions {
		if pos.Claimed || settlement.Outcome(pos.Side, m) != domain.OutcomeWin {
			continue
		}
		if _, err := s.Claim(ctx, pos.ID, ""); err != nil {
			s.logger.WarnContext(ctx, "claim_service: batch claim skipped",
				slog.String("position_id", pos.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		paid++
	}

	return paid, nil
}
