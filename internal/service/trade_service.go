package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phamdat721101/antdle-market/internal/domain"
	"github.com/phamdat721101/antdle-market/internal/settlement"
	"github.com/phamdat721101/antdle-market/internal/wallet"
)

// TradeService handles position placement against active markets.
type TradeService struct {
	markets    domain.MarketStore
	positions  domain.PositionStore
	balances   domain.BalanceStore
	submitter  domain.Submitter
	cache      domain.MarketCache
	bus        domain.SignalBus
	audit      domain.AuditStore
	logger     *slog.Logger
	stakeToken string
}

// NewTradeService creates a TradeService with all required dependencies.
// stakeToken is the token symbol debited for every stake.
func NewTradeService(
	markets domain.MarketStore,
	positions domain.PositionStore,
	balances domain.BalanceStore,
	submitter domain.Submitter,
	cache domain.MarketCache,
	bus domain.SignalBus,
	audit domain.AuditStore,
	logger *slog.Logger,
	stakeToken string,
) *TradeService {
	return &TradeService{
		markets:    markets,
		positions:  positions,
		balances:   balances,
		submitter:  submitter,
		cache:      cache,
		bus:        bus,
		audit:      audit,
		logger:     logger,
		stakeToken: stakeToken,
	}
}

// PlaceTradeParams carries the caller-supplied fields for a trade.
type PlaceTradeParams struct {
	MarketID string
	Wallet   string
	Side     domain.Side
	Amount   float64
}

// TradeResult is the outcome of a successful trade: the recorded position and
// the simulated transaction tracking it.
type TradeResult struct {
	Position    domain.Position         `json:"position"`
	Transaction domain.ChainTransaction `json:"transaction"`
}

// PlaceTrade validates the trade, debits the wallet's stake, and records the
// position with an atomic pool increment. Trading is rejected on markets that
// are settled or past expiry. The stake debit is compensated if the position
// write fails, so the trade either fully applies or not at all.
func (s *TradeService) PlaceTrade(ctx context.Context, p PlaceTradeParams) (TradeResult, error) {
	if p.Amount <= 0 {
		return TradeResult{}, fmt.Errorf("trade_service: amount %v: %w", p.Amount, domain.ErrInvalidAmount)
	}
	if !p.Side.Valid() {
		return TradeResult{}, fmt.Errorf("trade_service: side %q: %w", p.Side, domain.ErrInvalidState)
	}
	if !wallet.ValidAddress(p.Wallet) {
		return TradeResult{}, fmt.Errorf("trade_service: invalid wallet %q: %w", p.Wallet, domain.ErrInvalidState)
	}

	m, err := s.markets.GetByID(ctx, p.MarketID)
	if err != nil {
		return TradeResult{}, fmt.Errorf("trade_service: get market %s: %w", p.MarketID, err)
	}
	now := time.Now().UTC()
	if m.Status != domain.MarketStatusActive || m.Expired(now) {
		return TradeResult{}, fmt.Errorf("trade_service: market %s: %w", p.MarketID, domain.ErrMarketClosed)
	}

	if err := s.balances.Debit(ctx, p.Wallet, s.stakeToken, p.Amount); err != nil {
		return TradeResult{}, fmt.Errorf("trade_service: debit stake: %w", err)
	}

	pos := domain.Position{
		ID:        uuid.New().String(),
		MarketID:  p.MarketID,
		Wallet:    p.Wallet,
		Side:      p.Side,
		Amount:    p.Amount,
		CreatedAt: now,
	}

	if err := s.positions.Place(ctx, pos); err != nil {
		// Return the stake; the position never existed.
		if creditErr := s.balances.Credit(ctx, p.Wallet, s.stakeToken, p.Amount); creditErr != nil {
			s.logger.ErrorContext(ctx, "trade_service: stake refund failed",
				slog.String("wallet", p.Wallet),
				slog.Float64("amount", p.Amount),
				slog.String("error", creditErr.Error()),
			)
		}
		return TradeResult{}, fmt.Errorf("trade_service: place position: %w", err)
	}

	if err := s.cache.Invalidate(ctx, p.MarketID); err != nil {
		s.logger.WarnContext(ctx, "trade_service: cache invalidate failed",
			slog.String("market_id", p.MarketID),
			slog.String("error", err.Error()),
		)
	}

	side := p.Side
	tx, err := s.submitter.Submit(ctx, domain.ChainTransaction{
		Wallet:     p.Wallet,
		Kind:       domain.TxKindTrade,
		Side:       &side,
		Amount:     p.Amount,
		MarketID:   &pos.MarketID,
		PositionID: &pos.ID,
	})
	if err != nil {
		// The position stands; the transaction record is cosmetic tracking.
		s.logger.WarnContext(ctx, "trade_service: submit transaction failed",
			slog.String("position_id", pos.ID),
			slog.String("error", err.Error()),
		)
	}

	evt, _ := json.Marshal(map[string]any{
		"event":       "trade_placed",
		"position_id": pos.ID,
		"market_id":   pos.MarketID,
		"wallet":      pos.Wallet,
		"side":        string(pos.Side),
		"amount":      pos.Amount,
		"timestamp":   now.Format(time.RFC3339),
	})
	if pubErr := s.bus.Publish(ctx, "trades", evt); pubErr != nil {
		s.logger.WarnContext(ctx, "trade_service: publish event failed",
			slog.String("position_id", pos.ID),
			slog.String("error", pubErr.Error()),
		)
	}

	if auditErr := s.audit.Log(ctx, "trade_placed", map[string]any{
		"position_id": pos.ID,
		"market_id":   pos.MarketID,
		"wallet":      pos.Wallet,
		"side":        string(pos.Side),
		"amount":      pos.Amount,
	}); auditErr != nil {
		s.logger.WarnContext(ctx, "trade_service: audit log failed",
			slog.String("error", auditErr.Error()),
		)
	}

	s.logger.InfoContext(ctx, "trade_service: trade placed",
		slog.String("position_id", pos.ID),
		slog.String("market_id", pos.MarketID),
		slog.String("side", string(pos.Side)),
		slog.Float64("amount", pos.Amount),
	)

	return TradeResult{Position: pos, Transaction: tx}, nil
}

// ListPositions returns a wallet's positions joined with market context,
// each classified by the settlement evaluator as pending, win, or loss.
func (s *TradeService) ListPositions(ctx context.Context, walletAddr string, opts domain.ListOpts) ([]domain.PositionWithMarket, error) {
	positions, err := s.positions.ListByWallet(ctx, walletAddr, opts)
	if err != nil {
		return nil, fmt.Errorf("trade_service: list positions: %w", err)
	}

	for i := range positions {
		positions[i].Outcome = settlement.Outcome(positions[i].Side, domain.Market{
			StrikePrice:  positions[i].StrikePrice,
			Status:       positions[i].MarketStatus,
			SettledPrice: positions[i].SettledPrice,
		})
	}
	return positions, nil
}
