package service

import (
	"context"
	"fmt"

	"github.com/phamdat721101/antdle-market/internal/domain"
)

// HistoryService serves transaction history lookups.
type HistoryService struct {
	txs domain.TransactionStore
}

// NewHistoryService creates a HistoryService backed by the transaction store.
func NewHistoryService(txs domain.TransactionStore) *HistoryService {
	return &HistoryService{txs: txs}
}

// ByWallet returns a wallet's transactions, newest first.
func (s *HistoryService) ByWallet(ctx context.Context, wallet string, opts domain.ListOpts) ([]domain.ChainTransaction, error) {
	txs, err := s.txs.ListByWallet(ctx, wallet, opts)
	if err != nil {
		return nil, fmt.Errorf("history_service: by wallet: %w", err)
	}
	return txs, nil
}

// ByMarket returns a market's transactions, newest first.
func (s *HistoryService) ByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.ChainTransaction, error) {
	txs, err := s.txs.ListByMarket(ctx, marketID, opts)
	if err != nil {
		return nil, fmt.Errorf("history_service: by market: %w", err)
	}
	return txs, nil
}

// ByHash returns a single transaction by its hash.
func (s *HistoryService) ByHash(ctx context.Context, hash string) (domain.ChainTransaction, error) {
	tx, err := s.txs.GetByHash(ctx, hash)
	if err != nil {
		return domain.ChainTransaction{}, fmt.Errorf("history_service: by hash: %w", err)
	}
	return tx, nil
}
