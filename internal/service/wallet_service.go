package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phamdat721101/antdle-market/internal/domain"
	"github.com/phamdat721101/antdle-market/internal/wallet"
)

// SwapConfig tunes the demo token swap and the first-connect balance seed.
type SwapConfig struct {
	Token           string
	QuoteToken      string
	Rate            float64
	StartingBalance float64
}

// WalletService handles simulated wallet sessions, balances, and token swaps.
type WalletService struct {
	balances  domain.BalanceStore
	submitter domain.Submitter
	audit     domain.AuditStore
	logger    *slog.Logger
	cfg       SwapConfig
}

// NewWalletService creates a WalletService with all required dependencies.
func NewWalletService(
	balances domain.BalanceStore,
	submitter domain.Submitter,
	audit domain.AuditStore,
	logger *slog.Logger,
	cfg SwapConfig,
) *WalletService {
	return &WalletService{
		balances:  balances,
		submitter: submitter,
		audit:     audit,
		logger:    logger,
		cfg:       cfg,
	}
}

// Session is a simulated wallet-connect result. The private key is returned
// to the caller once and never stored server-side; it only exists so the demo
// UI can display it.
type Session struct {
	Address    string `json:"wallet_address"`
	PrivateKey string `json:"private_key"`
}

// Connect generates a throwaway wallet for a new session and seeds its
// staking token balance.
func (s *WalletService) Connect(ctx context.Context) (Session, error) {
	priv, addr, err := wallet.Generate()
	if err != nil {
		return Session{}, fmt.Errorf("wallet_service: connect: %w", err)
	}

	if s.cfg.StartingBalance > 0 {
		if err := s.balances.Credit(ctx, addr, s.cfg.Token, s.cfg.StartingBalance); err != nil {
			return Session{}, fmt.Errorf("wallet_service: seed balance: %w", err)
		}
	}

	if auditErr := s.audit.Log(ctx, "wallet_connected", map[string]any{
		"wallet": addr,
		"seeded": s.cfg.StartingBalance,
	}); auditErr != nil {
		s.logger.WarnContext(ctx, "wallet_service: audit log failed",
			slog.String("error", auditErr.Error()),
		)
	}

	s.logger.InfoContext(ctx, "wallet_service: wallet connected",
		slog.String("wallet", addr),
	)

	return Session{Address: addr, PrivateKey: priv}, nil
}

// Balances returns a wallet's holdings of the staking and quote tokens.
// Missing rows read as zero.
func (s *WalletService) Balances(ctx context.Context, walletAddr string) (map[string]float64, error) {
	if !wallet.ValidAddress(walletAddr) {
		return nil, fmt.Errorf("wallet_service: invalid wallet %q: %w", walletAddr, domain.ErrInvalidState)
	}

	out := map[string]float64{
		s.cfg.Token:      0,
		s.cfg.QuoteToken: 0,
	}
	for token := range out {
		b, err := s.balances.Get(ctx, walletAddr, token)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("wallet_service: get balance %s: %w", token, err)
		}
		out[token] = b.Amount
	}
	return out, nil
}

// SwapResult reports the executed swap.
type SwapResult struct {
	FromToken   string                  `json:"from_token"`
	ToToken     string                  `json:"to_token"`
	AmountIn    float64                 `json:"amount_in"`
	AmountOut   float64                 `json:"amount_out"`
	Transaction domain.ChainTransaction `json:"transaction"`
}

// Swap exchanges between the staking token and the quote token at the
// configured fixed rate. The debit is conditional on sufficient balance; the
// credit is compensated if the debit side succeeded but the credit failed.
func (s *WalletService) Swap(ctx context.Context, walletAddr, fromToken string, amount float64) (SwapResult, error) {
	if amount <= 0 {
		return SwapResult{}, fmt.Errorf("wallet_service: swap amount %v: %w", amount, domain.ErrInvalidAmount)
	}
	if !wallet.ValidAddress(walletAddr) {
		return SwapResult{}, fmt.Errorf("wallet_service: invalid wallet %q: %w", walletAddr, domain.ErrInvalidState)
	}

	var toToken string
	var amountOut float64
	switch fromToken {
	case s.cfg.Token:
		toToken = s.cfg.QuoteToken
		amountOut = amount * s.cfg.Rate
	case s.cfg.QuoteToken:
		toToken = s.cfg.Token
		amountOut = amount / s.cfg.Rate
	default:
		return SwapResult{}, fmt.Errorf("wallet_service: unknown token %q: %w", fromToken, domain.ErrInvalidState)
	}

	if err := s.balances.Debit(ctx, walletAddr, fromToken, amount); err != nil {
		return SwapResult{}, fmt.Errorf("wallet_service: debit %s: %w", fromToken, err)
	}
	if err := s.balances.Credit(ctx, walletAddr, toToken, amountOut); err != nil {
		// Unwind the debit so the swap never half-applies.
		if refundErr := s.balances.Credit(ctx, walletAddr, fromToken, amount); refundErr != nil {
			s.logger.ErrorContext(ctx, "wallet_service: swap refund failed",
				slog.String("wallet", walletAddr),
				slog.Float64("amount", amount),
				slog.String("error", refundErr.Error()),
			)
		}
		return SwapResult{}, fmt.Errorf("wallet_service: credit %s: %w", toToken, err)
	}

	tx, err := s.submitter.Submit(ctx, domain.ChainTransaction{
		Wallet: walletAddr,
		Kind:   domain.TxKindSwap,
		Amount: amount,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "wallet_service: submit transaction failed",
			slog.String("wallet", walletAddr),
			slog.String("error", err.Error()),
		)
	}

	if auditErr := s.audit.Log(ctx, "tokens_swapped", map[string]any{
		"wallet":     walletAddr,
		"from_token": fromToken,
		"to_token":   toToken,
		"amount_in":  amount,
		"amount_out": amountOut,
	}); auditErr != nil {
		s.logger.WarnContext(ctx, "wallet_service: audit log failed",
			slog.String("error", auditErr.Error()),
		)
	}

	s.logger.InfoContext(ctx, "wallet_service: tokens swapped",
		slog.String("wallet", walletAddr),
		slog.String("from_token", fromToken),
		slog.Float64("amount_in", amount),
		slog.Float64("amount_out", amountOut),
	)

	return SwapResult{
		FromToken:   fromToken,
		ToToken:     toToken,
		AmountIn:    amount,
		AmountOut:   amountOut,
		Transaction: tx,
	}, nil
}
