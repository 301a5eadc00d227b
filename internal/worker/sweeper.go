// Package worker runs the background maintenance loops: resolving
// transactions stuck in pending and moving old history to cold storage.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/phamdat721101/antdle-market/internal/domain"
)

// TxResolver forces a pending transaction to its final status. Implemented
// by chain.Simulator.
type TxResolver interface {
	Resolve(ctx context.Context, hash string) (domain.TxStatus, error)
}

// SweeperConfig controls the pending-transaction sweep loop.
type SweeperConfig struct {
	// Interval is how often the sweep runs.
	Interval time.Duration

	// PendingTimeout is how long a transaction may stay pending before the
	// sweeper resolves it.
	PendingTimeout time.Duration

	// BatchSize bounds how many stale transactions one sweep resolves.
	BatchSize int
}

// Sweeper periodically resolves transactions whose confirmation goroutine
// was lost, typically across a process restart.
type Sweeper struct {
	txs      domain.TransactionStore
	resolver TxResolver
	cfg      SweeperConfig
	logger   *slog.Logger
}

// NewSweeper creates a Sweeper.
func NewSweeper(txs domain.TransactionStore, resolver TxResolver, cfg SweeperConfig, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		txs:      txs,
		resolver: resolver,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "tx_sweeper")),
	}
}

// Run sweeps until the context is cancelled. The first sweep runs
// immediately so a restart recovers stuck transactions without waiting a
// full interval.
func (s *Sweeper) Run(ctx context.Context) error {
	s.logger.Info("transaction sweeper started",
		slog.Duration("interval", s.cfg.Interval),
		slog.Duration("pending_timeout", s.cfg.PendingTimeout),
	)
	defer s.logger.Info("transaction sweeper stopped")

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep resolves one batch of stale pending transactions. Per-transaction
// failures are logged and skipped so one bad row cannot stall the batch.
func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.cfg.PendingTimeout)
	stale, err := s.txs.ListStalePending(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		s.logger.WarnContext(ctx, "list stale pending failed",
			slog.String("error", err.Error()),
		)
		return
	}
	if len(stale) == 0 {
		return
	}

	resolved := 0
	for _, tx := range stale {
		status, err := s.resolver.Resolve(ctx, tx.Hash)
		if err != nil {
			s.logger.WarnContext(ctx, "resolve stale transaction failed",
				slog.String("tx_hash", tx.Hash),
				slog.String("error", err.Error()),
			)
			continue
		}
		resolved++
		s.logger.InfoContext(ctx, "resolved stale transaction",
			slog.String("tx_hash", tx.Hash),
			slog.String("status", string(status)),
		)
	}

	s.logger.InfoContext(ctx, "sweep complete",
		slog.Int("stale", len(stale)),
		slog.Int("resolved", resolved),
	)
}
