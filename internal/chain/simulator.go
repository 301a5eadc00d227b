// Package chain simulates an on-chain transaction pipeline. Submissions get
// a fabricated transaction hash and resolve to confirmed or failed after a
// bounded random delay; no real chain is involved.
package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/phamdat721101/antdle-market/internal/domain"
)

// Simulated receipt bounds, matching typical L2 transfer receipts.
const (
	gasMin   = 21000
	gasMax   = 100000
	blockMin = 1_000_000
	blockMax = 2_000_000
)

// Config tunes the simulator.
type Config struct {
	// Operator is the house address used as the counterparty on every
	// simulated transaction.
	Operator string
	// ChainID is included in published events for display purposes.
	ChainID int
	// MinConfirmDelay and MaxConfirmDelay bound the time between submission
	// and resolution.
	MinConfirmDelay time.Duration
	MaxConfirmDelay time.Duration
	// FailureRate is the probability in [0,1] that a submission resolves to
	// failed instead of confirmed.
	FailureRate float64
	// Seed seeds the random source; zero means time-seeded.
	Seed int64
}

// Simulator implements domain.Submitter. Submit persists a pending record and
// returns immediately; a background timer resolves it exactly once.
type Simulator struct {
	txs    domain.TransactionStore
	bus    domain.SignalBus
	logger *slog.Logger
	cfg    Config

	mu  sync.Mutex
	rng *rand.Rand
	wg  sync.WaitGroup
}

// NewSimulator creates a Simulator with all required dependencies.
func NewSimulator(txs domain.TransactionStore, bus domain.SignalBus, logger *slog.Logger, cfg Config) *Simulator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulator{
		txs:    txs,
		bus:    bus,
		logger: logger,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Submit assigns an ID and transaction hash, persists the record with status
// pending, publishes a pending event, and schedules background resolution.
// The returned transaction reflects the persisted pending state.
func (s *Simulator) Submit(ctx context.Context, tx domain.ChainTransaction) (domain.ChainTransaction, error) {
	if tx.Wallet == "" {
		return domain.ChainTransaction{}, fmt.Errorf("chain: submit without wallet: %w", domain.ErrInvalidState)
	}

	now := time.Now().UTC()
	tx.ID = uuid.New().String()
	tx.Hash = fabricateHash(tx.ID, tx.Wallet, now)
	tx.From = tx.Wallet
	tx.To = s.cfg.Operator
	tx.Status = domain.TxStatusPending
	tx.GasUsed = 0
	tx.BlockNumber = 0
	tx.CreatedAt = now
	tx.UpdatedAt = now

	if err := s.txs.Insert(ctx, tx); err != nil {
		return domain.ChainTransaction{}, fmt.Errorf("chain: persist submission: %w", err)
	}

	s.publishEvent(ctx, tx)

	delay := s.confirmDelay()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		<-timer.C

		// The caller's context is likely gone by now; resolution gets its
		// own deadline.
		resolveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := s.Resolve(resolveCtx, tx.Hash); err != nil {
			s.logger.WarnContext(resolveCtx, "chain: resolve failed",
				slog.String("tx_hash", tx.Hash),
				slog.String("error", err.Error()),
			)
		}
	}()

	s.logger.InfoContext(ctx, "chain: transaction submitted",
		slog.String("tx_hash", tx.Hash),
		slog.String("tx_type", string(tx.Kind)),
		slog.String("wallet", tx.Wallet),
		slog.Duration("confirm_delay", delay),
	)

	return tx, nil
}

// Resolve settles a pending transaction to its terminal status, rolling the
// outcome and receipt fields. A transaction that has already resolved is
// reported as domain.ErrInvalidState by the store; resolution happens exactly
// once. The sweep worker calls this directly for transactions whose timer was
// lost to a process restart.
func (s *Simulator) Resolve(ctx context.Context, hash string) (domain.TxStatus, error) {
	status, gasUsed, blockNumber := s.rollReceipt()

	if err := s.txs.UpdateStatus(ctx, hash, status, gasUsed, blockNumber); err != nil {
		return "", fmt.Errorf("chain: update %s: %w", hash, err)
	}

	tx, err := s.txs.GetByHash(ctx, hash)
	if err != nil {
		return "", fmt.Errorf("chain: load resolved %s: %w", hash, err)
	}
	s.publishEvent(ctx, tx)

	s.logger.InfoContext(ctx, "chain: transaction resolved",
		slog.String("tx_hash", hash),
		slog.String("status", string(status)),
		slog.Int64("block_number", blockNumber),
	)

	return status, nil
}

// Wait blocks until all scheduled resolutions have completed. Used during
// shutdown and in tests.
func (s *Simulator) Wait() {
	s.wg.Wait()
}

func (s *Simulator) confirmDelay() time.Duration {
	min, max := s.cfg.MinConfirmDelay, s.cfg.MaxConfirmDelay
	if max <= min {
		return min
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return min + time.Duration(s.rng.Int63n(int64(max-min)))
}

func (s *Simulator) rollReceipt() (domain.TxStatus, int64, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := domain.TxStatusConfirmed
	if s.rng.Float64() < s.cfg.FailureRate {
		status = domain.TxStatusFailed
	}
	gasUsed := gasMin + s.rng.Int63n(gasMax-gasMin+1)
	blockNumber := blockMin + s.rng.Int63n(blockMax-blockMin+1)
	return status, gasUsed, blockNumber
}

func (s *Simulator) publishEvent(ctx context.Context, tx domain.ChainTransaction) {
	evt, _ := json.Marshal(map[string]any{
		"event":     "transaction_" + string(tx.Status),
		"tx_hash":   tx.Hash,
		"tx_type":   string(tx.Kind),
		"wallet":    tx.Wallet,
		"amount":    tx.Amount,
		"status":    string(tx.Status),
		"chain_id":  s.cfg.ChainID,
		"timestamp": tx.UpdatedAt.Format(time.RFC3339),
	})
	if err := s.bus.Publish(ctx, "transactions", evt); err != nil {
		s.logger.WarnContext(ctx, "chain: publish event failed",
			slog.String("tx_hash", tx.Hash),
			slog.String("error", err.Error()),
		)
	}
	// Streams keep a capped replay buffer for consumers that connect late;
	// pub/sub alone drops events with no subscriber.
	if err := s.bus.StreamAppend(ctx, "stream:transactions", evt); err != nil {
		s.logger.WarnContext(ctx, "chain: stream append failed",
			slog.String("tx_hash", tx.Hash),
			slog.String("error", err.Error()),
		)
	}
}

// fabricateHash produces a deterministic, well-formed 32-byte transaction
// hash from the submission's identity. Keccak-256 keeps it indistinguishable
// from a real hash at a glance.
func fabricateHash(id, wallet string, ts time.Time) string {
	payload := fmt.Sprintf("%s|%s|%d", id, wallet, ts.UnixNano())
	return crypto.Keccak256Hash([]byte(payload)).Hex()
}

// Compile-time interface check.
var _ domain.Submitter = (*Simulator)(nil)
