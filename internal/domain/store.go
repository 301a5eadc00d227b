package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// MarketStore persists prediction markets.
type MarketStore interface {
	Create(ctx context.Context, market Market) error
	GetByID(ctx context.Context, id string) (Market, error)
	// List returns markets filtered by status; an empty status returns all.
	List(ctx context.Context, status MarketStatus, opts ListOpts) ([]Market, error)
	// ListExpiredActive returns active markets whose expiry has passed,
	// i.e. markets that are ready to settle.
	ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]Market, error)
	// Settle transitions a market from active to settled and records the
	// settlement price. The update is conditional on status='active'; it
	// returns ErrAlreadySettled when the market exists but is not active,
	// and ErrNotFound when no such market exists.
	Settle(ctx context.Context, id string, price float64) error
	Count(ctx context.Context) (int64, error)
}

// PositionStore persists user positions.
type PositionStore interface {
	// Place inserts a position and increments the owning market's pool for
	// the chosen side in a single database transaction. The pool update is
	// conditional on the market still being active, so concurrent trades
	// never lose updates and trades on settled markets never half-apply.
	// Returns ErrMarketClosed when the market is not active.
	Place(ctx context.Context, pos Position) error
	GetByID(ctx context.Context, id string) (Position, error)
	ListByWallet(ctx context.Context, wallet string, opts ListOpts) ([]PositionWithMarket, error)
	ListByMarket(ctx context.Context, marketID string, opts ListOpts) ([]Position, error)
	// MarkClaimed flips claimed from false to true. The update is
	// conditional on claimed=false; it returns ErrInvalidState when the
	// position was already claimed and ErrNotFound when it does not exist.
	MarkClaimed(ctx context.Context, id string) error
}

// TransactionStore persists simulated chain transactions.
type TransactionStore interface {
	Insert(ctx context.Context, tx ChainTransaction) error
	// UpdateStatus resolves a pending transaction, recording the simulated
	// receipt fields. Conditional on status='pending'.
	UpdateStatus(ctx context.Context, hash string, status TxStatus, gasUsed, blockNumber int64) error
	GetByHash(ctx context.Context, hash string) (ChainTransaction, error)
	ListByWallet(ctx context.Context, wallet string, opts ListOpts) ([]ChainTransaction, error)
	ListByMarket(ctx context.Context, marketID string, opts ListOpts) ([]ChainTransaction, error)
	// ListStalePending returns pending transactions created before the
	// cutoff, oldest first, for the claim worker to sweep.
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]ChainTransaction, error)
	// ListBefore returns resolved transactions created before the cutoff,
	// for archival.
	ListBefore(ctx context.Context, before time.Time) ([]ChainTransaction, error)
	// DeleteByID removes exactly the given transactions. The archiver passes
	// the IDs it exported, so a transaction that resolves between the list
	// and the delete is never dropped unexported.
	DeleteByID(ctx context.Context, ids []string) (int64, error)
}

// PriceStore persists price feed observations.
type PriceStore interface {
	Insert(ctx context.Context, p PricePoint) error
	Latest(ctx context.Context, assetName string) (PricePoint, error)
}

// BalanceStore persists per-wallet token balances.
type BalanceStore interface {
	Get(ctx context.Context, wallet, token string) (Balance, error)
	// Credit adds amount to the balance, creating the row when absent.
	Credit(ctx context.Context, wallet, token string, amount float64) error
	// Debit subtracts amount; conditional on a sufficient balance.
	// Returns ErrInsufficientFunds when the balance would go negative.
	Debit(ctx context.Context, wallet, token string, amount float64) error
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
	// ListBefore returns entries created before the cutoff, oldest first,
	// for archival.
	ListBefore(ctx context.Context, before time.Time) ([]AuditEntry, error)
	// DeleteByID removes exactly the given entries. Called by the archiver
	// with the IDs it exported, only after a successful upload.
	DeleteByID(ctx context.Context, ids []int64) (int64, error)
}
