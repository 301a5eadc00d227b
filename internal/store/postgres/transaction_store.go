package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/phamdat721101/antdle-market/internal/domain"
)

// TransactionStore implements domain.TransactionStore using PostgreSQL.
type TransactionStore struct {
	pool *pgxpool.Pool
}

// NewTransactionStore creates a new TransactionStore backed by the given pool.
func NewTransactionStore(pool *pgxpool.Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

const txCols = `id, tx_hash, from_address, to_address, wallet, tx_type, side,
	amount, status, market_id, position_id, gas_used, block_number,
	created_at, updated_at`

func scanTransaction(row pgx.Row) (domain.ChainTransaction, error) {
	var t domain.ChainTransaction
	var kind, status string
	var side *string
	err := row.Scan(
		&t.ID, &t.Hash, &t.From, &t.To, &t.Wallet, &kind, &side,
		&t.Amount, &status, &t.MarketID, &t.PositionID, &t.GasUsed, &t.BlockNumber,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return domain.ChainTransaction{}, err
	}
	t.Kind = domain.TxKind(kind)
	t.Status = domain.TxStatus(status)
	if side != nil {
		s := domain.Side(*side)
		t.Side = &s
	}
	return t, nil
}

// Insert persists a new transaction record.
func (s *TransactionStore) Insert(ctx context.Context, t domain.ChainTransaction) error {
	var side *string
	if t.Side != nil {
		v := string(*t.Side)
		side = &v
	}

	const query = `
		INSERT INTO transactions (
			id, tx_hash, from_address, to_address, wallet, tx_type, side,
			amount, status, market_id, position_id, gas_used, block_number,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13,
			NOW(), NOW()
		)`

	_, err := s.pool.Exec(ctx, query,
		t.ID, t.Hash, t.From, t.To, t.Wallet, string(t.Kind), side,
		t.Amount, string(t.Status), t.MarketID, t.PositionID, t.GasUsed, t.BlockNumber,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert transaction %s: %w", t.Hash, storeErr(err))
	}
	return nil
}

// UpdateStatus resolves a pending transaction, recording the receipt fields.
// Conditional on status = 'pending' so a transaction resolves exactly once.
func (s *TransactionStore) UpdateStatus(ctx context.Context, hash string, status domain.TxStatus, gasUsed, blockNumber int64) error {
	const query = `
		UPDATE transactions
		SET status = $2, gas_used = $3, block_number = $4, updated_at = NOW()
		WHERE tx_hash = $1 AND status = 'pending'`

	tag, err := s.pool.Exec(ctx, query, hash, string(status), gasUsed, blockNumber)
	if err != nil {
		return fmt.Errorf("postgres: update transaction %s: %w", hash, storeErr(err))
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM transactions WHERE tx_hash = $1)", hash,
		).Scan(&exists); err != nil {
			return fmt.Errorf("postgres: check transaction %s: %w", hash, storeErr(err))
		}
		if !exists {
			return domain.ErrNotFound
		}
		return fmt.Errorf("transaction %s already resolved: %w", hash, domain.ErrInvalidState)
	}
	return nil
}

// GetByHash retrieves a transaction by its hash.
func (s *TransactionStore) GetByHash(ctx context.Context, hash string) (domain.ChainTransaction, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+txCols+` FROM transactions WHERE tx_hash = $1`, hash)
	t, err := scanTransaction(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.ChainTransaction{}, domain.ErrNotFound
		}
		return domain.ChainTransaction{}, fmt.Errorf("postgres: get transaction %s: %w", hash, storeErr(err))
	}
	return t, nil
}

func (s *TransactionStore) list(ctx context.Context, query string, args []any, opts domain.ListOpts) ([]domain.ChainTransaction, error) {
	argIdx := len(args) + 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list transactions: %w", storeErr(err))
	}
	defer rows.Close()

	var txs []domain.ChainTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan transaction: %w", storeErr(err))
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list transactions rows: %w", storeErr(err))
	}
	return txs, nil
}

// ListByWallet returns a wallet's transactions, newest first.
func (s *TransactionStore) ListByWallet(ctx context.Context, wallet string, opts domain.ListOpts) ([]domain.ChainTransaction, error) {
	return s.list(ctx,
		`SELECT `+txCols+` FROM transactions WHERE wallet = $1`,
		[]any{wallet}, opts)
}

// ListByMarket returns a market's transactions, newest first.
func (s *TransactionStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.ChainTransaction, error) {
	return s.list(ctx,
		`SELECT `+txCols+` FROM transactions WHERE market_id = $1`,
		[]any{marketID}, opts)
}

// ListStalePending returns pending transactions created before the cutoff,
// oldest first, for the sweep worker.
func (s *TransactionStore) ListStalePending(ctx context.Context, before time.Time, limit int) ([]domain.ChainTransaction, error) {
	query := `SELECT ` + txCols + ` FROM transactions
		WHERE status = 'pending' AND created_at < $1
		ORDER BY created_at ASC`
	args := []any{before}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list stale pending transactions: %w", storeErr(err))
	}
	defer rows.Close()

	var txs []domain.ChainTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan stale transaction: %w", storeErr(err))
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list stale pending rows: %w", storeErr(err))
	}
	return txs, nil
}

// ListBefore returns resolved transactions created before the cutoff, oldest
// first, for archival.
func (s *TransactionStore) ListBefore(ctx context.Context, before time.Time) ([]domain.ChainTransaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+txCols+` FROM transactions
		WHERE status <> 'pending' AND created_at < $1
		ORDER BY created_at ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list transactions before %s: %w", before, storeErr(err))
	}
	defer rows.Close()

	var txs []domain.ChainTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan archived transaction: %w", storeErr(err))
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list transactions before rows: %w", storeErr(err))
	}
	return txs, nil
}

// DeleteByID removes exactly the given transactions. Used by the archiver
// after a successful upload, scoped to the rows it exported.
func (s *TransactionStore) DeleteByID(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM transactions WHERE id = ANY($1)", ids)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete transactions: %w", storeErr(err))
	}
	return tag.RowsAffected(), nil
}
