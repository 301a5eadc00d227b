package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/phamdat721101/antdle-market/internal/domain"
)

// BalanceStore implements domain.BalanceStore using PostgreSQL.
type BalanceStore struct {
	pool *pgxpool.Pool
}

// NewBalanceStore creates a new BalanceStore backed by the given pool.
func NewBalanceStore(pool *pgxpool.Pool) *BalanceStore {
	return &BalanceStore{pool: pool}
}

// Get returns a wallet's balance for one token.
func (s *BalanceStore) Get(ctx context.Context, wallet, token string) (domain.Balance, error) {
	var b domain.Balance
	err := s.pool.QueryRow(ctx, `
		SELECT wallet, token, amount, updated_at
		FROM balances WHERE wallet = $1 AND token = $2`, wallet, token,
	).Scan(&b.Wallet, &b.Token, &b.Amount, &b.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Balance{}, domain.ErrNotFound
		}
		return domain.Balance{}, fmt.Errorf("postgres: get balance %s/%s: %w", wallet, token, storeErr(err))
	}
	return b, nil
}

// Credit adds amount to the balance, creating the row when absent.
func (s *BalanceStore) Credit(ctx context.Context, wallet, token string, amount float64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO balances (wallet, token, amount, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (wallet, token)
		DO UPDATE SET amount = balances.amount + EXCLUDED.amount, updated_at = NOW()`,
		wallet, token, amount,
	)
	if err != nil {
		return fmt.Errorf("postgres: credit %s/%s: %w", wallet, token, storeErr(err))
	}
	return nil
}

// Debit subtracts amount from the balance. The WHERE clause guards against
// overdraft: a debit that would go negative matches zero rows and is reported
// as ErrInsufficientFunds.
func (s *BalanceStore) Debit(ctx context.Context, wallet, token string, amount float64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE balances
		SET amount = amount - $3, updated_at = NOW()
		WHERE wallet = $1 AND token = $2 AND amount >= $3`,
		wallet, token, amount,
	)
	if err != nil {
		return fmt.Errorf("postgres: debit %s/%s: %w", wallet, token, storeErr(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("debit %v %s from %s: %w", amount, token, wallet, domain.ErrInsufficientFunds)
	}
	return nil
}
