package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/phamdat721101/antdle-market/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *pgxpool.Pool
}

// NewPositionStore creates a new PositionStore backed by the given pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Place inserts a position and increments the owning market's pool for the
// chosen side inside one database transaction. The pool update is a relative
// increment guarded by status = 'active', so concurrent trades never lose
// updates and a trade racing a settlement either fully applies before it or
// fails with ErrMarketClosed.
func (s *PositionStore) Place(ctx context.Context, pos domain.Position) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin place tx: %w", storeErr(err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	poolCol := "yes_pool"
	if pos.Side == domain.SideNo {
		poolCol = "no_pool"
	}

	tag, err := tx.Exec(ctx, fmt.Sprintf(`
		UPDATE markets
		SET %s = %s + $2, updated_at = NOW()
		WHERE id = $1 AND status = 'active'`, poolCol, poolCol),
		pos.MarketID, pos.Amount,
	)
	if err != nil {
		return fmt.Errorf("postgres: increment pool for market %s: %w", pos.MarketID, storeErr(err))
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM markets WHERE id = $1)", pos.MarketID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("postgres: check market %s: %w", pos.MarketID, storeErr(err))
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrMarketClosed
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO positions (id, market_id, wallet, side, amount, claimed, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, NOW())`,
		pos.ID, pos.MarketID, pos.Wallet, string(pos.Side), pos.Amount,
	); err != nil {
		return fmt.Errorf("postgres: insert position %s: %w", pos.ID, storeErr(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit place tx: %w", storeErr(err))
	}
	return nil
}

// GetByID retrieves a position by its primary key.
func (s *PositionStore) GetByID(ctx context.Context, id string) (domain.Position, error) {
	var p domain.Position
	var side string
	err := s.pool.QueryRow(ctx, `
		SELECT id, market_id, wallet, side, amount, claimed, created_at
		FROM positions WHERE id = $1`, id,
	).Scan(&p.ID, &p.MarketID, &p.Wallet, &side, &p.Amount, &p.Claimed, &p.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("postgres: get position %s: %w", id, storeErr(err))
	}
	p.Side = domain.Side(side)
	return p, nil
}

// ListByWallet returns a wallet's positions joined with the market fields the
// claim flow needs, newest first.
func (s *PositionStore) ListByWallet(ctx context.Context, wallet string, opts domain.ListOpts) ([]domain.PositionWithMarket, error) {
	query := `
		SELECT p.id, p.market_id, p.wallet, p.side, p.amount, p.claimed, p.created_at,
		       m.asset_name, m.strike_price, m.status, m.expiry_at, m.settled_price
		FROM positions p
		JOIN markets m ON m.id = p.market_id
		WHERE p.wallet = $1
		ORDER BY p.created_at DESC`
	args := []any{wallet}
	argIdx := 2

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
		return nil, fmt.Errorf("postgres: list positions for %s: %w", wallet, storeErr(err))
	}
	defer rows.Close()

	var positions []domain.PositionWithMarket
	for rows.Next() {
		var p domain.PositionWithMarket
		var side, marketStatus string
		if err := rows.Scan(
			&p.ID, &p.MarketID, &p.Wallet, &side, &p.Amount, &p.Claimed, &p.CreatedAt,
			&p.AssetName, &p.StrikePrice, &marketStatus, &p.ExpiryAt, &p.SettledPrice,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan position: %w", storeErr(err))
		}
		p.Side = domain.Side(side)
		p.MarketStatus = domain.MarketStatus(marketStatus)
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list positions rows: %w", storeErr(err))
	}
	return positions, nil
}

// ListByMarket returns all positions on a market, newest first.
func (s *PositionStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Position, error) {
	query := `
		SELECT id, market_id, wallet, side, amount, claimed, created_at
		FROM positions
		WHERE market_id = $1
		ORDER BY created_at DESC`
	args := []any{marketID}
	argIdx := 2

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
		return nil, fmt.Errorf("postgres: list positions for market %s: %w", marketID, storeErr(err))
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		var p domain.Position
		var side string
		if err := rows.Scan(&p.ID, &p.MarketID, &p.Wallet, &side, &p.Amount, &p.Claimed, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan position: %w", storeErr(err))
		}
		p.Side = domain.Side(side)
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list positions rows: %w", storeErr(err))
	}
	return positions, nil
}

// MarkClaimed flips claimed from false to true. The WHERE clause makes the
// flip first-writer-wins: a repeated claim matches zero rows and is reported
// as ErrInvalidState (or ErrNotFound when the position never existed).
func (s *PositionStore) MarkClaimed(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE positions SET claimed = TRUE WHERE id = $1 AND claimed = FALSE", id)
	if err != nil {
		return fmt.Errorf("postgres: mark position %s claimed: %w", id, storeErr(err))
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM positions WHERE id = $1)", id,
		).Scan(&exists); err != nil {
			return fmt.Errorf("postgres: check position %s: %w", id, storeErr(err))
		}
		if !exists {
			return domain.ErrNotFound
		}
		return fmt.Errorf("position %s already claimed: %w", id, domain.ErrInvalidState)
	}
	return nil
}
