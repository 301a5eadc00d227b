package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/phamdat721101/antdle-market/internal/domain"
)

// PriceStore implements domain.PriceStore using PostgreSQL.
type PriceStore struct {
	pool *pgxpool.Pool
}

// NewPriceStore creates a new PriceStore backed by the given pool.
func NewPriceStore(pool *pgxpool.Pool) *PriceStore {
	return &PriceStore{pool: pool}
}

// Insert appends a price observation.
func (s *PriceStore) Insert(ctx context.Context, p domain.PricePoint) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO price_feeds (asset_name, price, ts) VALUES ($1, $2, $3)",
		p.AssetName, p.Price, p.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert price for %s: %w", p.AssetName, storeErr(err))
	}
	return nil
}

// Latest returns the most recent price observation for an asset.
func (s *PriceStore) Latest(ctx context.Context, assetName string) (domain.PricePoint, error) {
	var p domain.PricePoint
	err := s.pool.QueryRow(ctx, `
		SELECT id, asset_name, price, ts
		FROM price_feeds
		WHERE asset_name = $1
		ORDER BY ts DESC
		LIMIT 1`, assetName,
	).Scan(&p.ID, &p.AssetName, &p.Price, &p.Timestamp)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.PricePoint{}, domain.ErrNotFound
		}
		return domain.PricePoint{}, fmt.Errorf("postgres: latest price for %s: %w", assetName, storeErr(err))
	}
	return p, nil
}
