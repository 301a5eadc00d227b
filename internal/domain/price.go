package domain

import "time"

// PricePoint is a single observation from the price feed for one asset.
type PricePoint struct {
	ID        int64     `json:"id"`
	AssetName string    `json:"asset_name"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// Balance is a wallet's holding of one token.
type Balance struct {
	Wallet    string    `json:"wallet_address"`
	Token     string    `json:"token"`
	Amount    float64   `json:"amount"`
	UpdatedAt time.Time `json:"updated_at"`
}
