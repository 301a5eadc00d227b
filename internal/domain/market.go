package domain

import "time"

// MarketStatus represents the lifecycle state of a prediction market.
type MarketStatus string

const (
	MarketStatusActive  MarketStatus = "active"
	MarketStatusSettled MarketStatus = "settled"
)

// Side is one of the two outcomes of a market.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// Valid reports whether s is one of the two known sides.
func (s Side) Valid() bool {
	return s == SideYes || s == SideNo
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

// Market is a yes/no proposition on whether an asset's price exceeds a strike
// price by an expiry time. Pools hold the aggregate stake per side.
//
// Invariant: SettledPrice is non-nil if and only if Status is settled. The
// active -> settled transition happens exactly once and is irreversible.
type Market struct {
	ID           string       `json:"id"`
	AssetName    string       `json:"asset_name"`
	Description  string       `json:"description,omitempty"`
	StrikePrice  float64      `json:"strike_price"`
	ExpiryAt     time.Time    `json:"expiry_timestamp"`
	YesPool      float64      `json:"yes_pool"`
	NoPool       float64      `json:"no_pool"`
	Status       MarketStatus `json:"status"`
	SettledPrice *float64     `json:"settled_price"`
	Creator      string       `json:"creator_address,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Expired reports whether the market's expiry time has passed at now.
func (m Market) Expired(now time.Time) bool {
	return !now.Before(m.ExpiryAt)
}

// Pool returns the staked total for the given side.
func (m Market) Pool(side Side) float64 {
	if side == SideYes {
		return m.YesPool
	}
	return m.NoPool
}
