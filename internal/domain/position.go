package domain

import "time"

// Position is a single user's stake on one side of one market.
//
// Invariant: Claimed may only transition false -> true, only after the owning
// market has settled, and only when the position is on the winning side.
type Position struct {
	ID        string    `json:"id"`
	MarketID  string    `json:"market_id"`
	Wallet    string    `json:"wallet_address"`
	Side      Side      `json:"side"`
	Amount    float64   `json:"amount"`
	Claimed   bool      `json:"claimed"`
	CreatedAt time.Time `json:"created_at"`
}

// PositionOutcome classifies a position against its market's settlement.
type PositionOutcome string

const (
	OutcomePending PositionOutcome = "pending"
	OutcomeWin     PositionOutcome = "win"
	OutcomeLoss    PositionOutcome = "loss"
)

// PositionWithMarket is a position joined with the market fields the UI and
// the claim flow need. Produced by PositionStore.ListByWallet.
type PositionWithMarket struct {
	Position
	AssetName    string       `json:"asset_name"`
	StrikePrice  float64      `json:"strike_price"`
	MarketStatus MarketStatus `json:"market_status"`
	ExpiryAt     time.Time    `json:"expiry_timestamp"`
	SettledPrice *float64     `json:"settled_price"`

	// Outcome is filled by the service layer from the settlement evaluator;
	// the store leaves it empty.
	Outcome PositionOutcome `json:"outcome"`
}
