package domain

import (
	"context"
	"time"
)

// TxKind categorizes a simulated chain transaction.
type TxKind string

const (
	TxKindTrade        TxKind = "trade"
	TxKindClaim        TxKind = "claim"
	TxKindSwap         TxKind = "swap"
	TxKindCreateMarket TxKind = "create_market"
)

// TxStatus is the lifecycle state of a simulated chain transaction.
// Transactions are created pending and resolve exactly once to confirmed or
// failed; there is no automatic retry.
type TxStatus string

const (
	TxStatusPending   TxStatus = "pending"
	TxStatusConfirmed TxStatus = "confirmed"
	TxStatusFailed    TxStatus = "failed"
)

// ChainTransaction is a record of a simulated on-chain submission. It stands
// in for a real wallet/contract call: the hash is fabricated and the
// confirmation is produced by a timer, not a chain.
type ChainTransaction struct {
	ID          string    `json:"id"`
	Hash        string    `json:"tx_hash"`
	From        string    `json:"from_address"`
	To          string    `json:"to_address"`
	Wallet      string    `json:"wallet_address"`
	Kind        TxKind    `json:"tx_type"`
	Side        *Side     `json:"position_type,omitempty"`
	Amount      float64   `json:"amount"`
	Status      TxStatus  `json:"status"`
	MarketID    *string   `json:"market_id,omitempty"`
	PositionID  *string   `json:"position_id,omitempty"`
	GasUsed     int64     `json:"gas_used"`
	BlockNumber int64     `json:"block_number"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Submitter issues simulated chain transactions. Submit assigns a transaction
// hash, persists the record with status pending, and returns immediately; the
// transaction resolves to confirmed or failed in the background. Callers that
// care about the outcome subscribe to the "transactions" signal channel or
// poll the TransactionStore by hash.
type Submitter interface {
	Submit(ctx context.Context, tx ChainTransaction) (ChainTransaction, error)
}
