package domain

import "errors"

// Domain-rule violations. These are terminal: callers surface them to the
// user and never retry automatically.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrMarketClosed      = errors.New("market is closed for trading")
	ErrAlreadySettled    = errors.New("market is already settled")
	ErrInvalidState      = errors.New("position is not claimable")
	ErrInsufficientFunds = errors.New("insufficient balance")
)

// Infrastructure failures. ErrStoreUnavailable may be retried by the caller
// with bounded backoff; the core never falls back to fabricated data.
var (
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrLockHeld         = errors.New("lock already held")
)

// Code returns a stable machine-readable code for a domain error, suitable
// for API error bodies. Unrecognized errors map to "internal".
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrMarketClosed):
		return "market_closed"
	case errors.Is(err, ErrAlreadySettled):
		return "already_settled"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, ErrLockHeld):
		return "lock_held"
	default:
		return "internal"
	}
}
