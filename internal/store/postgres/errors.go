package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/phamdat721101/antdle-market/internal/domain"
)

// storeErr classifies a driver error: a missing row becomes ErrNotFound,
// anything else is tagged ErrStoreUnavailable so callers can separate
// retryable infrastructure failures from domain-rule violations.
func storeErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%v: %w", err, domain.ErrStoreUnavailable)
}
