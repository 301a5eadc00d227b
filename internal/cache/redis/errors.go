package redis

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/phamdat721101/antdle-market/internal/domain"
)

// cacheErr classifies a driver error: a missing key becomes ErrNotFound,
// anything else is tagged ErrStoreUnavailable so callers can separate
// retryable infrastructure failures from domain-rule violations.
func cacheErr(err error) error {
	if errors.Is(err, redis.Nil) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%v: %w", err, domain.ErrStoreUnavailable)
}
