package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"

	"github.com/phamdat721101/antdle-market/internal/domain"
)

func TestStoreErrClassification(t *testing.T) {
	assert.ErrorIs(t, storeErr(pgx.ErrNoRows), domain.ErrNotFound)

	err := storeErr(errors.New("connection refused"))
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "connection refused")
}
