package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phamdat721101/antdle-market/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// staleTxStore stubs only the methods the sweeper touches.
type staleTxStore struct {
	domain.TransactionStore

	stale []domain.ChainTransaction
	err   error

	gotBefore time.Time
	gotLimit  int
}

func (s *staleTxStore) ListStalePending(_ context.Context, before time.Time, limit int) ([]domain.ChainTransaction, error) {
	s.gotBefore = before
	s.gotLimit = limit
	return s.stale, s.err
}

type recordingResolver struct {
	hashes []string
	failOn string
}

func (r *recordingResolver) Resolve(_ context.Context, hash string) (domain.TxStatus, error) {
	if hash == r.failOn {
		return "", errors.New("boom")
	}
	r.hashes = append(r.hashes, hash)
	return domain.TxStatusConfirmed, nil
}

func TestSweepResolvesStaleTransactions(t *testing.T) {
	store := &staleTxStore{stale: []domain.ChainTransaction{
		{Hash: "0xaaa"},
		{Hash: "0xbbb"},
	}}
	resolver := &recordingResolver{}
	s := NewSweeper(store, resolver, SweeperConfig{
		Interval:       time.Minute,
		PendingTimeout: 5 * time.Minute,
		BatchSize:      50,
	}, discardLogger())

	s.sweep(context.Background())

	assert.Equal(t, []string{"0xaaa", "0xbbb"}, resolver.hashes)
	assert.Equal(t, 50, store.gotLimit)
	assert.WithinDuration(t, time.Now().UTC().Add(-5*time.Minute), store.gotBefore, time.Second)
}

func TestSweepSkipsFailedResolves(t *testing.T) {
	store := &staleTxStore{stale: []domain.ChainTransaction{
		{Hash: "0xaaa"},
		{Hash: "0xbad"},
		{Hash: "0xccc"},
	}}
	resolver := &recordingResolver{failOn: "0xbad"}
	s := NewSweeper(store, resolver, SweeperConfig{
		Interval:       time.Minute,
		PendingTimeout: time.Minute,
		BatchSize:      10,
	}, discardLogger())

	s.sweep(context.Background())

	assert.Equal(t, []string{"0xaaa", "0xccc"}, resolver.hashes, "one bad row must not stall the batch")
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	store := &staleTxStore{}
	s := NewSweeper(store, &recordingResolver{}, SweeperConfig{
		Interval:       10 * time.Millisecond,
		PendingTimeout: time.Minute,
		BatchSize:      10,
	}, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type fakeArchiver struct {
	txCutoff    time.Time
	auditCutoff time.Time
	txErr       error
}

func (f *fakeArchiver) ArchiveTransactions(_ context.Context, before time.Time) (string, int, error) {
	f.txCutoff = before
	if f.txErr != nil {
		return "", 0, f.txErr
	}
	return "archive/transactions/2026-08.jsonl", 3, nil
}

func (f *fakeArchiver) ArchiveAuditLog(_ context.Context, before time.Time) (string, int, error) {
	f.auditCutoff = before
	return "archive/audit/2026-08.jsonl", 1, nil
}

func TestArchiveRunOnce(t *testing.T) {
	fa := &fakeArchiver{}
	r := NewArchiveRunner(fa, ArchiveConfig{
		Interval:      time.Hour,
		RetentionDays: 30,
	}, discardLogger())

	require.NoError(t, r.RunOnce(context.Background()))

	wantCutoff := time.Now().UTC().Add(-30 * 24 * time.Hour)
	assert.WithinDuration(t, wantCutoff, fa.txCutoff, time.Second)
	assert.WithinDuration(t, wantCutoff, fa.auditCutoff, time.Second)
}

func TestArchiveRunOncePropagatesErrors(t *testing.T) {
	fa := &fakeArchiver{txErr: errors.New("s3 down")}
	r := NewArchiveRunner(fa, ArchiveConfig{Interval: time.Hour, RetentionDays: 7}, discardLogger())

	err := r.RunOnce(context.Background())
	require.Error(t, err)
	assert.True(t, fa.auditCutoff.IsZero(), "audit archive must not run after a transaction failure")
}
