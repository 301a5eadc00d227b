package s3blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phamdat721101/antdle-market/internal/domain"
)

type recordingWriter struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{objects: map[string][]byte{}}
}

func (w *recordingWriter) Put(_ context.Context, path string, data io.Reader, _ string) error {
	if w.err != nil {
		return w.err
	}
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.objects[path] = buf
	return nil
}

func (w *recordingWriter) PutMultipart(ctx context.Context, path string, data io.Reader, _ int64) error {
	return w.Put(ctx, path, data, "")
}

type archiveTxStore struct {
	domain.TransactionStore
	rows    []domain.ChainTransaction
	deleted []string
}

func (s *archiveTxStore) ListBefore(_ context.Context, before time.Time) ([]domain.ChainTransaction, error) {
	var out []domain.ChainTransaction
	for _, tx := range s.rows {
		if tx.CreatedAt.Before(before) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *archiveTxStore) DeleteByID(_ context.Context, ids []string) (int64, error) {
	s.deleted = append(s.deleted, ids...)
	return int64(len(ids)), nil
}

type archiveAuditStore struct {
	domain.AuditStore
	rows    []domain.AuditEntry
	deleted []int64
	events  []string
}

func (s *archiveAuditStore) ListBefore(_ context.Context, before time.Time) ([]domain.AuditEntry, error) {
	var out []domain.AuditEntry
	for _, e := range s.rows {
		if e.CreatedAt.Before(before) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *archiveAuditStore) DeleteByID(_ context.Context, ids []int64) (int64, error) {
	s.deleted = append(s.deleted, ids...)
	return int64(len(ids)), nil
}

func (s *archiveAuditStore) Log(_ context.Context, event string, _ map[string]any) error {
	s.events = append(s.events, event)
	return nil
}

func TestArchiveTransactionsDeletesOnlyExported(t *testing.T) {
	cutoff := time.Date(2026, 8, 6, 9, 0, 0, 0, time.UTC)
	txs := &archiveTxStore{rows: []domain.ChainTransaction{
		{ID: "t1", Hash: "0xaaa", CreatedAt: cutoff.Add(-48 * time.Hour)},
		{ID: "t2", Hash: "0xbbb", CreatedAt: cutoff.Add(-24 * time.Hour)},
		{ID: "t3", Hash: "0xccc", CreatedAt: cutoff.Add(time.Hour)},
	}}
	writer := newRecordingWriter()
	audit := &archiveAuditStore{}

	path, count, err := NewArchiver(writer, txs, audit).
		ArchiveTransactions(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	body := string(writer.objects[path])
	assert.Contains(t, body, "0xaaa")
	assert.Contains(t, body, "0xbbb")
	assert.NotContains(t, body, "0xccc")

	assert.Equal(t, []string{"t1", "t2"}, txs.deleted)
	assert.Equal(t, []string{"archive.transactions"}, audit.events)
}

func TestArchiveAuditLogDeletesOnlyExported(t *testing.T) {
	cutoff := time.Date(2026, 8, 6, 9, 0, 0, 0, time.UTC)
	audit := &archiveAuditStore{rows: []domain.AuditEntry{
		{ID: 1, Event: "trade_placed", CreatedAt: cutoff.Add(-time.Hour)},
		{ID: 2, Event: "market_settled", CreatedAt: cutoff.Add(time.Hour)},
	}}
	writer := newRecordingWriter()

	path, count, err := NewArchiver(writer, &archiveTxStore{}, audit).
		ArchiveAuditLog(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Contains(t, string(writer.objects[path]), "trade_placed")
	assert.Equal(t, []int64{1}, audit.deleted)
}

func TestArchivePathsDistinctPerRun(t *testing.T) {
	first := archivePath("transactions", time.Date(2026, 8, 5, 3, 0, 0, 0, time.UTC))
	second := archivePath("transactions", time.Date(2026, 8, 6, 3, 0, 0, 0, time.UTC))

	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasPrefix(first, "archive/transactions/2026-08/"))
}

func TestArchiveTransactionsNothingToExport(t *testing.T) {
	writer := newRecordingWriter()

	path, count, err := NewArchiver(writer, &archiveTxStore{}, &archiveAuditStore{}).
		ArchiveTransactions(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Zero(t, count)
	assert.Empty(t, writer.objects)
}

func TestArchiveTransactionsUploadFailureKeepsRows(t *testing.T) {
	cutoff := time.Now().UTC()
	txs := &archiveTxStore{rows: []domain.ChainTransaction{
		{ID: "t1", CreatedAt: cutoff.Add(-time.Hour)},
	}}
	writer := newRecordingWriter()
	writer.err = errors.New("bucket unreachable")

	_, _, err := NewArchiver(writer, txs, &archiveAuditStore{}).
		ArchiveTransactions(context.Background(), cutoff)
	require.Error(t, err)
	assert.Empty(t, txs.deleted)
}
