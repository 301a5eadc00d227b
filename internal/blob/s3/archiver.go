package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/phamdat721101/antdle-market/internal/domain"
)

// Archiver implements domain.Archiver. It exports rows older than a cutoff
// as JSON Lines objects, uploads them to the blob store, and then deletes
// exactly the exported rows from the database.
type Archiver struct {
	writer domain.BlobWriter
	txs    domain.TransactionStore
	audit  domain.AuditStore
}

var _ domain.Archiver = (*Archiver)(nil)

// NewArchiver creates an Archiver backed by the given writer and stores.
func NewArchiver(writer domain.BlobWriter, txs domain.TransactionStore, audit domain.AuditStore) *Archiver {
	return &Archiver{
		writer: writer,
		txs:    txs,
		audit:  audit,
	}
}

// ArchiveTransactions exports transactions created before the cutoff,
// uploads them under archive/transactions/, and deletes the exported rows
// from the database. It returns the object path and the number of rows
// archived. When nothing is older than the cutoff it returns an empty path
// and zero.
func (a *Archiver) ArchiveTransactions(ctx context.Context, before time.Time) (string, int, error) {
	rows, err := a.txs.ListBefore(ctx, before)
	if err != nil {
		return "", 0, fmt.Errorf("s3blob: list transactions before %v: %w", before, err)
	}
	if len(rows) == 0 {
		return "", 0, nil
	}

	buf, err := marshalJSONL(rows)
	if err != nil {
		return "", 0, fmt.Errorf("s3blob: marshal transactions: %w", err)
	}

	path := archivePath("transactions", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return "", 0, err
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	deleted, err := a.txs.DeleteByID(ctx, ids)
	if err != nil {
		return "", 0, fmt.Errorf("s3blob: delete archived transactions: %w", err)
	}

	a.logArchive(ctx, "archive.transactions", path, before, deleted)
	return path, len(rows), nil
}

// ArchiveAuditLog exports audit entries created before the cutoff, uploads
// them under archive/audit/, and deletes the exported rows from the
// database.
func (a *Archiver) ArchiveAuditLog(ctx context.Context, before time.Time) (string, int, error) {
	rows, err := a.audit.ListBefore(ctx, before)
	if err != nil {
		return "", 0, fmt.Errorf("s3blob: list audit entries before %v: %w", before, err)
	}
	if len(rows) == 0 {
		return "", 0, nil
	}

	buf, err := marshalJSONL(rows)
	if err != nil {
		return "", 0, fmt.Errorf("s3blob: marshal audit entries: %w", err)
	}

	path := archivePath("audit", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return "", 0, err
	}

	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	deleted, err := a.audit.DeleteByID(ctx, ids)
	if err != nil {
		return "", 0, fmt.Errorf("s3blob: delete archived audit entries: %w", err)
	}

	a.logArchive(ctx, "archive.audit", path, before, deleted)
	return path, len(rows), nil
}

// logArchive records the archive operation in the audit log. Failures are
// swallowed; the upload already succeeded and must not be rolled back.
func (a *Archiver) logArchive(ctx context.Context, event, path string, before time.Time, deleted int64) {
	_ = a.audit.Log(ctx, event, map[string]any{
		"path":    path,
		"cutoff":  before.UTC().Format(time.RFC3339),
		"deleted": deleted,
	})
}

// marshalJSONL encodes a slice of records as JSON Lines, one object per line.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// archivePath builds the object key for an archive batch, grouped by cutoff
// month with the full cutoff timestamp in the name, e.g.
// archive/transactions/2026-08/20260806T090000Z.jsonl. Keys are unique per
// run so a second run in the same month never overwrites the first.
func archivePath(kind string, before time.Time) string {
	t := before.UTC()
	return fmt.Sprintf("archive/%s/%s/%s.jsonl",
		kind, t.Format("2006-01"), t.Format("20060102T150405Z"))
}
