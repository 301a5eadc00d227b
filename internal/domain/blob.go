package domain

import (
	"context"
	"io"
	"time"
)

// BlobWriter uploads objects to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// Archiver moves aged records out of the primary store into blob storage.
// Each run writes a distinct object; rows are deleted only after their
// upload succeeds, and only the rows that were exported.
type Archiver interface {
	ArchiveTransactions(ctx context.Context, before time.Time) (string, int, error)
	ArchiveAuditLog(ctx context.Context, before time.Time) (string, int, error)
}
