package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phamdat721101/antdle-market/internal/domain"
)

// ArchiveConfig controls the cold-storage archive loop.
type ArchiveConfig struct {
	// Interval is how often an archive run starts.
	Interval time.Duration

	// RetentionDays is how many days of history stay in the database.
	RetentionDays int
}

// ArchiveRunner moves transaction and audit history older than the
// retention window to blob storage.
type ArchiveRunner struct {
	archiver domain.Archiver
	cfg      ArchiveConfig
	logger   *slog.Logger
}

// NewArchiveRunner creates an ArchiveRunner.
func NewArchiveRunner(archiver domain.Archiver, cfg ArchiveConfig, logger *slog.Logger) *ArchiveRunner {
	return &ArchiveRunner{
		archiver: archiver,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "archive_runner")),
	}
}

// Run archives on the configured interval until the context is cancelled.
// Unlike the sweeper there is no immediate first run; archiving on every
// restart would churn S3 for no benefit.
func (r *ArchiveRunner) Run(ctx context.Context) error {
	r.logger.Info("archive runner started",
		slog.Duration("interval", r.cfg.Interval),
		slog.Int("retention_days", r.cfg.RetentionDays),
	)
	defer r.logger.Info("archive runner stopped")

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.RunOnce(ctx); err != nil {
				r.logger.ErrorContext(ctx, "archive run failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce executes a single archive pass over both record kinds.
func (r *ArchiveRunner) RunOnce(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-time.Duration(r.cfg.RetentionDays) * 24 * time.Hour)
	r.logger.InfoContext(ctx, "starting archive run", slog.Time("cutoff", cutoff))

	txPath, txCount, err := r.archiver.ArchiveTransactions(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("archiving transactions before %v: %w", cutoff, err)
	}
	if txCount > 0 {
		r.logger.InfoContext(ctx, "archived transactions",
			slog.Int("count", txCount),
			slog.String("path", txPath),
		)
	}

	auditPath, auditCount, err := r.archiver.ArchiveAuditLog(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("archiving audit log before %v: %w", cutoff, err)
	}
	if auditCount > 0 {
		r.logger.InfoContext(ctx, "archived audit entries",
			slog.Int("count", auditCount),
			slog.String("path", auditPath),
		)
	}

	return nil
}
