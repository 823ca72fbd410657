package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const retentionInterval = time.Hour

// isConflict reports transient lock errors that clear once the competing
// writer finishes: SQLITE_BUSY, "database is locked" and the Postgres
// serialization, deadlock and lock-timeout codes.
func isConflict(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// pruneWithRetry prunes with exponential backoff on write conflicts.
func pruneWithRetry(ctx context.Context, repo AuditRepository, retention time.Duration) (int64, error) {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		n, err := repo.Prune(ctx, retention)
		if err == nil {
			return n, nil
		}

		if isConflict(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i) // 100ms, 200ms
			slog.Debug("Audit prune hit a lock conflict, retrying", "attempt", i+1, "delay", delay)
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}

		return 0, fmt.Errorf("prune audit log after %d attempts: %w", i+1, err)
	}

	return 0, nil
}

// StartRetentionWorker periodically deletes audit entries older than retention
// until ctx is canceled. A non-positive retention disables the worker.
func StartRetentionWorker(ctx context.Context, repo AuditRepository, retention time.Duration) {
	startRetentionWorker(ctx, repo, retention, retentionInterval)
}

func startRetentionWorker(ctx context.Context, repo AuditRepository, retention, interval time.Duration) {
	if retention <= 0 {
		slog.Info("Audit retention disabled")
		return
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Audit retention worker started", "interval", interval, "retention", retention)

		for {
			select {
			case <-ticker.C:
				deleted, err := pruneWithRetry(ctx, repo, retention)
				if err != nil {
					slog.Error("Audit retention sweep failed", "error", err)
					continue
				}
				if deleted > 0 {
					slog.Info("Audit retention sweep removed entries", "count", deleted)
				}
			case <-ctx.Done():
				slog.Info("Audit retention worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
