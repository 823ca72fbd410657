// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/eventdash/internal/domain"
)

// AuditRepository persists the outcomes of user-initiated actions.
type AuditRepository interface {
	// Record stores a single audit entry. ID and CreatedAt are filled in when empty.
	Record(ctx context.Context, entry *domain.AuditEntry) error

	// Recent returns the newest entries, newest first.
	Recent(ctx context.Context, limit int) ([]*domain.AuditEntry, error)

	// ForActor returns the newest entries recorded for one actor.
	ForActor(ctx context.Context, actorID string, limit int) ([]*domain.AuditEntry, error)

	// Prune deletes entries older than the retention window.
	Prune(ctx context.Context, retention time.Duration) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
