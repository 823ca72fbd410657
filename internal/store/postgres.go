package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ashureev/eventdash/internal/domain"
)

// PostgresStore implements AuditRepository on PostgreSQL so several
// front-end instances can share one audit trail.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgres connects to databaseURL and creates the audit table if needed.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &PostgresStore{pool: pool, now: time.Now}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS audit_entries (
		id UUID PRIMARY KEY,
		action TEXT NOT NULL,
		actor_id TEXT,
		target_id TEXT,
		success BOOLEAN NOT NULL,
		message TEXT NOT NULL,
		remote_ip TEXT,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_entries(created_at);
	CREATE INDEX IF NOT EXISTS idx_audit_actor ON audit_entries(actor_id, created_at);
	`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Record stores a single audit entry.
func (s *PostgresStore) Record(ctx context.Context, entry *domain.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}

	query := `
		INSERT INTO audit_entries (id, action, actor_id, target_id, success, message, remote_ip, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.pool.Exec(ctx, query,
		entry.ID, entry.Action, nullable(entry.ActorID), nullable(entry.TargetID),
		entry.Success, entry.Message, nullable(entry.RemoteIP),
		entry.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Recent returns the newest entries, newest first.
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	query := `
		SELECT id::text, action, actor_id, target_id, success, message, remote_ip, created_at
		FROM audit_entries ORDER BY created_at DESC LIMIT $1`
	return s.query(ctx, query, limit)
}

// ForActor returns the newest entries recorded for one actor.
func (s *PostgresStore) ForActor(ctx context.Context, actorID string, limit int) ([]*domain.AuditEntry, error) {
	query := `
		SELECT id::text, action, actor_id, target_id, success, message, remote_ip, created_at
		FROM audit_entries WHERE actor_id = $1 ORDER BY created_at DESC LIMIT $2`
	return s.query(ctx, query, actorID, limit)
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...interface{}) ([]*domain.AuditEntry, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.AuditEntry, error) {
		var e domain.AuditEntry
		var actorID, targetID, remoteIP *string
		if err := row.Scan(
			&e.ID, &e.Action, &actorID, &targetID,
			&e.Success, &e.Message, &remoteIP, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		e.ActorID = deref(actorID)
		e.TargetID = deref(targetID)
		e.RemoteIP = deref(remoteIP)
		return &e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan audit entries: %w", err)
	}
	return entries, nil
}

// Prune deletes entries older than the retention window.
func (s *PostgresStore) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	threshold := s.now().Add(-retention).UTC()
	tag, err := s.pool.Exec(ctx, `DELETE FROM audit_entries WHERE created_at < $1`, threshold)
	if err != nil {
		return 0, fmt.Errorf("prune audit entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
