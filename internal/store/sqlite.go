package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ashureev/eventdash/internal/domain"
)

// SQLiteStore implements AuditRepository using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite creates a new SQLite-backed audit repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS audit_entries (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		actor_id TEXT,
		target_id TEXT,
		success INTEGER NOT NULL,
		message TEXT NOT NULL,
		remote_ip TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_entries(created_at);
	CREATE INDEX IF NOT EXISTS idx_audit_actor ON audit_entries(actor_id, created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Record stores a single audit entry.
func (s *SQLiteStore) Record(ctx context.Context, entry *domain.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}

	query := `
	INSERT INTO audit_entries (id, action, actor_id, target_id, success, message, remote_ip, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID, entry.Action, nullable(entry.ActorID), nullable(entry.TargetID),
		entry.Success, entry.Message, nullable(entry.RemoteIP),
		entry.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Recent returns the newest entries, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	query := `
		SELECT id, action, actor_id, target_id, success, message, remote_ip, created_at
		FROM audit_entries ORDER BY created_at DESC, rowid DESC LIMIT ?`
	return s.query(ctx, query, limit)
}

// ForActor returns the newest entries recorded for one actor.
func (s *SQLiteStore) ForActor(ctx context.Context, actorID string, limit int) ([]*domain.AuditEntry, error) {
	query := `
		SELECT id, action, actor_id, target_id, success, message, remote_ip, created_at
		FROM audit_entries WHERE actor_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`
	return s.query(ctx, query, actorID, limit)
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...interface{}) ([]*domain.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close audit rows", "error", closeErr)
		}
	}()

	var entries []*domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var actorID, targetID, remoteIP sql.NullString
		var createdAt int64

		if err := rows.Scan(
			&e.ID, &e.Action, &actorID, &targetID,
			&e.Success, &e.Message, &remoteIP, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}

		e.ActorID = actorID.String
		e.TargetID = targetID.String
		e.RemoteIP = remoteIP.String
		e.CreatedAt = time.UnixMilli(createdAt)
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}

	return entries, nil
}

// Prune deletes entries older than the retention window.
func (s *SQLiteStore) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	threshold := s.now().Add(-retention).UnixMilli()
	result, err := s.db.ExecContext(ctx, `DELETE FROM audit_entries WHERE created_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("prune audit entries: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
