package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // register sqlite driver
)

const schemaVersion = 1

// SQLite is the non-volatile settings backend: one row per persistence key
// holding the raw bytes written by the store.
type SQLite struct {
	handlers handlerSet
	db       *sql.DB
}

// OpenSQLite opens (creating if needed) the settings database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection serializes writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()

		return nil, err
	}

	return &SQLite{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version >= schemaVersion {
		return nil
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create settings table: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d;`, schemaVersion)); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// RegisterHandler implements configstore.Backend.
func (s *SQLite) RegisterHandler(namespace string, h SetHandler) error {
	return s.handlers.register(namespace, h)
}

// LoadAll implements configstore.Backend.
func (s *SQLite) LoadAll(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	type entry struct {
		key string
		raw []byte
	}
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.key, &e.raw); err != nil {
			return fmt.Errorf("scan setting: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate settings: %w", err)
	}
	// Handlers run after the cursor is closed so they may write back.
	_ = rows.Close()

	for _, e := range entries {
		s.handlers.dispatch(e.key, e.raw)
	}
	return nil
}

// Rejected returns how many stored entries handlers have refused across all
// LoadAll calls.
func (s *SQLite) Rejected() int { return int(s.handlers.rejected.Load()) }

// SaveOne implements configstore.Backend.
func (s *SQLite) SaveOne(ctx context.Context, key string, raw []byte) error {
	if raw == nil {
		raw = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings(key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, raw, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save setting %s: %w", key, err)
	}
	return nil
}

// Load returns the raw bytes stored under key.
func (s *SQLite) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load setting %s: %w", key, err)
	}
	return raw, true, nil
}
