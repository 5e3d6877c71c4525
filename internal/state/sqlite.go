package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS site_state (
	name       TEXT PRIMARY KEY,
	active     INTEGER NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLiteStore keeps the state in a single SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create state dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite %s: %w", path, err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (State, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, active FROM site_state`)
	if err != nil {
		return State{}, fmt.Errorf("query state: %w", err)
	}
	defer rows.Close()

	st := State{}
	for rows.Next() {
		var (
			name   string
			active bool
		)
		if err := rows.Scan(&name, &active); err != nil {
			return State{}, fmt.Errorf("scan state row: %w", err)
		}
		st[name] = active
	}
	if err := rows.Err(); err != nil {
		return State{}, fmt.Errorf("iterate state rows: %w", err)
	}
	return st, nil
}

// Save replaces the stored mapping with s in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, st State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM site_state`); err != nil {
		return fmt.Errorf("clear state: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for name, active := range st {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO site_state(name, active, updated_at) VALUES(?,?,?)`,
			name, active, now,
		); err != nil {
			return fmt.Errorf("save state for %s: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit state: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
