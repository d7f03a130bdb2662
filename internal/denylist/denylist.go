// Package denylist stores the opponents the bot refuses to play. Entries are only ever added.
package denylist

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

var ErrEmptyUID = errors.New("denylist: empty uid")

// Entry is one banned opponent
type Entry struct {
	UID       string
	Reason    string
	CreatedAt time.Time
}

type Store struct {
	db *sql.DB
}

// Open opens or creates the store at path; ":memory:" keeps it in memory
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("denylist: empty database path")
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("denylist: create directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("denylist: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, stmt := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
		`CREATE TABLE IF NOT EXISTS bans (
			uid TEXT PRIMARY KEY,
			reason TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		);`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("denylist: init: %w", err)
		}
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Add bans uid. Banning an already banned uid keeps the first entry and reports false.
func (s *Store) Add(ctx context.Context, uid, reason string) (bool, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return false, ErrEmptyUID
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO bans (uid, reason, created_at) VALUES (?, ?, ?)`,
		uid, reason, time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("denylist: add %s: %w", uid, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("denylist: add %s: %w", uid, err)
	}
	return n > 0, nil
}

func (s *Store) Contains(ctx context.Context, uid string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM bans WHERE uid = ?`, uid).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("denylist: lookup %s: %w", uid, err)
	}
	return true, nil
}

// List returns every entry, oldest first
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT uid, reason, created_at FROM bans ORDER BY created_at, uid`)
	if err != nil {
		return nil, fmt.Errorf("denylist: list: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.UID, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("denylist: scan: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
