package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const defaultPath = "data/sportsarb.db"

// Store wraps a SQLite DB connection used as the alert audit trail.
type Store struct {
	path string
	db   *sql.DB
}

// Open creates (if needed) and opens the SQLite database.
func Open(path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := ensureWAL(db); err != nil {
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	return &Store{path: path, db: db}, nil
}

func ensureWAL(db *sql.DB) error {
	const (
		maxAttempts = 5
		delay       = 200 * time.Millisecond
	)
	for i := 0; i < maxAttempts; i++ {
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			if strings.Contains(err.Error(), "database is locked") {
				time.Sleep(delay)
				continue
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("database is locked after retries")
}

// Path returns the path backing the store.
func (s *Store) Path() string {
	return s.path
}

// Close closes the DB.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateTables ensures the alert audit tables exist.
func (s *Store) CreateTables(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaSQL)
	return err
}

// DropTables removes the audit tables.
func (s *Store) DropTables(ctx context.Context) error {
	stmts := []string{
		`DROP TABLE IF EXISTS opportunities;`,
		`DROP TABLE IF EXISTS value_signals;`,
		`DROP TABLE IF EXISTS cycles;`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// ClearTables truncates the audit tables.
func (s *Store) ClearTables(ctx context.Context) error {
	stmts := []string{
		`DELETE FROM opportunities;`,
		`DELETE FROM value_signals;`,
		`DELETE FROM cycles;`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS opportunities (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id TEXT NOT NULL,
	event_name TEXT,
	sport_key TEXT,
	market TEXT NOT NULL,
	commence_time TEXT,
	implied_sum REAL,
	roi_percent REAL,
	total_stake REAL,
	guaranteed_profit REAL,
	confidence TEXT,
	risk_verdict TEXT,
	legs_json TEXT,
	detected_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS opportunities_event_idx ON opportunities(event_id, market);

CREATE TABLE IF NOT EXISTS value_signals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id TEXT NOT NULL,
	event_name TEXT,
	market TEXT,
	outcome TEXT NOT NULL,
	point REAL,
	sharp_bookmaker TEXT,
	sharp_price REAL,
	soft_bookmaker TEXT,
	soft_price REAL,
	edge_percent REAL,
	observed_at TEXT,
	detected_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS value_signals_event_idx ON value_signals(event_id, outcome);

CREATE TABLE IF NOT EXISTS cycles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	snapshots_processed INTEGER,
	snapshots_dropped INTEGER,
	opportunities_found INTEGER,
	signals_found INTEGER,
	quota_remaining INTEGER
);
`
