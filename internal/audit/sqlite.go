package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

// sqliteStore is the default audit backend: one database file shared by
// every configured repo, at the root of the session-store directory. Connection setup (pragma tuning, directory
// creation) mirrors the teacher's internal/db.Open; schema management is
// golang-migrate instead of the teacher's hand-rolled _migrations table.
type sqliteStore struct {
	mu sync.Mutex
	db *sql.DB
}

func newSQLiteStore(path string) (*sqliteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit sqlite db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set audit db pragmas: %w", err)
	}

	if err := migrateSQLite(db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

func migrateSQLite(db *sql.DB) error {
	src, err := iofs.New(sqliteMigrations, "migrations/sqlite")
	if err != nil {
		return fmt.Errorf("load audit sqlite migrations: %w", err)
	}
	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("init audit sqlite migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("init audit sqlite migrator: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply audit sqlite migrations: %w", err)
	}
	return nil
}

func (s *sqliteStore) RecordTransition(ctx context.Context, t Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transitions (repo_id, session_id, from_status, to_status, at) VALUES (?, ?, ?, ?, ?)`,
		t.RepoID, t.SessionID, t.FromStatus, t.ToStatus, t.At)
	return err
}

func (s *sqliteStore) RecordHook(ctx context.Context, h HookInvocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO hook_invocations (repo_id, session_id, hook_name, success, duration_ms, at) VALUES (?, ?, ?, ?, ?, ?)`,
		h.RepoID, h.SessionID, h.HookName, h.Success, h.DurationMs, h.At)
	return err
}

func (s *sqliteStore) Trail(ctx context.Context, repoID, sessionID string) ([]Entry, error) {
	return trailFromTables(ctx, s.db, repoID, sessionID)
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// trailFromTables reads and merges both tables in timestamp order for the
// sqlite backend; the postgres backend uses its own trailFromTablesPG.
func trailFromTables(ctx context.Context, db *sql.DB, repoID, sessionID string) ([]Entry, error) {
	var entries []Entry

	trows, err := db.QueryContext(ctx,
		`SELECT from_status, to_status, at FROM transitions WHERE repo_id = ? AND session_id = ? ORDER BY at`,
		repoID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	for trows.Next() {
		var e Entry
		if err := trows.Scan(&e.FromStatus, &e.ToStatus, &e.At); err != nil {
			trows.Close()
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		e.Kind, e.RepoID, e.SessionID = "transition", repoID, sessionID
		entries = append(entries, e)
	}
	trows.Close()
	if err := trows.Err(); err != nil {
		return nil, err
	}

	hrows, err := db.QueryContext(ctx,
		`SELECT hook_name, success, duration_ms, at FROM hook_invocations WHERE repo_id = ? AND session_id = ? ORDER BY at`,
		repoID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query hook invocations: %w", err)
	}
	for hrows.Next() {
		var e Entry
		if err := hrows.Scan(&e.HookName, &e.Success, &e.DurationMs, &e.At); err != nil {
			hrows.Close()
			return nil, fmt.Errorf("scan hook invocation: %w", err)
		}
		e.Kind, e.RepoID, e.SessionID = "hook", repoID, sessionID
		entries = append(entries, e)
	}
	hrows.Close()
	if err := hrows.Err(); err != nil {
		return nil, err
	}

	sortEntriesByTime(entries)
	return entries, nil
}
