package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// postgresStore is the opt-in multi-operator backend: a single shared
// database rather than one sqlite file per project, selected via
// audit.backend = "postgres" and audit.dsn (SPEC_FULL §4.11).
type postgresStore struct {
	db *sql.DB
}

func newPostgresStore(dsn string) (*postgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit postgres db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping audit postgres db: %w", err)
	}
	if err := migratePostgres(db); err != nil {
		db.Close()
		return nil, err
	}
	return &postgresStore{db: db}, nil
}

func migratePostgres(db *sql.DB) error {
	src, err := iofs.New(postgresMigrations, "migrations/postgres")
	if err != nil {
		return fmt.Errorf("load audit postgres migrations: %w", err)
	}
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		return fmt.Errorf("init audit postgres migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx", driver)
	if err != nil {
		return fmt.Errorf("init audit postgres migrator: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply audit postgres migrations: %w", err)
	}
	return nil
}

func (s *postgresStore) RecordTransition(ctx context.Context, t Transition) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transitions (repo_id, session_id, from_status, to_status, at) VALUES ($1, $2, $3, $4, $5)`,
		t.RepoID, t.SessionID, t.FromStatus, t.ToStatus, t.At)
	return err
}

func (s *postgresStore) RecordHook(ctx context.Context, h HookInvocation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO hook_invocations (repo_id, session_id, hook_name, success, duration_ms, at) VALUES ($1, $2, $3, $4, $5, $6)`,
		h.RepoID, h.SessionID, h.HookName, h.Success, h.DurationMs, h.At)
	return err
}

func (s *postgresStore) Trail(ctx context.Context, repoID, sessionID string) ([]Entry, error) {
	return trailFromTablesPG(ctx, s.db, repoID, sessionID)
}

func (s *postgresStore) Close() error {
	return s.db.Close()
}

// trailFromTablesPG mirrors trailFromTables but with $n placeholders; kept
// separate rather than parameterizing the placeholder style, since the two
// backends' query text is otherwise identical and easier to read unshared.
func trailFromTablesPG(ctx context.Context, db *sql.DB, repoID, sessionID string) ([]Entry, error) {
	var entries []Entry

	trows, err := db.QueryContext(ctx,
		`SELECT from_status, to_status, at FROM transitions WHERE repo_id = $1 AND session_id = $2 ORDER BY at`,
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
		`SELECT hook_name, success, duration_ms, at FROM hook_invocations WHERE repo_id = $1 AND session_id = $2 ORDER BY at`,
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
