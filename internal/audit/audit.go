// Package audit implements the durable, queryable side-channel log of
// session status transitions and hook invocations (component M). It is
// never consulted to reconstruct authoritative session state; the session
// store (internal/session) remains the single source of truth.
package audit

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"time"

	"github.com/relayforge/orchestra/internal/config"
)

//go:embed migrations/sqlite/*.sql
var sqliteMigrations embed.FS

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

// Transition is one status-edge record.
type Transition struct {
	RepoID     string    `json:"repoId"`
	SessionID  string    `json:"sessionId"`
	FromStatus string    `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	At         time.Time `json:"at"`
}

// HookInvocation is one hook-execution record.
type HookInvocation struct {
	RepoID     string    `json:"repoId"`
	SessionID  string    `json:"sessionId"`
	HookName   string    `json:"hookName"`
	Success    bool      `json:"success"`
	DurationMs int64     `json:"durationMs"`
	At         time.Time `json:"at"`
}

// Entry is the union type returned by Trail, tagged by Kind so a single
// call can reconstruct a session's interleaved audit history in order.
type Entry struct {
	Kind       string    `json:"kind"` // "transition" | "hook"
	RepoID     string    `json:"repoId"`
	SessionID  string    `json:"sessionId"`
	FromStatus string    `json:"fromStatus,omitempty"`
	ToStatus   string    `json:"toStatus,omitempty"`
	HookName   string    `json:"hookName,omitempty"`
	Success    bool      `json:"success,omitempty"`
	DurationMs int64     `json:"durationMs,omitempty"`
	At         time.Time `json:"at"`
}

// Store is the append-only audit log interface shared by the sqlite and
// postgres backends.
type Store interface {
	RecordTransition(ctx context.Context, t Transition) error
	RecordHook(ctx context.Context, h HookInvocation) error
	Trail(ctx context.Context, repoID, sessionID string) ([]Entry, error)
	Close() error
}

// Open constructs the configured backend, mirroring the teacher's
// NewBackend(cfg) dispatch-by-mode idiom (internal/storage/factory.go) but
// switching on component M's two-backend audit config instead of the
// teacher's three storage modes.
func Open(cfg config.AuditConfig, sqlitePath string) (Store, error) {
	switch cfg.Backend {
	case config.AuditBackendPostgres:
		dsn := cfg.DSN
		if dsn == "" {
			return nil, fmt.Errorf("audit: postgres backend requires dsn")
		}
		return newPostgresStore(dsn)
	case config.AuditBackendSQLite, "":
		path := cfg.DSN
		if path == "" {
			path = sqlitePath
		}
		return newSQLiteStore(path)
	default:
		return nil, fmt.Errorf("audit: unknown backend %q", cfg.Backend)
	}
}

// sortEntriesByTime orders a merged transition+hook trail chronologically.
func sortEntriesByTime(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].At.Before(entries[j].At) })
}
