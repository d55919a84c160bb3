package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/relayforge/orchestra/internal/config"
)

func TestOpen_SQLiteAppliesMigrationsAndRecordsTransition(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	store, err := Open(config.AuditConfig{Backend: config.AuditBackendSQLite}, dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	at := time.Now().UTC()
	if err := store.RecordTransition(ctx, Transition{RepoID: "r1", SessionID: "5", FromStatus: "working", ToStatus: "complete", At: at}); err != nil {
		t.Fatalf("RecordTransition failed: %v", err)
	}

	entries, err := store.Trail(ctx, "r1", "5")
	if err != nil {
		t.Fatalf("Trail failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].Kind != "transition" || entries[0].ToStatus != "complete" {
		t.Errorf("entries[0] = %+v, want kind=transition toStatus=complete", entries[0])
	}
}

func TestOpen_SQLiteReopenIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")

	store1, err := Open(config.AuditConfig{Backend: config.AuditBackendSQLite}, dbPath)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	store1.Close()

	store2, err := Open(config.AuditConfig{Backend: config.AuditBackendSQLite}, dbPath)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer store2.Close()
}

func TestTrail_MergesTransitionsAndHooksInTimeOrder(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	store, err := Open(config.AuditConfig{Backend: config.AuditBackendSQLite}, dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	base := time.Now().UTC()
	if err := store.RecordTransition(ctx, Transition{RepoID: "r1", SessionID: "9", FromStatus: "working", ToStatus: "stuck", At: base}); err != nil {
		t.Fatalf("RecordTransition failed: %v", err)
	}
	if err := store.RecordHook(ctx, HookInvocation{RepoID: "r1", SessionID: "9", HookName: "onStuck", Success: true, DurationMs: 12, At: base.Add(time.Second)}); err != nil {
		t.Fatalf("RecordHook failed: %v", err)
	}

	entries, err := store.Trail(ctx, "r1", "9")
	if err != nil {
		t.Fatalf("Trail failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Kind != "transition" || entries[1].Kind != "hook" {
		t.Errorf("entries out of order: %+v", entries)
	}
}

func TestOpen_UnknownBackendErrors(t *testing.T) {
	_, err := Open(config.AuditConfig{Backend: "mysql"}, filepath.Join(t.TempDir(), "audit.db"))
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestOpen_PostgresWithoutDSNErrors(t *testing.T) {
	_, err := Open(config.AuditConfig{Backend: config.AuditBackendPostgres}, filepath.Join(t.TempDir(), "audit.db"))
	if err == nil {
		t.Fatal("expected error for postgres backend without dsn")
	}
}
