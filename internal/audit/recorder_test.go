package audit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/relayforge/orchestra/internal/config"
	"github.com/relayforge/orchestra/internal/session"
)

func TestAsAuditRecorder_RecordTransitionWritesThrough(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	store, err := Open(config.AuditConfig{Backend: config.AuditBackendSQLite}, dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	rec := AsAuditRecorder(store, nil)
	ctx := context.Background()
	if err := rec.RecordTransition(ctx, "r1", "7", session.StatusWorking, session.StatusComplete); err != nil {
		t.Fatalf("RecordTransition failed: %v", err)
	}

	entries, err := store.Trail(ctx, "r1", "7")
	if err != nil {
		t.Fatalf("Trail failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ToStatus != string(session.StatusComplete) {
		t.Errorf("entries = %+v, want one complete transition", entries)
	}
}
