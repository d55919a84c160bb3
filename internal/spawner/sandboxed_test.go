package spawner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/relayforge/orchestra/internal/session"
)

func TestSandboxed_Name(t *testing.T) {
	s := NewSandboxed(NewTracker(time.Second, nil), "echo", 0)
	if s.Name() != "sandboxed" {
		t.Fatalf("Name() = %q, want %q", s.Name(), "sandboxed")
	}
}

func TestSandboxed_IsAvailable(t *testing.T) {
	s := NewSandboxed(NewTracker(time.Second, nil), "echo", 0)
	ok, err := s.IsAvailable(context.Background())
	if err != nil || !ok {
		t.Fatalf("IsAvailable() = (%v, %v), want (true, nil)", ok, err)
	}
}

func TestSandboxed_SpawnWritesOutputToLogFile(t *testing.T) {
	dir := t.TempDir()
	promptPath := filepath.Join(dir, "prompt.txt")
	os.WriteFile(promptPath, []byte("hi"), 0o644)

	tracker := NewTracker(10*time.Millisecond, nil)
	s := NewSandboxed(tracker, "echo", 4)

	result, err := s.Spawn(context.Background(), session.SpawnRequest{
		WorktreePath: dir,
		PromptPath:   promptPath,
		CLICommand:   "echo",
	})
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("Spawn() Success = false, Error = %q", result.Error)
	}

	waitForLogContains(t, dir, result.SpawnID, "-p")
}

func TestSandboxed_StopTerminatesProcess(t *testing.T) {
	dir := t.TempDir()
	promptPath := filepath.Join(dir, "prompt.txt")
	os.WriteFile(promptPath, []byte("sleep 5\n"), 0o644)

	tracker := NewTracker(10*time.Millisecond, nil)
	s := NewSandboxed(tracker, "sh", 0)

	result, err := s.Spawn(context.Background(), session.SpawnRequest{
		WorktreePath: dir,
		PromptPath:   promptPath,
		CLICommand:   "sh",
	})
	if err != nil || !result.Success {
		t.Skipf("sh unavailable: %v %+v", err, result)
	}

	time.Sleep(100 * time.Millisecond)
	if !IsPIDAlive(result.PID) {
		t.Skip("process exited before Stop could be exercised")
	}

	if err := s.Stop(context.Background(), result.SpawnID); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if IsPIDAlive(result.PID) {
		t.Fatal("expected process to be gone after Stop")
	}
}

func TestSandboxed_StopOnUnknownSpawnIDIsNoop(t *testing.T) {
	s := NewSandboxed(NewTracker(time.Second, nil), "echo", 0)
	if err := s.Stop(context.Background(), "does-not-exist"); err != nil {
		t.Fatalf("Stop() error = %v, want nil", err)
	}
}
