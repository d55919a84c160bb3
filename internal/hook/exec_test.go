package hook

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/relayforge/orchestra/internal/session"
)

func TestSubstitute_ReplacesKnownVars(t *testing.T) {
	vars := map[string]string{
		"sessionId": "42",
		"status":    "working",
	}
	got := Substitute("notify ${sessionId} is ${status}", vars)
	want := "notify 42 is working"
	if got != want {
		t.Fatalf("Substitute() = %q, want %q", got, want)
	}
}

func TestSubstitute_MissingVarBecomesEmptyString(t *testing.T) {
	got := Substitute("echo ${missing}", map[string]string{})
	if got != "echo " {
		t.Fatalf("Substitute() = %q, want %q", got, "echo ")
	}
}

func TestVars_BuildsAllSevenFields(t *testing.T) {
	record := &session.Record{
		ID:           "42",
		Issue:        session.Issue{Number: 42},
		Branch:       "issue-42",
		WorktreePath: "/repos/x-issue-42",
		Status:       session.StatusWorking,
	}
	vars := Vars(record, "myrepo", "Fix the thing")

	want := map[string]string{
		"sessionId":    "42",
		"issueNumber":  "42",
		"repoId":       "myrepo",
		"worktreePath": "/repos/x-issue-42",
		"branch":       "issue-42",
		"status":       "working",
		"issueTitle":   "Fix the thing",
	}
	for k, v := range want {
		if vars[k] != v {
			t.Errorf("vars[%q] = %q, want %q", k, vars[k], v)
		}
	}
}

func TestExecutor_RunCommand_Success(t *testing.T) {
	e := NewExecutor(5 * time.Second)
	result, err := e.RunCommand(context.Background(), "echo hello-${sessionId}", t.TempDir(), map[string]string{"sessionId": "7"})
	if err != nil {
		t.Fatalf("RunCommand() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("expected Success, got Error=%q", result.Error)
	}
	if !strings.Contains(result.Output, "hello-7") {
		t.Fatalf("Output = %q, want it to contain %q", result.Output, "hello-7")
	}
}

func TestExecutor_RunCommand_NonZeroExit(t *testing.T) {
	e := NewExecutor(5 * time.Second)
	result, err := e.RunCommand(context.Background(), "exit 3", t.TempDir(), nil)
	if err != nil {
		t.Fatalf("RunCommand() error = %v", err)
	}
	if result.Success {
		t.Fatal("expected Success=false for non-zero exit")
	}
	if result.Error == "" {
		t.Fatal("expected a non-empty Error for non-zero exit")
	}
}

func TestExecutor_RunCommand_RunsInWorkDir(t *testing.T) {
	dir := t.TempDir()
	e := NewExecutor(5 * time.Second)
	result, err := e.RunCommand(context.Background(), "pwd", dir, nil)
	if err != nil {
		t.Fatalf("RunCommand() error = %v", err)
	}
	if !strings.Contains(result.Output, dir) {
		t.Fatalf("Output = %q, want it to contain workdir %q", result.Output, dir)
	}
}

func TestExecutor_RunCommand_TimeoutIsAnError(t *testing.T) {
	e := NewExecutor(10 * time.Millisecond)
	_, err := e.RunCommand(context.Background(), "sleep 1", t.TempDir(), nil)
	if err == nil {
		t.Fatal("expected a timeout error")
	}
}
