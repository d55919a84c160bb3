package spawner

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/relayforge/orchestra/internal/session"
)

// Sandboxed is the sandboxed spawner variant (§4.4). The retrieval pack
// has no container-runtime client library, so this does not launch a real
// container: it runs the same worker binary with best-effort process
// restriction (new process group, working directory pinned to the
// worktree) and documents the gap rather than silently pretending to
// sandbox. A genuine implementation would shell out to a container CLI or
// link a runtime SDK; see DESIGN.md for why neither is wired here.
type Sandboxed struct {
	Tracker *Tracker

	DefaultCLICommand string
	// MaxProcesses is handed to applySandboxLimits, which does not apply it
	// on any platform: forked descendants are not capped.
	MaxProcesses uint64

	mu   sync.Mutex
	cmds map[string]*exec.Cmd
}

// NewSandboxed returns a Sandboxed spawner sharing tracker for liveness
// polling.
func NewSandboxed(tracker *Tracker, defaultCLICommand string, maxProcesses uint64) *Sandboxed {
	return &Sandboxed{
		Tracker:           tracker,
		DefaultCLICommand: defaultCLICommand,
		MaxProcesses:      maxProcesses,
		cmds:              make(map[string]*exec.Cmd),
	}
}

func (s *Sandboxed) Name() string { return "sandboxed" }

func (s *Sandboxed) IsAvailable(ctx context.Context) (bool, error) {
	_, err := exec.LookPath(s.DefaultCLICommand)
	if err != nil {
		return false, nil
	}
	return true, nil
}

// Spawn launches the worker with the same log-teeing behavior as Headless,
// in its own process group (setProcAttr); applySandboxLimits adds no
// further restriction.
// The worktree binding is "read-only" only in the sense that the worker's
// own hooks are expected to respect it; this package does not enforce a
// filesystem-level read-only bind mount.
func (s *Sandboxed) Spawn(ctx context.Context, req session.SpawnRequest) (session.SpawnResult, error) {
	spawnID := session.NewSpawnID()

	logDir := filepath.Join(req.WorktreePath, ".claude", "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return session.SpawnResult{}, fmt.Errorf("create log dir: %w", err)
	}
	logPath := filepath.Join(logDir, spawnID+".log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return session.SpawnResult{}, fmt.Errorf("open log file: %w", err)
	}

	cmd := exec.CommandContext(context.WithoutCancel(ctx), req.CLICommand, "-p", req.PromptPath)
	cmd.Dir = req.WorktreePath
	cmd.Env = envWithOverrides(req.Env)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	setProcAttr(cmd)
	applySandboxLimits(cmd, s.MaxProcesses)

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return session.SpawnResult{Success: false, Error: err.Error()}, nil
	}

	s.mu.Lock()
	s.cmds[spawnID] = cmd
	s.mu.Unlock()

	pid := cmd.Process.Pid
	s.Tracker.Track(spawnID, pid)

	go func() {
		_ = cmd.Wait()
		logFile.Close()
		s.mu.Lock()
		delete(s.cmds, spawnID)
		s.mu.Unlock()
	}()

	return session.SpawnResult{
		Success:   true,
		SpawnID:   spawnID,
		SpawnedAt: time.Now(),
		PID:       pid,
	}, nil
}

// Stop mirrors Headless.Stop's bounded-grace-period termination.
func (s *Sandboxed) Stop(ctx context.Context, spawnID string) error {
	pid, tracked := s.Tracker.PID(spawnID)
	if !tracked {
		return nil
	}

	_ = terminateProcessGroup(pid, SignalTerm)

	const grace = 5 * time.Second
	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if !IsPIDAlive(pid) {
			s.Tracker.Untrack(spawnID)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	err := terminateProcessGroup(pid, SignalKill)
	s.Tracker.Untrack(spawnID)
	return err
}
