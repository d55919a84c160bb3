package spawner

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/relayforge/orchestra/internal/session"
)

// Headless is the headless spawner variant (§4.4): it launches the worker
// binary directly, redirecting stdout/stderr to a log file under the
// worktree, and returns immediately after the process starts. Liveness
// after that point is the shared Tracker's job, not this struct's.
type Headless struct {
	Tracker *Tracker

	// DefaultCLICommand is the binary probed by IsAvailable. A session's
	// own SpawnRequest.CLICommand (per-repo override) is what actually
	// gets invoked at Spawn time.
	DefaultCLICommand string

	// UsePTY attaches a Terminal (ring-buffered, subscribable output) to
	// every spawned process when true.
	UsePTY bool

	mu        sync.Mutex
	terminals map[string]*Terminal // spawnID -> terminal, only when UsePTY
	cmds      map[string]*exec.Cmd // spawnID -> live command, for Stop
}

// NewHeadless returns a Headless spawner sharing tracker for liveness
// polling.
func NewHeadless(tracker *Tracker, defaultCLICommand string) *Headless {
	return &Headless{
		Tracker:           tracker,
		DefaultCLICommand: defaultCLICommand,
		terminals:         make(map[string]*Terminal),
		cmds:              make(map[string]*exec.Cmd),
	}
}

// Name identifies this spawner variant for config selection and logging.
func (h *Headless) Name() string { return "headless" }

// IsAvailable probes whether the configured worker binary resolves to an
// executable on PATH.
func (h *Headless) IsAvailable(ctx context.Context) (bool, error) {
	_, err := exec.LookPath(h.DefaultCLICommand)
	if err != nil {
		return false, nil
	}
	return true, nil
}

// Spawn launches the worker, wiring its output to a log file under
// <worktree>/.claude/logs and, if UsePTY, a Terminal too.
func (h *Headless) Spawn(ctx context.Context, req session.SpawnRequest) (session.SpawnResult, error) {
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
	setProcAttr(cmd)

	var terminal *Terminal
	if h.UsePTY {
		stdinPipe, err := cmd.StdinPipe()
		if err != nil {
			logFile.Close()
			return session.SpawnResult{}, fmt.Errorf("attach stdin: %w", err)
		}
		terminal = NewTerminal(stdinPipe)
		out := io.MultiWriter(logFile, terminal.OutputWriter())
		cmd.Stdout = out
		cmd.Stderr = out
	} else {
		cmd.Stdout = logFile
		cmd.Stderr = logFile
	}

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return session.SpawnResult{Success: false, Error: err.Error()}, nil
	}

	h.mu.Lock()
	h.cmds[spawnID] = cmd
	if terminal != nil {
		h.terminals[spawnID] = terminal
	}
	h.mu.Unlock()

	pid := cmd.Process.Pid
	h.Tracker.Track(spawnID, pid)

	go h.reap(spawnID, cmd, logFile, terminal)

	return session.SpawnResult{
		Success:   true,
		SpawnID:   spawnID,
		SpawnedAt: time.Now(),
		PID:       pid,
	}, nil
}

// reap waits for the process to exit so the log file is closed and, if a
// Terminal is attached, its exit is announced to subscribers. The shared
// Tracker independently notices the PID has disappeared via polling; this
// goroutine only owns cleanup of resources Spawn itself opened.
func (h *Headless) reap(spawnID string, cmd *exec.Cmd, logFile *os.File, terminal *Terminal) {
	err := cmd.Wait()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	if terminal != nil {
		terminal.NotifyExit(exitCode)
	}
	logFile.Close()

	h.mu.Lock()
	delete(h.cmds, spawnID)
	delete(h.terminals, spawnID)
	h.mu.Unlock()
}

// Stop terminates spawnID's process group with a bounded grace period:
// SIGTERM, then SIGKILL if it hasn't exited within the grace window.
func (h *Headless) Stop(ctx context.Context, spawnID string) error {
	h.mu.Lock()
	cmd := h.cmds[spawnID]
	h.mu.Unlock()

	pid, tracked := h.Tracker.PID(spawnID)
	if cmd == nil && !tracked {
		return nil // already gone
	}
	if cmd != nil && cmd.Process != nil {
		pid = cmd.Process.Pid
	}
	if pid <= 0 {
		return nil
	}

	_ = terminateProcessGroup(pid, SignalTerm)

	const grace = 5 * time.Second
	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if !IsPIDAlive(pid) {
			h.Tracker.Untrack(spawnID)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	err := terminateProcessGroup(pid, SignalKill)
	h.Tracker.Untrack(spawnID)
	return err
}

// Terminal returns the pseudo-terminal attached to spawnID, if any.
func (h *Headless) Terminal(spawnID string) (*Terminal, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.terminals[spawnID]
	return t, ok
}

func envWithOverrides(overrides map[string]string) []string {
	env := os.Environ()
	for k, v := range overrides {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}
