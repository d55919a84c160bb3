// Package loop implements the iterative loop controller (component J): a
// per-session state machine that re-spawns a worker across iterations,
// reading the worker's status-signal file and the task plan (component G)
// after each exit to decide whether to continue, pause, finish, or fail.
package loop

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/relayforge/orchestra/internal/plan"
	"github.com/relayforge/orchestra/internal/session"
)

// WorkerStatusRelPath is where the worker writes its end-of-iteration
// status signal, relative to the session's worktree.
const WorkerStatusRelPath = ".claude/worker-status"

// PlanFileName is the checkbox-tagged task plan a planning agent writes
// into the worktree root before the loop begins.
const PlanFileName = "IMPLEMENTATION_PLAN.md"

// DefaultMaxIterations bounds a loop when the caller supplies none.
const DefaultMaxIterations = 30

// DefaultIterationDelay is the minimum interval between a worker exit and
// the next spawn.
const DefaultIterationDelay = 5 * time.Second

// State is one of the controller's lifecycle states.
type State string

const (
	StateIdle        State = "idle"
	StateRunning     State = "running"
	StateWaitingExit State = "waiting-exit"
	StateEvaluating  State = "evaluating"
	StatePaused      State = "paused"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
)

// WorkerSignal is the literal content of the worker-status file.
type WorkerSignal string

const (
	SignalComplete WorkerSignal = "complete"
	SignalTaskDone WorkerSignal = "task_done"
	SignalStuck    WorkerSignal = "stuck"
)

// Controller drives one session's iterative loop. State transitions are
// serialized by mu; the evaluate step that follows a worker exit runs on
// its own goroutine (HandleExit) so a shared process tracker's single
// polling goroutine is never blocked behind one session's inter-iteration
// delay — the "single driver task per session" shape, just not a
// channel-fed one, since every entry point already synchronizes through
// the same mutex and the session store's own per-id locking.
type Controller struct {
	sessionID      string
	service        *session.Service
	maxIterations  int
	iterationDelay time.Duration
	logger         *slog.Logger

	mu        sync.Mutex
	state     State
	iteration int
	spawnID   string
	failErr   string
}

// Option configures a Controller.
type Option func(*Controller)

// WithMaxIterations overrides DefaultMaxIterations.
func WithMaxIterations(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

// WithIterationDelay overrides DefaultIterationDelay.
func WithIterationDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.iterationDelay = d
		}
	}
}

// WithLogger attaches a logger; a disabled default is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewController returns an idle Controller for sessionID, driven through
// service.
func NewController(sessionID string, service *session.Service, opts ...Option) *Controller {
	c := &Controller{
		sessionID:      sessionID,
		service:        service,
		maxIterations:  DefaultMaxIterations,
		iterationDelay: DefaultIterationDelay,
		logger:         slog.Default(),
		state:          StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the controller's current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SpawnID returns the spawn id the controller is currently tracking, if
// any — the key the process tracker's exit notification arrives under.
func (c *Controller) SpawnID() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spawnID, c.spawnID != ""
}

// Start begins the loop: requires the session exists and is not in a
// terminal state, sets iteration 1, and invokes the first spawn.
func (c *Controller) Start(ctx context.Context, iterations int) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return fmt.Errorf("loop for session %s is not idle (state=%s)", c.sessionID, c.state)
	}
	c.mu.Unlock()

	record, err := c.service.Get(c.sessionID)
	if err != nil {
		return fmt.Errorf("load session %s: %w", c.sessionID, err)
	}
	if record == nil {
		return fmt.Errorf("session %s not found", c.sessionID)
	}
	if record.Status.IsTerminal() {
		return fmt.Errorf("session %s is in a terminal state (%s)", c.sessionID, record.Status)
	}

	if iterations > 0 {
		c.maxIterations = iterations
	}

	c.mu.Lock()
	c.iteration = 1
	c.state = StateRunning
	c.mu.Unlock()

	return c.restart(ctx)
}

// Stop returns the loop to idle from any state, best-effort stopping the
// tracked spawn.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	spawnID := c.spawnID
	c.state = StateIdle
	c.spawnID = ""
	c.mu.Unlock()

	if spawnID != "" && c.service.Spawn.Stop != nil {
		_ = c.service.Spawn.Stop(ctx, spawnID)
	}
	return nil
}

// Continue permits manual advancement from paused, re-entering running
// and restarting the spawn.
func (c *Controller) Continue(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StatePaused {
		c.mu.Unlock()
		return fmt.Errorf("loop for session %s is not paused (state=%s)", c.sessionID, c.state)
	}
	c.state = StateRunning
	c.mu.Unlock()

	return c.restart(ctx)
}

// restart spawns the worker for the current iteration and transitions
// running -> waiting-exit on success, or running -> failed on a spawner
// error.
func (c *Controller) restart(ctx context.Context) error {
	c.mu.Lock()
	iteration := c.iteration
	c.mu.Unlock()

	record, err := c.service.Restart(ctx, c.sessionID, iteration)
	if err != nil {
		c.mu.Lock()
		c.state = StateFailed
		c.failErr = err.Error()
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.spawnID = record.SpawnID
	c.state = StateWaitingExit
	c.mu.Unlock()
	return nil
}

// HandleExit is invoked (by a Manager, keyed off the process tracker's
// exit callback) once the worker for spawnID has exited. It reads the
// status signal, re-checks the plan, and decides the loop's next action.
// The actual evaluation runs on its own goroutine: the process tracker
// that calls this has one shared polling loop across every session, and
// evaluate can block for a full inter-iteration delay.
func (c *Controller) HandleExit(ctx context.Context, spawnID string) {
	c.mu.Lock()
	if c.state != StateWaitingExit || c.spawnID != spawnID {
		c.mu.Unlock()
		return
	}
	c.state = StateEvaluating
	c.mu.Unlock()

	go c.evaluate(ctx)
}

func (c *Controller) evaluate(ctx context.Context) {
	record, err := c.service.Get(c.sessionID)
	if err != nil {
		c.fail(fmt.Sprintf("load session for evaluation: %v", err))
		return
	}

	signal, err := readWorkerSignal(record.WorktreePath)
	if err != nil {
		c.logger.Debug("no readable worker status signal", "session", c.sessionID, "error", err)
	}

	if signal == SignalComplete {
		c.finish(ctx, record)
		return
	}

	if signal == SignalStuck {
		c.mu.Lock()
		c.state = StatePaused
		c.mu.Unlock()
		_, _ = c.service.Update(ctx, c.sessionID, session.StatusStuck, "worker signaled stuck", "")
		return
	}

	// SignalTaskDone, or anything else/missing: fall through to the plan.
	set, err := loadPlan(record.WorktreePath)
	if err != nil {
		c.fail(fmt.Sprintf("read plan: %v", err))
		return
	}

	if set == nil || set.IsPromiseMet() {
		c.finish(ctx, record)
		return
	}

	c.mu.Lock()
	c.iteration++
	iteration := c.iteration
	maxIterations := c.maxIterations
	c.mu.Unlock()

	if iteration > maxIterations {
		c.fail("iteration budget exhausted")
		return
	}

	time.Sleep(c.iterationDelay)

	c.mu.Lock()
	c.state = StateRunning
	c.mu.Unlock()

	if err := c.restart(ctx); err != nil {
		c.logger.Warn("restart failed during iteration advance", "session", c.sessionID, "error", err)
	}
}

func (c *Controller) finish(ctx context.Context, record *session.Record) {
	c.mu.Lock()
	c.state = StateCompleted
	c.spawnID = ""
	c.mu.Unlock()

	_, _ = c.service.Update(ctx, record.ID, session.StatusComplete, "", "")
}

// fail transitions to failed with reason, without mutating session status
// — per the iteration-budget-exhausted scenario, the session record is
// left as-is; only the loop's own state reflects the failure.
func (c *Controller) fail(reason string) {
	c.mu.Lock()
	c.state = StateFailed
	c.failErr = reason
	c.spawnID = ""
	c.mu.Unlock()
}

// FailReason returns the diagnostic recorded when the loop entered failed,
// or "" otherwise.
func (c *Controller) FailReason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failErr
}

func readWorkerSignal(worktreePath string) (WorkerSignal, error) {
	data, err := os.ReadFile(filepath.Join(worktreePath, WorkerStatusRelPath))
	if err != nil {
		return "", err
	}
	return WorkerSignal(strings.TrimSpace(string(data))), nil
}

func loadPlan(worktreePath string) (*plan.TaskSet, error) {
	data, err := os.ReadFile(filepath.Join(worktreePath, PlanFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return plan.Parse(string(data))
}
