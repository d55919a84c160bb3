package loop

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayforge/orchestra/internal/session"
)

func newTestController(t *testing.T, opts ...Option) (*Controller, *session.Service, string) {
	t.Helper()
	reposRoot := t.TempDir()
	repoPath := filepath.Join(reposRoot, "x")
	require.NoError(t, os.MkdirAll(repoPath, 0o755))
	worktree := t.TempDir()

	store, err := session.NewStore(t.TempDir())
	require.NoError(t, err)

	svc := &session.Service{
		Repo:  session.RepoConfig{ID: "x", Path: repoPath, WorktreeRoot: reposRoot, WorktreePrefix: "x-issue-", CLICommand: "orch"},
		Store: store,
		VCS: session.VCSAdapter{
			CreateWorktree: func(repoPath, worktreeRoot, prefix, branch string, issueNumber int) (string, error) {
				return worktree, nil
			},
			RemoveWorktree: func(worktreePath string) error { return nil },
			DeleteBranch:   func(repoPath, branch string, remote bool) error { return nil },
			IsDirty:        func(worktreePath string) (bool, error) { return false, nil },
		},
		Spawn: session.Spawner{
			Name:        func() string { return "headless" },
			IsAvailable: func(ctx context.Context) (bool, error) { return true, nil },
			Spawn: func(ctx context.Context, req session.SpawnRequest) (session.SpawnResult, error) {
				return session.SpawnResult{Success: true, SpawnID: session.NewSpawnID(), SpawnedAt: time.Now()}, nil
			},
			Stop: func(ctx context.Context, spawnID string) error { return nil },
		},
	}

	record, err := svc.Spawn(context.Background(), 1, session.SpawnOptions{Mode: session.ModeIterative})
	require.NoError(t, err)

	c := NewController(record.ID, svc, opts...)
	return c, svc, worktree
}

func writeWorkerStatus(t *testing.T, worktree, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(worktree, ".claude"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(worktree, WorkerStatusRelPath), []byte(content), 0o644))
}

func writePlan(t *testing.T, worktree, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(worktree, PlanFileName), []byte(content), 0o644))
}

func waitForState(t *testing.T, c *Controller, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("controller did not reach state %s, stuck at %s", want, c.State())
}

func TestController_StartTransitionsToWaitingExit(t *testing.T) {
	c, _, _ := newTestController(t)

	require.NoError(t, c.Start(context.Background(), 3))
	assert.Equal(t, StateWaitingExit, c.State())

	spawnID, ok := c.SpawnID()
	assert.True(t, ok)
	assert.NotEmpty(t, spawnID)
}

func TestController_StartRejectsNonIdle(t *testing.T) {
	c, _, _ := newTestController(t)
	require.NoError(t, c.Start(context.Background(), 3))

	err := c.Start(context.Background(), 3)
	assert.Error(t, err)
}

func TestController_StartRejectsTerminalSession(t *testing.T) {
	c, svc, _ := newTestController(t)

	record, err := svc.Get(c.sessionID)
	require.NoError(t, err)
	_, err = svc.Update(context.Background(), record.ID, session.StatusShipping, "", "")
	require.NoError(t, err)
	_, err = svc.Update(context.Background(), record.ID, session.StatusReviewsInProgress, "", "")
	require.NoError(t, err)
	_, err = svc.Update(context.Background(), record.ID, session.StatusPRReady, "", "")
	require.NoError(t, err)
	_, err = svc.Update(context.Background(), record.ID, session.StatusComplete, "", "")
	require.NoError(t, err)

	err = c.Start(context.Background(), 3)
	assert.Error(t, err)
}

func TestController_HandleExit_CompleteSignalFinishes(t *testing.T) {
	c, svc, worktree := newTestController(t)
	require.NoError(t, c.Start(context.Background(), 5))

	writeWorkerStatus(t, worktree, string(SignalComplete))
	spawnID, _ := c.SpawnID()
	c.HandleExit(context.Background(), spawnID)

	waitForState(t, c, StateCompleted)

	record, err := svc.Get(c.sessionID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusComplete, record.Status)
}

func TestController_HandleExit_StuckSignalPauses(t *testing.T) {
	c, svc, worktree := newTestController(t)
	require.NoError(t, c.Start(context.Background(), 5))

	writeWorkerStatus(t, worktree, string(SignalStuck))
	spawnID, _ := c.SpawnID()
	c.HandleExit(context.Background(), spawnID)

	waitForState(t, c, StatePaused)

	record, err := svc.Get(c.sessionID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusStuck, record.Status)
	assert.Equal(t, "worker signaled stuck", record.StuckReason)
}

func TestController_HandleExit_TaskDoneWithRemainingTasksAdvancesIteration(t *testing.T) {
	c, _, worktree := newTestController(t, WithIterationDelay(time.Millisecond))
	require.NoError(t, c.Start(context.Background(), 5))

	writeWorkerStatus(t, worktree, string(SignalTaskDone))
	writePlan(t, worktree, "### Task 1: First\n- [ ] **Description**: do it\n")

	spawnID, _ := c.SpawnID()
	c.HandleExit(context.Background(), spawnID)

	waitForState(t, c, StateWaitingExit)

	assert.Equal(t, 2, c.iteration)
}

func TestController_HandleExit_PlanCompleteFinishes(t *testing.T) {
	c, svc, worktree := newTestController(t)
	require.NoError(t, c.Start(context.Background(), 5))

	writeWorkerStatus(t, worktree, string(SignalTaskDone))
	writePlan(t, worktree, "### Task 1: First\n- [x] **Description**: do it\n")

	spawnID, _ := c.SpawnID()
	c.HandleExit(context.Background(), spawnID)

	waitForState(t, c, StateCompleted)

	record, err := svc.Get(c.sessionID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusComplete, record.Status)
}

func TestController_HandleExit_NoPlanFinishes(t *testing.T) {
	c, _, worktree := newTestController(t)
	require.NoError(t, c.Start(context.Background(), 5))

	writeWorkerStatus(t, worktree, string(SignalTaskDone))

	spawnID, _ := c.SpawnID()
	c.HandleExit(context.Background(), spawnID)

	waitForState(t, c, StateCompleted)
}

func TestController_HandleExit_IterationBudgetExhaustedFails(t *testing.T) {
	c, svc, worktree := newTestController(t, WithMaxIterations(1), WithIterationDelay(time.Millisecond))
	require.NoError(t, c.Start(context.Background(), 1))

	writeWorkerStatus(t, worktree, string(SignalTaskDone))
	writePlan(t, worktree, "### Task 1: First\n- [ ] **Description**: do it\n")

	spawnID, _ := c.SpawnID()
	c.HandleExit(context.Background(), spawnID)

	waitForState(t, c, StateFailed)
	assert.Equal(t, "iteration budget exhausted", c.FailReason())

	record, err := svc.Get(c.sessionID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusWorking, record.Status, "session status must not be mutated on budget exhaustion")
}

func TestController_HandleExit_IgnoresStaleSpawnID(t *testing.T) {
	c, _, worktree := newTestController(t)
	require.NoError(t, c.Start(context.Background(), 5))

	writeWorkerStatus(t, worktree, string(SignalComplete))
	c.HandleExit(context.Background(), "not-the-current-spawn-id")

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateWaitingExit, c.State())
}

func TestController_Stop_ReturnsToIdle(t *testing.T) {
	c, _, _ := newTestController(t)
	require.NoError(t, c.Start(context.Background(), 5))

	require.NoError(t, c.Stop(context.Background()))
	assert.Equal(t, StateIdle, c.State())

	_, ok := c.SpawnID()
	assert.False(t, ok)
}

func TestController_Continue_FromPausedRestarts(t *testing.T) {
	c, _, worktree := newTestController(t)
	require.NoError(t, c.Start(context.Background(), 5))

	writeWorkerStatus(t, worktree, string(SignalStuck))
	spawnID, _ := c.SpawnID()
	c.HandleExit(context.Background(), spawnID)
	waitForState(t, c, StatePaused)

	require.NoError(t, c.Continue(context.Background()))
	assert.Equal(t, StateWaitingExit, c.State())
}

func TestController_Continue_RejectsNonPaused(t *testing.T) {
	c, _, _ := newTestController(t)
	require.NoError(t, c.Start(context.Background(), 5))

	err := c.Continue(context.Background())
	assert.Error(t, err)
}
