package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	reposRoot := t.TempDir()
	repoPath := filepath.Join(reposRoot, "x")
	require.NoError(t, os.MkdirAll(repoPath, 0o755))

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	dirty := false
	svc := &Service{
		Repo: RepoConfig{ID: "x", Path: repoPath, WorktreeRoot: reposRoot, WorktreePrefix: "x-issue-", CLICommand: "orch"},
		Store: store,
		VCS: VCSAdapter{
			CreateWorktree: func(repoPath, worktreeRoot, prefix, branch string, issueNumber int) (string, error) {
				wt := filepath.Join(worktreeRoot, prefix+itoaTest(issueNumber))
				if err := os.MkdirAll(wt, 0o755); err != nil {
					return "", err
				}
				return wt, nil
			},
			RemoveWorktree: func(worktreePath string) error {
				return os.RemoveAll(worktreePath)
			},
			DeleteBranch: func(repoPath, branch string, remote bool) error { return nil },
			IsDirty:      func(worktreePath string) (bool, error) { return dirty, nil },
		},
		Spawn: Spawner{
			Name:        func() string { return "headless" },
			IsAvailable: func(ctx context.Context) (bool, error) { return true, nil },
			Spawn: func(ctx context.Context, req SpawnRequest) (SpawnResult, error) {
				return SpawnResult{Success: true, SpawnID: NewSpawnID(), SpawnedAt: time.Now()}, nil
			},
			Stop: func(ctx context.Context, spawnID string) error { return nil },
		},
	}
	return svc, repoPath
}

func itoaTest(n int) string {
	if n == 0 {
		return "0"
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	return string(b)
}

func TestService_Spawn_CreatesWorkingSession(t *testing.T) {
	svc, _ := newTestService(t)

	record, err := svc.Spawn(context.Background(), 42, SpawnOptions{Mode: ModeUserDriven})
	require.NoError(t, err)

	assert.Equal(t, "42", record.ID)
	assert.Equal(t, StatusWorking, record.Status)
	assert.Equal(t, "issue-42", record.Branch)
	assert.NotEmpty(t, record.SpawnID)
	assert.True(t, svc.Store.Exists("42"))

	ctx, err := ReadContext(record.WorktreePath)
	require.NoError(t, err)
	assert.Equal(t, "42", ctx.SessionID)
	assert.Equal(t, "orch update --id 42", ctx.Commands.Update)

	list, err := svc.List(ListOptions{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "42", list[0].ID)
}

func TestService_Spawn_DuplicateIsConflict(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Spawn(context.Background(), 42, SpawnOptions{})
	require.NoError(t, err)

	_, err = svc.Spawn(context.Background(), 42, SpawnOptions{})
	require.Error(t, err)
}

func TestService_HeartbeatAndForwardAndAcknowledge(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Spawn(context.Background(), 42, SpawnOptions{})
	require.NoError(t, err)

	updated, err := svc.Forward("42", "use option A")
	require.NoError(t, err)
	assert.Equal(t, "use option A", updated.ForwardedMessage)

	hb, err := svc.Heartbeat("42")
	require.NoError(t, err)
	assert.True(t, hb.Recorded)
	assert.True(t, hb.HasMessage)

	acked, err := svc.Acknowledge("42")
	require.NoError(t, err)
	assert.Empty(t, acked.ForwardedMessage)
}

func TestService_PauseResume(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Spawn(context.Background(), 42, SpawnOptions{})
	require.NoError(t, err)

	paused, err := svc.Pause(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, paused.Status)

	// Idempotent pause: pausing an already-paused session stays paused.
	paused2, err := svc.Pause(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, paused2.Status)

	resumed, err := svc.Resume(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, StatusWorking, resumed.Status)
}

func TestService_Update_RejectsIllegalTransition(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Spawn(context.Background(), 42, SpawnOptions{})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), "42", StatusPRReady, "", "")
	require.Error(t, err)
}

func TestService_Update_StuckRequiresReason(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Spawn(context.Background(), 42, SpawnOptions{})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), "42", StatusStuck, "", "")
	require.Error(t, err)

	updated, err := svc.Update(context.Background(), "42", StatusStuck, "tests keep failing", "")
	require.NoError(t, err)
	assert.Equal(t, StatusStuck, updated.Status)
	assert.Equal(t, "tests keep failing", updated.StuckReason)
}

func TestService_Delete_DirtyWorktreeWithoutForce(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Spawn(context.Background(), 42, SpawnOptions{})
	require.NoError(t, err)

	svc.VCS.IsDirty = func(worktreePath string) (bool, error) { return true, nil }

	result, err := svc.Delete(context.Background(), "42", DeleteFolderOnly, false)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.OrphanedWorktreePath)

	record, err := svc.Get("42")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, StatusDeletionFailed, record.Status)
	assert.Equal(t, StatusWorking, record.PreviousStatus)

	rolledBack, err := svc.RollbackDelete("42")
	require.NoError(t, err)
	assert.Equal(t, StatusWorking, rolledBack.Status)
}

func TestService_Delete_Success(t *testing.T) {
	svc, _ := newTestService(t)
	record, err := svc.Spawn(context.Background(), 42, SpawnOptions{})
	require.NoError(t, err)
	worktreePath := record.WorktreePath

	result, err := svc.Delete(context.Background(), "42", DeleteFolderOnly, false)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, svc.Store.Exists("42"))
	_, statErr := os.Stat(worktreePath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestService_Restart_RejectsTerminalSession(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Spawn(context.Background(), 42, SpawnOptions{})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), "42", StatusShipping, "", "")
	require.NoError(t, err)
	_, err = svc.Update(context.Background(), "42", StatusReviewsInProgress, "", "")
	require.NoError(t, err)
	_, err = svc.Update(context.Background(), "42", StatusPRReady, "", "")
	require.NoError(t, err)
	_, err = svc.Update(context.Background(), "42", StatusComplete, "", "")
	require.NoError(t, err)

	_, err = svc.Restart(context.Background(), "42", 0)
	require.Error(t, err)
}
