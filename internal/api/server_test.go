package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayforge/orchestra/internal/config"
	"github.com/relayforge/orchestra/internal/events"
	"github.com/relayforge/orchestra/internal/repo"
	"github.com/relayforge/orchestra/internal/session"
)

func newTestServer(t *testing.T) (*Server, *repo.Service) {
	t.Helper()
	reposRoot := t.TempDir()
	repoPath := filepath.Join(reposRoot, "x")
	require.NoError(t, os.MkdirAll(repoPath, 0o755))

	cfg := &config.Config{
		Repos: map[string]*config.RepoConfig{
			"x": {Path: repoPath, WorktreeRoot: reposRoot, WorktreePrefix: "x-issue-", CLICommand: "orch"},
		},
	}

	deps := repo.Dependencies{
		VCS: session.VCSAdapter{
			CreateWorktree: func(repoPath, worktreeRoot, prefix, branch string, issueNumber int) (string, error) {
				wt := filepath.Join(worktreeRoot, prefix+itoa(issueNumber))
				return wt, os.MkdirAll(wt, 0o755)
			},
			RemoveWorktree: func(worktreePath string) error { return os.RemoveAll(worktreePath) },
			DeleteBranch:   func(repoPath, branch string, remote bool) error { return nil },
			IsDirty:        func(worktreePath string) (bool, error) { return false, nil },
		},
		Spawn: session.Spawner{
			IsAvailable: func(ctx context.Context) (bool, error) { return true, nil },
			Spawn: func(ctx context.Context, req session.SpawnRequest) (session.SpawnResult, error) {
				return session.SpawnResult{Success: true, SpawnID: session.NewSpawnID(), SpawnedAt: time.Now()}, nil
			},
			Stop: func(ctx context.Context, spawnID string) error { return nil },
		},
		SessionsRootDir: t.TempDir(),
	}

	repos, err := repo.New(context.Background(), cfg, deps, nil)
	require.NoError(t, err)

	s := NewServer(repos, cfg, events.NewNopPublisher(), nil)
	return s, repos
}

func itoa(n int) string {
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

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_SpawnAndGetSession(t *testing.T) {
	s, _ := newTestServer(t)

	body := strings.NewReader(`{"issueNumber": 5, "mode": "user-driven"}`)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions/x", body))
	require.Equal(t, http.StatusOK, rec.Code)

	var records []*session.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "5", records[0].ID)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/x/5", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_GetSession_UnknownRepoIs404(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/nope/5", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_GetSession_UnknownIDIs404(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/x/999", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_PatchSession_Pause(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions/x", strings.NewReader(`{"issueNumber": 5}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/sessions/x/5", strings.NewReader(`{"action":"pause"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var record session.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.Equal(t, session.StatusPaused, record.Status)
}

func TestServer_DeleteSession_Success(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions/x", strings.NewReader(`{"issueNumber": 5}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/sessions/x/5?force=true", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_ListRepos(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/repos", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var ids []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ids))
	assert.Equal(t, []string{"x"}, ids)
}

func TestServer_LoopControl_UnregisteredSessionIs404(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ralph/x/5/start", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_GetAuditTrail_DisabledIs404(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audit/x/5", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_GetConfig(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/config", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
