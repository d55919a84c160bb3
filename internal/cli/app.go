// Package cli implements the orc command-line interface.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/relayforge/orchestra/internal/audit"
	"github.com/relayforge/orchestra/internal/config"
	"github.com/relayforge/orchestra/internal/events"
	"github.com/relayforge/orchestra/internal/hook"
	"github.com/relayforge/orchestra/internal/issuetracker"
	"github.com/relayforge/orchestra/internal/jira"
	"github.com/relayforge/orchestra/internal/loop"
	"github.com/relayforge/orchestra/internal/repo"
	"github.com/relayforge/orchestra/internal/session"
	"github.com/relayforge/orchestra/internal/spawner"
	"github.com/relayforge/orchestra/internal/vcs"
)

// app bundles every wired component a command needs, built fresh per
// invocation the way the teacher's getBackend() opens a storage backend per
// command rather than holding one open across the process lifetime.
type app struct {
	cfg       *config.TrackedConfig
	repos     *repo.Service
	publisher events.Publisher
	audit     audit.Store // nil when disabled; same instance as repos.Audit
	logger    *slog.Logger
}

// buildApp loads the central configuration document and wires every
// component (component I's dependency set) into one multi-repository
// service, following the same New()-per-command shape the teacher's
// getBackend() uses rather than keeping long-lived global state.
func buildApp(cmd *cobra.Command) (*app, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger := newLogger()

	path := cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
	}
	tc, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg := &tc.Config

	publisher := events.NewMemoryPublisher()

	var repos *repo.Service
	tracker := spawner.NewTracker(2*time.Second, func(spawnID string) {
		if repos == nil {
			return
		}
		for _, entry := range repos.Entries {
			entry.Loops.HandleExit(spawnID)
		}
	})

	defaultCLICommand := cfg.CLICommand
	if defaultCLICommand == "" {
		defaultCLICommand = "orch"
	}
	spawn := session.Spawner{}
	headless := spawner.NewHeadless(tracker, defaultCLICommand)
	spawn.Name = headless.Name
	spawn.IsAvailable = headless.IsAvailable
	spawn.Spawn = headless.Spawn
	spawn.Stop = headless.Stop

	adapter := vcs.NewAdapter()
	vcsAdapter := session.VCSAdapter{
		CreateWorktree: adapter.CreateWorktree,
		RemoveWorktree: adapter.RemoveWorktree,
		DeleteBranch:   adapter.DeleteBranch,
		IsDirty:        adapter.IsDirty,
	}

	dispatcher := hook.NewDispatcher(cfg, hook.NewExecutor(30*time.Second), logger)

	sessionsRoot := cfg.Dashboard.SessionsDir
	if sessionsRoot == "" {
		sessionsRoot = filepath.Join(filepath.Dir(path), "sessions")
	}

	var auditStore audit.Store
	sqlitePath := filepath.Join(sessionsRoot, ".audit.db")
	auditStore, err = audit.Open(cfg.Audit, sqlitePath)
	if err != nil {
		logger.Warn("audit store disabled", "error", err)
		auditStore = nil
	}

	deps := repo.Dependencies{
		VCS:             vcsAdapter,
		Spawn:           spawn,
		Dispatcher:      dispatcher,
		Publisher:       publisher,
		Audit:           auditStore,
		SessionsRootDir: sessionsRoot,
		IssueFetcherFor: issueFetcherFor,
	}

	repos, err = repo.New(ctx, cfg, deps, logger)
	if err != nil {
		return nil, fmt.Errorf("wire repositories: %w", err)
	}

	go tracker.Run(ctx)

	return &app{cfg: tc, repos: repos, publisher: publisher, audit: auditStore, logger: logger}, nil
}

// issueFetcherFor builds the optional issue-title/body hydrator for one
// repository from its effective issue-tracker config (component L).
func issueFetcherFor(repoID string, trackerCfg *config.IssueTrackerConfig) session.IssueFetcher {
	if trackerCfg == nil {
		return nil
	}

	switch trackerCfg.Type {
	case config.IssueTrackerGitHub:
		if trackerCfg.BaseURL != "" {
			t, err := issuetracker.NewGitHubEnterpriseTracker(trackerCfg.Owner, trackerCfg.Repo, trackerCfg.Token, trackerCfg.BaseURL)
			if err != nil {
				return nil
			}
			return t.AsIssueFetcher()
		}
		return issuetracker.NewGitHubTracker(trackerCfg.Owner, trackerCfg.Repo, trackerCfg.Token).AsIssueFetcher()

	case config.IssueTrackerGitLab:
		t, err := issuetracker.NewGitLabTracker(trackerCfg.ProjectID, trackerCfg.Token, trackerCfg.BaseURL)
		if err != nil {
			return nil
		}
		return t.AsIssueFetcher()

	case config.IssueTrackerJira:
		t, err := issuetracker.NewJiraTracker(jira.ClientConfig{
			BaseURL:  trackerCfg.BaseURL,
			Email:    trackerCfg.Email,
			APIToken: trackerCfg.Token,
		}, trackerCfg.ProjectKey)
		if err != nil {
			return nil
		}
		return t.AsIssueFetcher()
	}

	return nil
}

// close releases the app's process-wide resources (currently just the
// audit store's database handle).
func (a *app) close() {
	if a.audit != nil {
		_ = a.audit.Close()
	}
}

// newLogger builds the shared structured logger, text-formatted for a
// terminal and otherwise left at its slog default.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// startLoopIfIterative registers and starts an iterative-mode session's
// loop controller immediately after Spawn, per the API's documented
// contract that a session's controller is registered by whichever caller
// started its loop.
func startLoopIfIterative(ctx context.Context, entry *repo.Entry, record *session.Record, cfg *config.Config, logger *slog.Logger) {
	if record.Mode != session.ModeIterative {
		return
	}

	c := loop.NewController(record.ID, entry.Service,
		loop.WithMaxIterations(cfg.Ralph.MaxIterations),
		loop.WithIterationDelay(time.Duration(cfg.Ralph.IterationDelayMs)*time.Millisecond),
		loop.WithLogger(logger),
	)
	entry.Loops.Register(record.ID, c, record.SpawnID)
	if err := c.Start(ctx, cfg.Ralph.MaxIterations); err != nil {
		logger.Warn("start iterative loop", "session", record.ID, "error", err)
	}
}
