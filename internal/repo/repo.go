// Package repo implements the multi-repository service (component I): it
// fans every other component out across all repositories named in the
// central configuration document, holds one session.Service and one
// loop.Manager per repository, and detects worktrees left behind by a
// crash that no session record still claims.
package repo

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/relayforge/orchestra/internal/audit"
	"github.com/relayforge/orchestra/internal/config"
	"github.com/relayforge/orchestra/internal/events"
	"github.com/relayforge/orchestra/internal/hook"
	"github.com/relayforge/orchestra/internal/loop"
	"github.com/relayforge/orchestra/internal/session"
	"github.com/relayforge/orchestra/internal/vcs"
)

// Entry bundles one configured repository's wired session service together
// with its id and the iterative-loop manager driving its sessions.
type Entry struct {
	ID      string
	Config  config.RepoConfig
	Service *session.Service
	Loops   *loop.Manager
}

// Service fans the per-repository components out across every repo named in
// cfg.Repos.
type Service struct {
	Entries map[string]*Entry
	Audit   audit.Store // nil when audit recording is disabled
	logger  *slog.Logger
}

// Dependencies are the shared, process-wide component instances every
// per-repo session.Service is built from; only Repo, Store, and the
// per-repo IssueFetcher vary per entry.
type Dependencies struct {
	VCS        session.VCSAdapter
	Spawn      session.Spawner
	Dispatcher *hook.Dispatcher
	Publisher  events.Publisher
	Audit      audit.Store // shared across every repo; nil disables audit recording
	SessionsRootDir string // parent directory; one subdirectory per repo id holds that repo's session store
	IssueFetcherFor func(repoID string, trackerCfg *config.IssueTrackerConfig) session.IssueFetcher
}

// New builds one Entry per repository in cfg.Repos.
func New(ctx context.Context, cfg *config.Config, deps Dependencies, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	svc := &Service{Entries: make(map[string]*Entry, len(cfg.Repos)), Audit: deps.Audit, logger: logger}

	for id, repoCfg := range cfg.Repos {
		store, err := session.NewStore(filepath.Join(deps.SessionsRootDir, id))
		if err != nil {
			return nil, fmt.Errorf("repo %s: open session store: %w", id, err)
		}

		var issueFetcher session.IssueFetcher
		if deps.IssueFetcherFor != nil {
			issueFetcher = deps.IssueFetcherFor(id, cfg.EffectiveIssueTracker(id))
		}

		hooksRunner := session.HookRunner{}
		if deps.Dispatcher != nil {
			hooksRunner.Run = deps.Dispatcher.Run
		}

		var auditRecorder session.AuditRecorder
		if deps.Audit != nil {
			auditRecorder = audit.AsAuditRecorder(deps.Audit, logger)
		}

		entry := &Entry{
			ID:     id,
			Config: *repoCfg,
			Service: &session.Service{
				Repo: session.RepoConfig{
					ID:             id,
					Path:           repoCfg.Path,
					Branch:         repoCfg.BaseBranch,
					WorktreeRoot:   repoCfg.WorktreeRoot,
					WorktreePrefix: repoCfg.WorktreePrefix,
					CLICommand:     repoCfg.CLICommand,
				},
				Store:     store,
				VCS:       deps.VCS,
				Spawn:     deps.Spawn,
				Hooks:     hooksRunner,
				Issues:    issueFetcher,
				Audit:     auditRecorder,
				Publisher: deps.Publisher,
			},
			Loops: loop.NewManager(ctx),
		}
		svc.Entries[id] = entry
	}

	return svc, nil
}

// Get returns the entry for repoID, or nil if not configured.
func (s *Service) Get(repoID string) *Entry {
	return s.Entries[repoID]
}

// ListAll fans List across every repository concurrently, bounded by
// errgroup, and returns one combined slice plus the repo id each session
// belongs to (already set on Record.RepoID by the per-repo service).
func (s *Service) ListAll(ctx context.Context, opts session.ListOptions) ([]*session.Record, error) {
	type result struct {
		records []*session.Record
	}
	results := make([]result, 0, len(s.Entries))
	ids := make([]string, 0, len(s.Entries))
	for id := range s.Entries {
		ids = append(ids, id)
		results = append(results, result{})
	}

	g, _ := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			records, err := s.Entries[id].Service.List(opts)
			if err != nil {
				return fmt.Errorf("repo %s: %w", id, err)
			}
			results[i] = result{records: records}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []*session.Record
	for _, r := range results {
		all = append(all, r.records...)
	}
	return all, nil
}

// OrphanWorktree is a worktree directory under a repo's worktree root that
// no live session record claims — typically left behind by an orchestrator
// crash between worktree creation and session-record save, or a manually
// deleted work-<id>.json.
type OrphanWorktree struct {
	RepoID      string
	Path        string
	IssueNumber int
}

// DetectOrphans scans every configured repository's worktree root for
// directories matching the worktree-prefix naming convention
// (internal/vcs.ParseIssueFromWorktreeDir) that have no corresponding
// session record (a record in a terminal state still counts as a match).
func (s *Service) DetectOrphans() ([]OrphanWorktree, error) {
	var orphans []OrphanWorktree

	for id, entry := range s.Entries {
		root := entry.Config.WorktreeRoot
		if root == "" {
			continue
		}
		dirEntries, err := os.ReadDir(root)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("repo %s: scan worktree root: %w", id, err)
		}

		records, err := entry.Service.Store.ListAll()
		if err != nil {
			return nil, fmt.Errorf("repo %s: list sessions: %w", id, err)
		}
		claimed := make(map[string]bool, len(records))
		for _, r := range records {
			claimed[r.WorktreePath] = true
		}

		for _, de := range dirEntries {
			if !de.IsDir() {
				continue
			}
			issueNumber, ok := vcs.ParseIssueFromWorktreeDir(de.Name(), entry.Config.WorktreePrefix)
			if !ok {
				continue
			}
			path := filepath.Join(root, de.Name())
			if claimed[path] {
				continue
			}
			orphans = append(orphans, OrphanWorktree{RepoID: id, Path: path, IssueNumber: issueNumber})
		}
	}

	return orphans, nil
}
