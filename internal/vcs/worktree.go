package vcs

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Adapter is the concrete version-control adapter (component A). Its
// exported methods match the session package's VCSAdapter capability-set
// field signatures one-for-one, so wiring is a direct assignment:
//
//	session.VCSAdapter{
//		CreateWorktree: adapter.CreateWorktree,
//		RemoveWorktree: adapter.RemoveWorktree,
//		DeleteBranch:   adapter.DeleteBranch,
//		IsDirty:        adapter.IsDirty,
//	}
type Adapter struct {
	Runner CommandRunner

	// mu serializes the create-worktree compound operation (attempt,
	// fall back, prune, retry) so concurrent spawns don't prune each
	// other's in-flight worktree registration.
	mu sync.Mutex
}

// NewAdapter returns an Adapter backed by the system git binary.
func NewAdapter() *Adapter {
	return &Adapter{Runner: ExecRunner{}}
}

func (a *Adapter) run(workDir, name string, args ...string) (string, error) {
	return a.Runner.Run(workDir, name, args...)
}

// CreateWorktree creates an isolated worktree for an issue on branch,
// branching from the repository's current HEAD. If the branch already
// exists, it attaches the worktree to the existing branch instead. If both
// attempts fail, it prunes stale worktree registrations (a worktree
// directory removed outside of git, leaving git's bookkeeping stale) and
// retries both forms once before giving up.
func (a *Adapter) CreateWorktree(repoPath, worktreeRoot, prefix, branch string, issueNumber int) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(worktreeRoot, 0o755); err != nil {
		return "", fmt.Errorf("create worktree root: %w", err)
	}

	worktreePath := WorktreePath(worktreeRoot, prefix, issueNumber)

	if _, err := a.run(repoPath, "git", "worktree", "add", "-b", branch, worktreePath); err == nil {
		return worktreePath, nil
	}

	if _, err := a.run(repoPath, "git", "worktree", "add", worktreePath, branch); err == nil {
		return worktreePath, nil
	}

	_, _ = a.run(repoPath, "git", "worktree", "prune")

	if _, err := a.run(repoPath, "git", "worktree", "add", "-b", branch, worktreePath); err == nil {
		return worktreePath, nil
	}

	out, err := a.run(repoPath, "git", "worktree", "add", worktreePath, branch)
	if err != nil {
		return "", err
	}
	_ = out
	return worktreePath, nil
}

// RemoveWorktree removes a worktree directory and its git registration.
// Falls back to a forced removal of the working copy itself if `git
// worktree remove` refuses (e.g. the directory has uncommitted changes);
// callers are expected to have already checked IsDirty and obtained
// confirmation before forcing.
func (a *Adapter) RemoveWorktree(worktreePath string) error {
	if _, err := a.run(worktreePath, "git", "worktree", "remove", "--force", worktreePath); err != nil {
		if rmErr := os.RemoveAll(worktreePath); rmErr != nil {
			return fmt.Errorf("remove worktree %s: %w (fallback rm also failed: %v)", worktreePath, err, rmErr)
		}
	}
	return nil
}

// DeleteBranch deletes branch locally, and on the remote too when remote is
// true.
func (a *Adapter) DeleteBranch(repoPath, branch string, remote bool) error {
	if _, err := a.run(repoPath, "git", "branch", "-D", branch); err != nil {
		return err
	}
	if remote {
		if _, err := a.run(repoPath, "git", "push", "origin", "--delete", branch); err != nil {
			return err
		}
	}
	return nil
}

// IsDirty reports whether worktreePath has uncommitted changes (tracked or
// untracked), used to gate non-forced deletion.
func (a *Adapter) IsDirty(worktreePath string) (bool, error) {
	out, err := a.run(worktreePath, "git", "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// DiffSummary is a computed working-tree diff summary. The `get` command
// and the dashboards do not display it.
type DiffSummary struct {
	FilesChanged int
	Insertions   int
	Deletions    int
}

// StatusAndDiff computes the changed-file count alongside an
// insertion/deletion shortstat from `git diff --shortstat HEAD`. No caller
// in this module uses it.
func (a *Adapter) StatusAndDiff(worktreePath string) (DiffSummary, error) {
	stat, err := a.run(worktreePath, "git", "diff", "--shortstat", "HEAD")
	if err != nil {
		return DiffSummary{}, err
	}
	return parseShortstat(stat), nil
}

// parseShortstat parses a line like:
//
//	"3 files changed, 42 insertions(+), 7 deletions(-)"
func parseShortstat(line string) DiffSummary {
	var s DiffSummary
	for _, part := range strings.Split(line, ",") {
		part = strings.TrimSpace(part)
		fields := strings.Fields(part)
		if len(fields) < 2 {
			continue
		}
		n := 0
		fmt.Sscanf(fields[0], "%d", &n)
		switch {
		case strings.Contains(part, "file"):
			s.FilesChanged = n
		case strings.Contains(part, "insertion"):
			s.Insertions = n
		case strings.Contains(part, "deletion"):
			s.Deletions = n
		}
	}
	return s
}

// RemoteURL returns the URL configured for remote in repoPath. No caller in
// this module uses it.
func (a *Adapter) RemoteURL(repoPath, remote string) (string, error) {
	return a.run(repoPath, "git", "remote", "get-url", remote)
}

// PruneWorktrees removes stale worktree registrations whose directories no
// longer exist. Orphan-worktree detection (internal/repo) does not call it.
func (a *Adapter) PruneWorktrees(repoPath string) error {
	_, err := a.run(repoPath, "git", "worktree", "prune")
	return err
}
