package vcs

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// BranchName returns the branch created for an issue, e.g. "issue-42".
func BranchName(issueNumber int) string {
	return fmt.Sprintf("issue-%d", issueNumber)
}

// WorktreeDirName returns the directory name for an issue's worktree given
// the repo's configured prefix, e.g. prefix "x-issue-" -> "x-issue-42".
func WorktreeDirName(prefix string, issueNumber int) string {
	return fmt.Sprintf("%s%d", prefix, issueNumber)
}

// WorktreePath joins a worktree root and the prefixed directory name.
func WorktreePath(worktreeRoot, prefix string, issueNumber int) string {
	return filepath.Join(worktreeRoot, WorktreeDirName(prefix, issueNumber))
}

// ParseIssueFromWorktreeDir extracts the issue number from a worktree
// directory name given the configured prefix. Used by orphan-worktree
// detection, which only has a directory name and no session record.
func ParseIssueFromWorktreeDir(dirName, prefix string) (issueNumber int, ok bool) {
	if !strings.HasPrefix(dirName, prefix) {
		return 0, false
	}
	rest := strings.TrimPrefix(dirName, prefix)
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

var (
	sshRemoteRE   = regexp.MustCompile(`^git@([^:]+):(.+?)(?:\.git)?$`)
	httpsRemoteRE = regexp.MustCompile(`^https?://[^/]+/(.+?)(?:\.git)?/?$`)
)

// ParseRemoteURL splits a git remote URL into (owner, repo). Supports both
// SSH (git@host:owner/repo.git) and HTTPS (https://host/owner/repo.git)
// forms. No caller in this module uses it; issue-tracker owner/repo are
// taken from the configuration.
func ParseRemoteURL(remoteURL string) (owner, repo string, ok bool) {
	remoteURL = strings.TrimSpace(remoteURL)

	var path string
	if m := sshRemoteRE.FindStringSubmatch(remoteURL); m != nil {
		path = m[2]
	} else if m := httpsRemoteRE.FindStringSubmatch(remoteURL); m != nil {
		path = m[1]
	} else {
		return "", "", false
	}

	parts := strings.Split(path, "/")
	if len(parts) < 2 {
		return "", "", false
	}
	owner = parts[len(parts)-2]
	repo = strings.TrimSuffix(parts[len(parts)-1], ".git")
	if owner == "" || repo == "" {
		return "", "", false
	}
	return owner, repo, true
}
