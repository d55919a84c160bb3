// Package issuetracker implements the optional issue-title/body hydration
// hook (component L, supplemental): at spawn time a session only knows an
// issue number, and a configured tracker turns that into a human title and
// body for the prompt and dashboard. A fetch failure here is always
// non-fatal to the caller (internal/session.Service.Spawn falls back to a
// placeholder title).
package issuetracker

import (
	"context"
	"fmt"

	gogithub "github.com/google/go-github/v82/github"
	"golang.org/x/oauth2"

	"github.com/relayforge/orchestra/internal/session"
)

// GitHubTracker fetches issue title/body from GitHub via go-github.
type GitHubTracker struct {
	client *gogithub.Client
	owner  string
	repo   string
}

// NewGitHubTracker builds a tracker scoped to one owner/repo, authenticated
// with token (a personal access token or GitHub App installation token).
func NewGitHubTracker(owner, repo, token string) *GitHubTracker {
	httpClient := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	))
	return &GitHubTracker{
		client: gogithub.NewClient(httpClient),
		owner:  owner,
		repo:   repo,
	}
}

// NewGitHubEnterpriseTracker targets a GitHub Enterprise Server instance at
// baseURL instead of github.com.
func NewGitHubEnterpriseTracker(owner, repo, token, baseURL string) (*GitHubTracker, error) {
	t := NewGitHubTracker(owner, repo, token)
	client, err := t.client.WithEnterpriseURLs(baseURL, baseURL)
	if err != nil {
		return nil, fmt.Errorf("configure enterprise base URL: %w", err)
	}
	t.client = client
	return t, nil
}

// Fetch implements session.IssueFetcher. repoID is accepted for interface
// conformance but ignored: a tracker is already scoped to one owner/repo at
// construction, matching how the multi-repository service (component I)
// builds one IssueFetcher per configured repo.
func (t *GitHubTracker) Fetch(ctx context.Context, repoID string, issueNumber int) (title, body string, err error) {
	issue, resp, err := t.client.Issues.Get(ctx, t.owner, t.repo, issueNumber)
	if err != nil {
		if resp != nil {
			return "", "", fmt.Errorf("fetch github issue #%d: %s: %w", issueNumber, resp.Status, err)
		}
		return "", "", fmt.Errorf("fetch github issue #%d: %w", issueNumber, err)
	}
	return issue.GetTitle(), issue.GetBody(), nil
}

// AsIssueFetcher adapts t to the session.IssueFetcher function type.
func (t *GitHubTracker) AsIssueFetcher() session.IssueFetcher {
	return t.Fetch
}
