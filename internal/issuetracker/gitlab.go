package issuetracker

import (
	"context"
	"fmt"

	gogitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/relayforge/orchestra/internal/session"
)

// GitLabTracker fetches issue title/description from GitLab via
// gitlab.com/gitlab-org/api/client-go, the same project/issue IID addressing
// the hosting MR provider uses for merge requests.
type GitLabTracker struct {
	client    *gogitlab.Client
	projectID string
}

// NewGitLabTracker builds a tracker scoped to one project (numeric id or
// URL-encoded "owner/repo" path), against gitlab.com unless baseURL is set.
func NewGitLabTracker(projectID, token, baseURL string) (*GitLabTracker, error) {
	var (
		client *gogitlab.Client
		err    error
	)
	if baseURL != "" {
		client, err = gogitlab.NewClient(token, gogitlab.WithBaseURL(baseURL+"/api/v4"))
	} else {
		client, err = gogitlab.NewClient(token)
	}
	if err != nil {
		return nil, fmt.Errorf("create gitlab client: %w", err)
	}
	return &GitLabTracker{client: client, projectID: projectID}, nil
}

// Fetch implements session.IssueFetcher.
func (t *GitLabTracker) Fetch(ctx context.Context, repoID string, issueNumber int) (title, body string, err error) {
	issue, _, err := t.client.Issues.GetIssue(t.projectID, issueNumber, gogitlab.WithContext(ctx))
	if err != nil {
		return "", "", fmt.Errorf("fetch gitlab issue !%d: %w", issueNumber, err)
	}
	return issue.Title, issue.Description, nil
}

// AsIssueFetcher adapts t to the session.IssueFetcher function type.
func (t *GitLabTracker) AsIssueFetcher() session.IssueFetcher {
	return t.Fetch
}
