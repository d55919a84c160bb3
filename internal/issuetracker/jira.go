package issuetracker

import (
	"context"
	"fmt"

	"github.com/relayforge/orchestra/internal/jira"
	"github.com/relayforge/orchestra/internal/session"
)

// JiraTracker fetches issue summary/description from Jira Cloud, reusing the
// import pipeline's client (internal/jira) rather than a second go-atlassian
// wiring.
type JiraTracker struct {
	client     *jira.Client
	projectKey string
}

// NewJiraTracker builds a tracker scoped to one project. projectKey prefixes
// the numeric issueNumber passed to Fetch into a Jira issue key (e.g.
// project "PROJ" + issueNumber 42 -> "PROJ-42"), since orc sessions are
// keyed by a bare integer but Jira issues are keyed by project-prefixed
// strings.
func NewJiraTracker(cfg jira.ClientConfig, projectKey string) (*JiraTracker, error) {
	client, err := jira.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &JiraTracker{client: client, projectKey: projectKey}, nil
}

// Fetch implements session.IssueFetcher.
func (t *JiraTracker) Fetch(ctx context.Context, repoID string, issueNumber int) (title, body string, err error) {
	key := fmt.Sprintf("%s-%d", t.projectKey, issueNumber)
	issue, err := t.client.GetIssue(ctx, key)
	if err != nil {
		return "", "", err
	}
	return issue.Summary, issue.Description, nil
}

// AsIssueFetcher adapts t to the session.IssueFetcher function type.
func (t *JiraTracker) AsIssueFetcher() session.IssueFetcher {
	return t.Fetch
}
