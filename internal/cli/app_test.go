package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayforge/orchestra/internal/config"
)

func TestIssueFetcherFor_NilConfigReturnsNil(t *testing.T) {
	assert.Nil(t, issueFetcherFor("repo", nil))
}

func TestIssueFetcherFor_GitHubBuildsFetcher(t *testing.T) {
	fetcher := issueFetcherFor("repo", &config.IssueTrackerConfig{
		Type:  config.IssueTrackerGitHub,
		Owner: "acme",
		Repo:  "widgets",
		Token: "tok",
	})
	require.NotNil(t, fetcher)
}

func TestIssueFetcherFor_GitLabBuildsFetcher(t *testing.T) {
	fetcher := issueFetcherFor("repo", &config.IssueTrackerConfig{
		Type:      config.IssueTrackerGitLab,
		ProjectID: "123",
		Token:     "tok",
	})
	require.NotNil(t, fetcher)
}

func TestIssueFetcherFor_JiraMissingFieldsReturnsNil(t *testing.T) {
	fetcher := issueFetcherFor("repo", &config.IssueTrackerConfig{
		Type:       config.IssueTrackerJira,
		ProjectKey: "ORC",
	})
	assert.Nil(t, fetcher)
}

func TestIssueFetcherFor_JiraBuildsFetcher(t *testing.T) {
	fetcher := issueFetcherFor("repo", &config.IssueTrackerConfig{
		Type:       config.IssueTrackerJira,
		BaseURL:    "https://acme.atlassian.net",
		Email:      "bot@acme.com",
		Token:      "tok",
		ProjectKey: "ORC",
	})
	require.NotNil(t, fetcher)
}

func TestIssueFetcherFor_UnknownTypeReturnsNil(t *testing.T) {
	fetcher := issueFetcherFor("repo", &config.IssueTrackerConfig{Type: "carrier-pigeon"})
	assert.Nil(t, fetcher)
}
