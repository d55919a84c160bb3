package session

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/relayforge/orchestra/internal/util"
)

const promptRelPath = ".claude/session-prompt.md"

// writePrompt renders and atomically writes the human-readable worker
// prompt into worktreePath, returning its path. injection, when non-empty,
// is a prompt hook's literal text appended to the rendered prompt (§4.9).
func writePrompt(worktreePath string, record *Record, injection string) (string, error) {
	promptPath := filepath.Join(worktreePath, promptRelPath)
	if err := os.MkdirAll(filepath.Dir(promptPath), 0o755); err != nil {
		return "", fmt.Errorf("create prompt dir: %w", err)
	}

	body := fmt.Sprintf("# Issue #%d: %s\n\n%s\n\nSession: %s\nBranch: %s\n",
		record.Issue.Number, record.Issue.Title, record.Issue.Body, record.ID, record.Branch)
	if injection != "" {
		body += "\n---\n\n" + injection + "\n"
	}

	if err := util.AtomicWriteFile(promptPath, []byte(body), 0o644); err != nil {
		return "", err
	}
	return promptPath, nil
}
