// Package hook implements the lifecycle hook executor (component F):
// running a configured command hook for a named lifecycle point
// (onSpawn, onStuck, onShip, onComplete, onTest, onIteration), with
// ${var} substitution against the session's identity fields.
package hook

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"time"

	"github.com/relayforge/orchestra/internal/session"
)

const defaultTimeout = 30 * time.Second

var varPattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Vars builds the substitution set for a command hook template from a
// session record plus the issue title (which may be hydrated separately
// from the record, per the issue provider's non-fatal-on-failure
// contract).
func Vars(record *session.Record, repoID, issueTitle string) map[string]string {
	return map[string]string{
		"sessionId":  record.ID,
		"issueNumber": strconv.Itoa(record.Issue.Number),
		"repoId":       repoID,
		"worktreePath": record.WorktreePath,
		"branch":       record.Branch,
		"status":       string(record.Status),
		"issueTitle":   issueTitle,
	}
}

// Substitute replaces ${var} occurrences in template using vars. Missing
// variables are replaced with the empty string; there is no quoting —
// per spec, that's the hook author's responsibility.
func Substitute(template string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := match[2 : len(match)-1]
		return vars[name]
	})
}

// Executor runs command hooks in a subshell.
type Executor struct {
	Timeout time.Duration
}

// NewExecutor returns an Executor using defaultTimeout when timeout <= 0.
func NewExecutor(timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Executor{Timeout: timeout}
}

// RunCommand substitutes vars into commandTemplate and runs the result in
// a subshell with workDir as its working directory, capturing combined
// stdout/stderr and wall-clock duration. A non-zero exit code is reported
// via HookResult.Success=false, not a returned error — errors are
// reserved for infrastructure failures (the shell itself couldn't start).
func (e *Executor) RunCommand(ctx context.Context, commandTemplate, workDir string, vars map[string]string) (session.HookResult, error) {
	command := Substitute(commandTemplate, vars)

	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = workDir
	cmd.WaitDelay = time.Second

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return session.HookResult{}, fmt.Errorf("run hook command: %w", ctx.Err())
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			return session.HookResult{
				Success:    false,
				Output:     out.String(),
				Error:      fmt.Sprintf("exit code %d", exitErr.ExitCode()),
				DurationMs: duration.Milliseconds(),
			}, nil
		}
		return session.HookResult{}, fmt.Errorf("run hook command: %w", err)
	}

	return session.HookResult{
		Success:    true,
		Output:     out.String(),
		DurationMs: duration.Milliseconds(),
	}, nil
}
