// Package vcs wraps the git binary for worktree lifecycle, branch cleanup,
// status/diff summaries, and remote URL parsing (component A).
package vcs

import (
	"bytes"
	"os/exec"
	"strings"
)

// CommandRunner executes a command in a working directory and returns
// trimmed stdout. Tests substitute a fake to avoid invoking git.
type CommandRunner interface {
	Run(workDir, name string, args ...string) (stdout string, err error)
}

// ExecRunner is the default CommandRunner, backed by os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(workDir, name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		if msg == "" {
			msg = err.Error()
		}
		return "", &CommandError{Command: name, Args: args, WorkDir: workDir, Output: msg, Err: err}
	}

	return strings.TrimSpace(stdout.String()), nil
}

// CommandError wraps a failed subprocess invocation with enough context for
// the caller to report "stderr and original command" per the error-taxonomy
// policy on external-subprocess failure.
type CommandError struct {
	Command string
	Args    []string
	WorkDir string
	Output  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Output != "" {
		return e.Output
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "command failed"
}

func (e *CommandError) Unwrap() error { return e.Err }

// CommandLine renders the failing invocation for diagnostics.
func (e *CommandError) CommandLine() string {
	return strings.TrimSpace(e.Command + " " + strings.Join(e.Args, " "))
}
