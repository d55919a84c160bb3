package hook

import (
	"context"
	"log/slog"

	"github.com/relayforge/orchestra/internal/config"
	"github.com/relayforge/orchestra/internal/session"
)

// ReactionHooks lists the lifecycle points whose hook failure is
// reported-only: Dispatcher.Run logs it and never returns it as an error.
// As DESIGN.md's Open Question #3 resolution records, no lifecycle hook
// blocks a transition on failure, so every hook point is listed here and
// there is no separate set of gating hooks.
var ReactionHooks = map[string]bool{
	"onSpawn":     true,
	"onStuck":     true,
	"onShip":      true,
	"onComplete":  true,
	"onTest":      true,
	"onIteration": true,
}

// Dispatcher resolves the effective hook for a (repo, hookName) pair from
// configuration and runs it, implementing session.HookRunner.
type Dispatcher struct {
	Config   *config.Config
	Executor *Executor
	Logger   *slog.Logger
}

// NewDispatcher returns a Dispatcher reading hook definitions from cfg.
func NewDispatcher(cfg *config.Config, executor *Executor, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{Config: cfg, Executor: executor, Logger: logger}
}

// Run looks up the effective hook for hookName in repoID's scope. A
// missing hook or a prompt-type hook (injected into the worker prompt
// elsewhere, never executed here) is a no-op success. A command hook runs
// synchronously in a subshell rooted at the session's worktree; its
// failure is logged and returned, never wrapped as a fatal error, per the
// "reported-only" precedent carried over from the trigger runner.
func (d *Dispatcher) Run(ctx context.Context, hookName string, record *session.Record, repoID, issueTitle string) (session.HookResult, error) {
	h, ok := d.Config.EffectiveHook(repoID, config.HookName(hookName))
	if !ok {
		return session.HookResult{Success: true}, nil
	}
	if h.Type != config.HookTypeCommand {
		return session.HookResult{Success: true}, nil
	}

	vars := Vars(record, repoID, issueTitle)

	result, err := d.Executor.RunCommand(ctx, h.Value, record.WorktreePath, vars)
	if err != nil {
		d.Logger.Warn("hook command failed to run", "hook", hookName, "session", record.ID, "error", err)
		return session.HookResult{}, nil
	}
	if !result.Success {
		d.Logger.Warn("hook command exited non-zero", "hook", hookName, "session", record.ID, "error", result.Error)
	}
	return result, nil
}

// PromptFragment returns the literal text of a prompt-type hook for
// hookName in repoID's scope, for the worker-prompt builder to splice in.
// Returns ok=false for a missing hook or a command-type hook.
func (d *Dispatcher) PromptFragment(repoID string, hookName config.HookName) (string, bool) {
	h, ok := d.Config.EffectiveHook(repoID, hookName)
	if !ok || h.Type != config.HookTypePrompt {
		return "", false
	}
	return h.Value, true
}
