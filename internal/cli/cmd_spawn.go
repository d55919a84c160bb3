package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/relayforge/orchestra/internal/session"
)

// newSpawnCmd creates the spawn command
func newSpawnCmd() *cobra.Command {
	var mode string
	var promptInjection string

	cmd := &cobra.Command{
		Use:   "spawn <repo> <issue>",
		Short: "Spawn a worker against an issue",
		Long: `Spawn creates a worktree, writes the session context and worker prompt,
and launches a worker for the given issue number.

Example:
  orc spawn myrepo 42
  orc spawn myrepo 42 --mode iterative
  orc spawn myrepo 42 --inject "focus on the error path first"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			repoID := args[0]
			issueNumber, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid issue number %q: %w", args[1], err)
			}

			entry := a.repos.Get(repoID)
			if entry == nil {
				return fmt.Errorf("repo %q is not configured", repoID)
			}

			record, err := entry.Service.Spawn(cmd.Context(), issueNumber, session.SpawnOptions{
				Mode:            session.Mode(mode),
				PromptInjection: promptInjection,
			})
			if err != nil {
				return err
			}

			startLoopIfIterative(cmd.Context(), entry, record, &a.cfg.Config, a.logger)

			if jsonOut {
				return printJSON(record)
			}
			fmt.Printf("spawned session %s (%s) — %s\n", record.ID, record.Mode, record.WorktreePath)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(session.ModeUserDriven), "session mode: user-driven, autonomous-one-shot, iterative")
	cmd.Flags().StringVar(&promptInjection, "inject", "", "literal text injected into the worker prompt")
	return cmd
}
