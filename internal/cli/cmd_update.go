package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/relayforge/orchestra/internal/session"
)

// newUpdateCmd creates the update command
func newUpdateCmd() *cobra.Command {
	var id string
	var repoID string
	var reason string
	var prURL string

	cmd := &cobra.Command{
		Use:   "update <status>",
		Short: "Report a status transition from inside a worker's worktree",
		Long: `Update is the command a worker invokes on its own behalf (the command
string written into its session context's commands.update field) to report
a status transition.

Without --id/--repo, the session and repo ids are read from the worktree's
session context file in the current directory.

Example:
  orc update stuck --reason "tests keep failing"
  orc update shipping --pr-url https://github.com/acme/app/pull/12`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			resolvedRepo, resolvedID := repoID, id
			if resolvedRepo == "" || resolvedID == "" {
				cwd, err := os.Getwd()
				if err != nil {
					return fmt.Errorf("resolve working directory: %w", err)
				}
				ctx, err := session.ReadContext(cwd)
				if err != nil {
					return fmt.Errorf("read session context (pass --id/--repo outside a worktree): %w", err)
				}
				resolvedRepo, resolvedID = ctx.RepoID, ctx.SessionID
			}

			entry := a.repos.Get(resolvedRepo)
			if entry == nil {
				return fmt.Errorf("repo %q is not configured", resolvedRepo)
			}

			record, err := entry.Service.Update(cmd.Context(), resolvedID, session.Status(args[0]), reason, prURL)
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(record)
			}
			fmt.Printf("session %s now %s\n", record.ID, record.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "session id (defaults to the worktree's session context)")
	cmd.Flags().StringVar(&repoID, "repo", "", "repo id (defaults to the worktree's session context)")
	cmd.Flags().StringVar(&reason, "reason", "", "required when transitioning to stuck")
	cmd.Flags().StringVar(&prURL, "pr-url", "", "pull request URL, required when transitioning to shipping")
	return cmd
}

// newHeartbeatCmd creates the heartbeat command
func newHeartbeatCmd() *cobra.Command {
	var id string
	var repoID string

	cmd := &cobra.Command{
		Use:   "heartbeat",
		Short: "Refresh a session's liveness timestamp",
		Long: `Heartbeat is the command a worker invokes periodically (the command
string written into its session context's commands.heartbeat field) so the
staleness check (§8) does not mistake it for a crashed worker.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			resolvedRepo, resolvedID := repoID, id
			if resolvedRepo == "" || resolvedID == "" {
				cwd, err := os.Getwd()
				if err != nil {
					return fmt.Errorf("resolve working directory: %w", err)
				}
				sctx, err := session.ReadContext(cwd)
				if err != nil {
					return fmt.Errorf("read session context (pass --id/--repo outside a worktree): %w", err)
				}
				resolvedRepo, resolvedID = sctx.RepoID, sctx.SessionID
			}

			entry := a.repos.Get(resolvedRepo)
			if entry == nil {
				return fmt.Errorf("repo %q is not configured", resolvedRepo)
			}

			result, err := entry.Service.Heartbeat(resolvedID)
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(result)
			}
			if result.HasMessage {
				fmt.Println("heartbeat recorded — a message is waiting (orc forward --ack to clear it after reading)")
			} else {
				fmt.Println("heartbeat recorded")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "session id (defaults to the worktree's session context)")
	cmd.Flags().StringVar(&repoID, "repo", "", "repo id (defaults to the worktree's session context)")
	return cmd
}
