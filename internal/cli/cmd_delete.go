package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relayforge/orchestra/internal/session"
)

// newDeleteCmd creates the delete command
func newDeleteCmd() *cobra.Command {
	var mode string
	var force bool
	var retry bool
	var rollback bool

	cmd := &cobra.Command{
		Use:   "delete <repo> <id>",
		Short: "Delete a session's worktree and record",
		Long: `Delete removes a session's worktree (and optionally its branch) and its
record. A dirty worktree is refused unless --force is given, leaving the
session in deletion_failed with the worktree path preserved for inspection.

Example:
  orc delete myrepo 42
  orc delete myrepo 42 --mode everything --force
  orc delete myrepo 42 --retry           # retry after a prior failure
  orc delete myrepo 42 --rollback        # restore previous status instead`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			entry := a.repos.Get(args[0])
			if entry == nil {
				return fmt.Errorf("repo %q is not configured", args[0])
			}
			id := args[1]

			if rollback {
				record, err := entry.Service.RollbackDelete(id)
				if err != nil {
					return err
				}
				if jsonOut {
					return printJSON(record)
				}
				fmt.Printf("session %s restored to %s\n", record.ID, record.Status)
				return nil
			}

			deleteMode := session.DeleteMode(mode)
			var result session.DeleteResult
			if retry {
				result, err = entry.Service.RetryDelete(cmd.Context(), id, deleteMode)
			} else {
				result, err = entry.Service.Delete(cmd.Context(), id, deleteMode, force)
			}
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(result)
			}
			if !result.Success {
				fmt.Printf("delete failed: %s\n", result.Error)
				if result.OrphanedWorktreePath != "" {
					fmt.Printf("worktree preserved at: %s\n", result.OrphanedWorktreePath)
				}
				return nil
			}
			fmt.Printf("session %s deleted\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(session.DeleteFolderOnly), "folder-only, with-local-branch, or everything")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "delete even with uncommitted changes")
	cmd.Flags().BoolVar(&retry, "retry", false, "retry a session stuck in deletion_failed")
	cmd.Flags().BoolVar(&rollback, "rollback", false, "restore a session's previous status instead of deleting")
	return cmd
}
