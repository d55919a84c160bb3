package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newPauseCmd creates the pause command
func newPauseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pause <repo> <id>",
		Short: "Pause a working session",
		Long: `Pause a session that is currently working or stuck, leaving its worktree
and worker state untouched.

Example:
  orc pause myrepo 42
  orc resume myrepo 42   # continue later`,
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

			record, err := entry.Service.Pause(cmd.Context(), args[1])
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(record)
			}
			fmt.Printf("session %s paused\n", record.ID)
			return nil
		},
	}
	return cmd
}

// newResumeCmd creates the resume command
func newResumeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume <repo> <id>",
		Short: "Resume a paused session",
		Args:  cobra.ExactArgs(2),
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

			record, err := entry.Service.Resume(cmd.Context(), args[1])
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(record)
			}
			fmt.Printf("session %s resumed\n", record.ID)
			return nil
		},
	}
	return cmd
}
