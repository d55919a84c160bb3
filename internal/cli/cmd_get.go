package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newGetCmd creates the get command
func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <repo> <id>",
		Short: "Show one session's full record",
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

			record, err := entry.Service.Get(args[1])
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(record)
			}

			fmt.Printf("id:          %s\n", record.ID)
			fmt.Printf("status:      %s\n", statusIcon(record.Status))
			fmt.Printf("mode:        %s\n", record.Mode)
			fmt.Printf("issue:       #%d %s\n", record.Issue.Number, record.Issue.Title)
			fmt.Printf("branch:      %s\n", record.Branch)
			fmt.Printf("worktree:    %s\n", record.WorktreePath)
			fmt.Printf("started:     %s\n", record.StartedAt.Format("2006-01-02 15:04:05"))
			fmt.Printf("heartbeat:   %s\n", record.LastHeartbeat.Format("2006-01-02 15:04:05"))
			if record.StuckReason != "" {
				fmt.Printf("stuck:       %s\n", record.StuckReason)
			}
			if record.ForwardedMessage != "" {
				fmt.Printf("forwarded:   %s\n", record.ForwardedMessage)
			}
			if record.PullRequestURL != "" {
				fmt.Printf("pr:          %s\n", record.PullRequestURL)
			}
			return nil
		},
	}
	return cmd
}
