package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newForwardCmd creates the forward command
func newForwardCmd() *cobra.Command {
	var ack bool

	cmd := &cobra.Command{
		Use:   "forward <repo> <id> [message]",
		Short: "Forward a message to a running worker, or acknowledge it",
		Long: `Forward writes a message into the session's dynamic-state file, which the
worker reads alongside its main record (§3).

Example:
  orc forward myrepo 42 "the tests need a fixture, see issue #50"
  orc forward myrepo 42 --ack   # clear the forwarded message`,
		Args: cobra.RangeArgs(2, 3),
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

			if ack {
				rec, err := entry.Service.Acknowledge(id)
				if err != nil {
					return err
				}
				if jsonOut {
					return printJSON(rec)
				}
				fmt.Printf("session %s message acknowledged\n", rec.ID)
				return nil
			}

			if len(args) != 3 {
				return fmt.Errorf("forward requires a message (or --ack to clear one)")
			}
			rec, err := entry.Service.Forward(id, args[2])
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(rec)
			}
			fmt.Printf("message forwarded to session %s\n", rec.ID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&ack, "ack", false, "acknowledge (clear) the forwarded message instead")
	return cmd
}
