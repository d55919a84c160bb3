package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newLoopCmd creates the loop command group
func newLoopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loop",
		Short: "Control an iterative-mode session's loop controller",
	}
	cmd.AddCommand(newLoopStartCmd(), newLoopStopCmd(), newLoopContinueCmd(), newLoopStatusCmd())
	return cmd
}

func newLoopStartCmd() *cobra.Command {
	var iterations int
	cmd := &cobra.Command{
		Use:   "start <repo> <id>",
		Short: "Start a registered loop controller",
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
			c, ok := entry.Loops.Controller(args[1])
			if !ok {
				return fmt.Errorf("no iterative loop registered for session %s", args[1])
			}
			if err := c.Start(cmd.Context(), iterations); err != nil {
				return err
			}
			fmt.Printf("loop for session %s: %s\n", args[1], c.State())
			return nil
		},
	}
	cmd.Flags().IntVar(&iterations, "iterations", 0, "override the configured max iterations (0 uses the configured default)")
	return cmd
}

func newLoopStopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop <repo> <id>",
		Short: "Stop a running loop controller",
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
			c, ok := entry.Loops.Controller(args[1])
			if !ok {
				return fmt.Errorf("no iterative loop registered for session %s", args[1])
			}
			if err := c.Stop(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("loop for session %s: %s\n", args[1], c.State())
			return nil
		},
	}
	return cmd
}

func newLoopContinueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "continue <repo> <id>",
		Short: "Continue a paused loop controller",
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
			c, ok := entry.Loops.Controller(args[1])
			if !ok {
				return fmt.Errorf("no iterative loop registered for session %s", args[1])
			}
			if err := c.Continue(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("loop for session %s: %s\n", args[1], c.State())
			return nil
		},
	}
	return cmd
}

func newLoopStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <repo> <id>",
		Short: "Show a loop controller's state",
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
			c, ok := entry.Loops.Controller(args[1])
			if !ok {
				return fmt.Errorf("no iterative loop registered for session %s", args[1])
			}
			spawnID, _ := c.SpawnID()
			if jsonOut {
				return printJSON(map[string]any{"state": c.State(), "spawnId": spawnID, "failReason": c.FailReason()})
			}
			fmt.Printf("state: %s\n", c.State())
			if spawnID != "" {
				fmt.Printf("spawn: %s\n", spawnID)
			}
			if reason := c.FailReason(); reason != "" {
				fmt.Printf("fail reason: %s\n", reason)
			}
			return nil
		},
	}
	return cmd
}
