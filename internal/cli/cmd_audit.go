package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// newAuditCmd creates the audit command
func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit <repo> <id>",
		Short: "Show a session's durable audit trail",
		Long: `Audit reads the side-channel, append-only log of every status
transition and hook invocation recorded for a session (component M). The
audit store is never consulted to reconstruct session state — it exists
purely for historical inspection.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if a.audit == nil {
				return fmt.Errorf("audit store is disabled")
			}

			entries, err := a.audit.Trail(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(entries)
			}
			if len(entries) == 0 {
				fmt.Println("no audit entries recorded for this session")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "AT\tKIND\tDETAIL")
			for _, e := range entries {
				detail := fmt.Sprintf("%s -> %s", e.FromStatus, e.ToStatus)
				if e.Kind == "hook" {
					detail = fmt.Sprintf("%s success=%v (%dms)", e.HookName, e.Success, e.DurationMs)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.At.Format("2006-01-02 15:04:05"), e.Kind, detail)
			}
			return w.Flush()
		},
	}
	return cmd
}
