package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/relayforge/orchestra/internal/session"
)

// newListCmd creates the list command
func newListCmd() *cobra.Command {
	var repoID string
	var includeTerminal bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List sessions across configured repositories",
		Long: `List lists every session tracked by the orchestrator, garbage-collecting
any whose worktree has vanished.

Example:
  orc list
  orc list --repo myrepo
  orc list --all   # include terminal (complete/cancelled) sessions`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			opts := session.ListOptions{IncludeTerminal: includeTerminal}

			var records []*session.Record
			if repoID != "" {
				entry := a.repos.Get(repoID)
				if entry == nil {
					return fmt.Errorf("repo %q is not configured", repoID)
				}
				records, err = entry.Service.List(opts)
			} else {
				records, err = a.repos.ListAll(cmd.Context(), opts)
			}
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(records)
			}

			if len(records) == 0 {
				fmt.Println("No sessions found. Spawn one with: orc spawn <repo> <issue>")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "REPO\tID\tSTATUS\tMODE\tTITLE")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.RepoID, r.ID, statusIcon(r.Status), r.Mode, truncate(r.Issue.Title, 50))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&repoID, "repo", "", "restrict to one configured repository")
	cmd.Flags().BoolVar(&includeTerminal, "all", false, "include terminal (complete/cancelled) sessions")
	return cmd
}
