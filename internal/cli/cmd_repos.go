package cli

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// newReposCmd creates the repos command
func newReposCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repos",
		Short: "List configured repositories",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			ids := make([]string, 0, len(a.repos.Entries))
			for id := range a.repos.Entries {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			if jsonOut {
				type repoRow struct {
					ID   string `json:"id"`
					Path string `json:"path"`
				}
				rows := make([]repoRow, 0, len(ids))
				for _, id := range ids {
					rows = append(rows, repoRow{ID: id, Path: a.repos.Entries[id].Config.Path})
				}
				return printJSON(rows)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPATH\tBASE BRANCH")
			for _, id := range ids {
				cfg := a.repos.Entries[id].Config
				fmt.Fprintf(w, "%s\t%s\t%s\n", id, cfg.Path, cfg.BaseBranch)
			}
			return w.Flush()
		},
	}
	return cmd
}

// newOrphansCmd creates the orphans command
func newOrphansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orphans",
		Short: "Detect worktrees with no claiming session record",
		Long: `Orphans scans every configured repository's worktree root for worktrees
matching the configured naming convention that no live session record
claims — left behind by an orchestrator crash between worktree creation
and session-record save, or a manually deleted record file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			orphans, err := a.repos.DetectOrphans()
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(orphans)
			}
			if len(orphans) == 0 {
				fmt.Println("no orphaned worktrees found")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "REPO\tISSUE\tPATH")
			for _, o := range orphans {
				fmt.Fprintf(w, "%s\t%d\t%s\n", o.RepoID, o.IssueNumber, o.Path)
			}
			return w.Flush()
		},
	}
	return cmd
}
