package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relayforge/orchestra/internal/config"
)

// newConfigCmd creates the config command
func newConfigCmd() *cobra.Command {
	var showSources bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Config prints the effective central configuration document (merged from
built-in defaults, the config file, and ORCH_-prefixed environment
overrides).

Example:
  orc config
  orc config --show-sources   # show which layer set each field`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfgFile
			if path == "" {
				path = config.DefaultConfigPath()
			}
			tc, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			if showSources {
				fmt.Print(tc.ShowSources())
				return nil
			}

			if jsonOut {
				return printJSON(tc.Config)
			}

			fmt.Printf("version:          %s\n", tc.Config.Version)
			fmt.Printf("repos:            %d configured\n", len(tc.Config.Repos))
			fmt.Printf("cliCommand:       %s\n", tc.Config.CLICommand)
			fmt.Printf("ralph.maxIter:    %d\n", tc.Config.Ralph.MaxIterations)
			fmt.Printf("dashboard.port:   %d\n", tc.Config.Dashboard.Port)
			fmt.Printf("audit.backend:    %s\n", tc.Config.Audit.Backend)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showSources, "show-sources", false, "show which layer (default/file/env) set each field")
	return cmd
}
