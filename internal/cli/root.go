// Package cli implements the orc command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	jsonOut bool
	plain   bool // Disable emoji/unicode for terminal compatibility
)

// Command group IDs
const (
	groupSessions  = "sessions"
	groupRepos     = "repos"
	groupLoop      = "loop"
	groupConfig    = "config"
	groupDashboard = "dashboard"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "orc",
	Short: "Autonomous coding worker orchestrator",
	Long: `orc spawns, tracks, and ships autonomous coding workers across a set of
configured repositories.

Features:
  • One worker per issue, run headless in its own git worktree
  • Lifecycle hooks and an iterative "done signal" loop controller
  • Live session list via HTTP dashboard or in-process terminal UI
  • A side-channel audit trail of every status transition and hook run

Quick start:
  orc spawn myrepo 42       Spawn a worker against myrepo issue #42
  orc list                  List sessions across every configured repo
  orc dashboard --tui       Watch them from a terminal dashboard`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		return err
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config document path (default ~/.orchestration/config.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&plain, "plain", false, "plain output without emoji (for terminal compatibility)")

	rootCmd.AddGroup(
		&cobra.Group{ID: groupSessions, Title: "Session Commands:"},
		&cobra.Group{ID: groupRepos, Title: "Repositories:"},
		&cobra.Group{ID: groupLoop, Title: "Iterative Loop:"},
		&cobra.Group{ID: groupConfig, Title: "Configuration:"},
		&cobra.Group{ID: groupDashboard, Title: "Dashboard:"},
	)

	// Session Commands
	addCmd(newSpawnCmd(), groupSessions)
	addCmd(newListCmd(), groupSessions)
	addCmd(newGetCmd(), groupSessions)
	addCmd(newUpdateCmd(), groupSessions)
	addCmd(newHeartbeatCmd(), groupSessions)
	addCmd(newPauseCmd(), groupSessions)
	addCmd(newResumeCmd(), groupSessions)
	addCmd(newForwardCmd(), groupSessions)
	addCmd(newDeleteCmd(), groupSessions)
	addCmd(newAuditCmd(), groupSessions)

	// Repositories
	addCmd(newReposCmd(), groupRepos)
	addCmd(newOrphansCmd(), groupRepos)

	// Iterative Loop
	addCmd(newLoopCmd(), groupLoop)

	// Configuration
	addCmd(newConfigCmd(), groupConfig)

	// Dashboard
	addCmd(newDashboardCmd(), groupDashboard)
}

// addCmd adds a command to root with the specified group
func addCmd(cmd *cobra.Command, groupID string) {
	cmd.GroupID = groupID
	rootCmd.AddCommand(cmd)
}

// initConfig binds ORC_-prefixed environment variables to the global
// output flags; the central configuration document itself is loaded by
// buildApp via internal/config, which does its own env-override layer.
func initConfig() {
	viper.SetEnvPrefix("ORC")
	viper.AutomaticEnv()

	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("plain", rootCmd.PersistentFlags().Lookup("plain"))
	if viper.IsSet("json") {
		jsonOut = viper.GetBool("json")
	}
	if viper.IsSet("plain") {
		plain = viper.GetBool("plain")
	} else if !rootCmd.PersistentFlags().Changed("plain") && !isatty.IsTerminal(os.Stdout.Fd()) {
		// Redirected to a file or pipe: fall back to plain output same as
		// an explicit --plain, matching the teacher's pager/color idiom.
		plain = true
	}

	if cfgFile != "" && verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", cfgFile)
	}
}
