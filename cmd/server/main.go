// Package main implements the entry point of the scry-uams server, which
// schedules adaptive study sessions over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// rootFlags are the flags shared by every subcommand.
type rootFlags struct {
	configPath string
	logLevel   string
}

// newRootCmd builds the command tree. It is a constructor rather than a
// package variable so tests get fresh flag state.
func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "server",
		Short: "Adaptive study scheduling server",
		Long: `server runs the scry-uams study scheduler.

Available subcommands:
  serve   - Start the HTTP API
  migrate - Manage the database schema`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "",
		"path to a YAML config file (default: ./config.yaml when present)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "",
		"override server.log_level (debug, info, warn, error)")

	root.AddCommand(newServeCmd(flags), newMigrateCmd(flags))
	return root
}
