// Package cmd defines and implements the CLI commands for the
// lessons-crawler executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lessons-crawler",
		Short: "Incremental crawler for a paginated lessons archive.",
		Long: `lessons-crawler walks a rabbi's paginated lesson archive, extracts
structured lesson records from each page, and merges anything new into the
previously stored snapshot without re-fetching known lessons.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.AddCommand(newCrawlCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
