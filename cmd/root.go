// Package cmd defines the command-line interface for the site360 control
// engine.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "site360-engine",
	Short: "Aggregate control scoring and alerting engine for construction sites",
	Long: `site360-engine ingests site management records (material usage,
inspections, incidents, schedules, ...) into dimension-tagged observations,
computes daily control scores per dimension, and raises alerts when
thresholds are breached.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
