// Package cli is the capsulenv runtime's command surface: a packaged
// executable runs this same binary either as a supervisor (the hidden
// `supervisor` subcommand) or as a client (`daemon`/`proc`/`version`).
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set by main.go at build time.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:           "capsulenv",
	Short:         "Self-extracting process supervisor runtime",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(daemonCmd, procCmd, supervisorCmd, versionCmd)
	supervisorCmd.Hidden = true
}

// Execute runs the command tree, printing "Error: <message>" to stderr
// and exiting 1 on failure.
func Execute(version string) {
	Version = version
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
