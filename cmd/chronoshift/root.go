package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chronoshift",
	Short: "Run commands against a remote time source's clock",
	Long: `Chronoshift transiently aligns the perceived time of a command, a shell
or the whole host with a remote NTP source (such as a domain controller),
runs your payload inside that time context, and restores the prior state
afterwards. System-wide changes are journaled so they can always be undone,
even after a crash.`,
	SilenceUsage: true,
}

// Execute dispatches to the subcommands; bare invocations fall through to
// run.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Only print the payload's own output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose diagnostics, including each fallback attempt")
	rootCmd.PersistentFlags().Bool("colorless", false, "Disable colored output (for piping)")
	rootCmd.PersistentFlags().String("config", "", "Path to a chronoshift.yaml config file")
}
