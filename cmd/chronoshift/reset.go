package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/chronoshift/internal/cli"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Undo any outstanding system-wide time changes",
	Long: `Replays the journal of unresolved system-wide changes, reverting each one,
then hands the clock back to the OS time service. Requires root. Safe to
run at any time, including after a crash or interrupt.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		opts := cli.ResetOptions{}
		opts.Quiet, _ = cmd.Flags().GetBool("quiet")
		opts.Verbose, _ = cmd.Flags().GetBool("verbose")
		opts.Colorless, _ = cmd.Flags().GetBool("colorless")
		opts.ConfigPath, _ = cmd.Flags().GetString("config")

		os.Exit(cli.ExecuteReset(cmd.Context(), opts))
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
