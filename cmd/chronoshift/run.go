package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/chronoshift/internal/cli"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] -- command [args...]",
	Short: "Run a command or shell inside the shifted time context",
	Long: `Fetches the reference time, applies the best available technique (or the
forced one), runs the given command with the shifted clock, and reverts any
system-wide change before exiting. Use --shell to open an interactive shell
instead of a one-off command.`,
	Args: cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		opts := cli.RunOptions{Command: args}
		opts.Server, _ = cmd.Flags().GetString("ip")
		opts.Port, _ = cmd.Flags().GetInt("port")
		opts.Technique, _ = cmd.Flags().GetInt("technique")
		opts.Quiet, _ = cmd.Flags().GetBool("quiet")
		opts.Verbose, _ = cmd.Flags().GetBool("verbose")
		opts.Colorless, _ = cmd.Flags().GetBool("colorless")
		opts.ConfigPath, _ = cmd.Flags().GetString("config")
		shellName, _ := cmd.Flags().GetString("shell")
		opts.ShellName = strings.TrimSpace(shellName)
		opts.Shell = cmd.Flags().Changed("shell")

		os.Exit(cli.ExecuteRun(cmd.Context(), opts))
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("ip", "i", "", "NTP server or domain controller address (or set the IP env var)")
	runCmd.Flags().IntP("port", "p", 0, "UDP port for NTP queries (default 123)")
	runCmd.Flags().IntP("technique", "t", 0, "Force a specific technique (1-6) instead of auto selection")
	runCmd.Flags().StringP("shell", "s", "", "Open a time-shifted shell (bash, zsh, sh, or $SHELL)")
	runCmd.Flags().Lookup("shell").NoOptDefVal = " "

	// Bare `chronoshift -i host date` behaves like `chronoshift run`.
	rootCmd.Run = runCmd.Run
	rootCmd.Flags().AddFlagSet(runCmd.Flags())
	rootCmd.Args = cobra.ArbitraryArgs
}
