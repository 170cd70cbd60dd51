package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/chronoshift"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of chronoshift",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("chronoshift version %s\n", strings.TrimSpace(chronoshift.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
