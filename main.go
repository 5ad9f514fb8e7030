package main

import (
	"os"

	"github.com/opal-lang/opal/cmd"
	"github.com/spf13/cobra"
)

func main() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "opal [subcommand]",
	Short:        "opal\n the optimizing compiler's value lattice, as a standalone engine",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(cmd.EvalCmd)
	rootCmd.AddCommand(cmd.ReplCmd)
}
