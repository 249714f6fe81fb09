package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "melodex",
	Short: "Melodex indexes an on-disk music collection into a browsable catalog.",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Running without a subcommand starts the agent.
		return runAgent()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
