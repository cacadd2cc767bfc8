// Package cmd wires the CLI commands for the floatchat service.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "floatchat",
	Short: "Streaming chat service with durable conversations",
	Long: `floatchat serves persistent chat conversations backed by PostgreSQL.
Replies stream over SSE while both sides of the exchange are durably
recorded, and the model can call registered tools mid-turn.

Run 'floatchat serve' to start the HTTP server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
