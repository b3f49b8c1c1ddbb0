package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley chat transport server",
	Long: `Parley is a real-time chat transport: a WebSocket hub with
per-connection sessions, plus HTTP endpoints for chat completion
and audio transcription.

Use "parley [command] --help" for more information about a specific command.`,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
