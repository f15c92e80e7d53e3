package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/shelfboard/internal/app"
)

var rootCmd = &cobra.Command{
	Use:   "shelfboard",
	Short: "Shelf layout editing and reporting service",
	Long: `shelfboard serves the shelf layout editor API and the shelf movement reports.

Running the binary without a subcommand starts the HTTP server.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, layoutCmd, jobsCmd)
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
