// Package commands provides the CLI commands for clinebridge.
package commands

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/clinebridge/clinebridge/internal/logging"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	logLevel  string
	prettyLog bool
)

var rootCmd = &cobra.Command{
	Use:   "clinebridge",
	Short: "clinebridge - HTTP and MCP gateway to Cline automation",
	Long: `clinebridge exposes persistent Cline agent sessions and one-shot
workspace reviews over an HTTP API and an MCP stdio server.

Run 'clinebridge serve' to start the HTTP server, 'clinebridge mcp' to
serve the MCP tools over stdio, or 'clinebridge review' for a one-shot
workspace review.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		logging.Init(logging.Config{
			Level:  logging.ParseLevel(logLevel),
			Pretty: prettyLog,
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().BoolVar(&prettyLog, "pretty-logs", false, "Human-readable console logs")

	rootCmd.SetVersionTemplate(fmt.Sprintf("clinebridge %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(reviewCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
