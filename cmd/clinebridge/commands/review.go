package commands

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/clinebridge/clinebridge/internal/config"
)

var reviewTimeoutMinutes int

var reviewCmd = &cobra.Command{
	Use:   "review <workspace-path>",
	Short: "Run a one-shot workspace review",
	Long: `Run the configured review CLI against a workspace and print the
parsed comments as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().IntVar(&reviewTimeoutMinutes, "timeout", 0, "Review timeout in minutes (overrides config)")
}

func runReview(cmd *cobra.Command, args []string) error {
	workDir, err := os.Getwd()
	if err != nil {
		return err
	}

	cfg, err := config.Load(workDir)
	if err != nil {
		return err
	}

	reviewer := buildReviewer(cfg)
	timeout := time.Duration(reviewTimeoutMinutes) * time.Minute

	result, err := reviewer.Run(cmd.Context(), args[0], timeout)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
