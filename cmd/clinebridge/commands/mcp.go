package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/clinebridge/clinebridge/internal/config"
	"github.com/clinebridge/clinebridge/internal/mcpserver/bridge"
)

var mcpDir string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the MCP tools over stdio",
	Long: `Serve the session and review tools as an MCP server on stdin/stdout.

Intended to be launched by an MCP client; all logging goes to stderr so
the protocol stream stays clean.`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpDir, "directory", "", "Directory to load configuration from")
}

func runMCP(cmd *cobra.Command, args []string) error {
	workDir := mcpDir
	if workDir == "" {
		var err error
		workDir, err = os.Getwd()
		if err != nil {
			return err
		}
	}

	cfg, err := config.Load(workDir)
	if err != nil {
		return err
	}

	registry := buildRegistry(cfg, nil)
	defer registry.StopAll(cmd.Context())

	s := bridge.NewServer(Version, registry, buildQuickRunner(cfg), buildReviewer(cfg))
	return bridge.ServeStdio(s)
}
