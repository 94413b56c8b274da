// Package main provides a standalone stdio MCP server for clinebridge.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/clinebridge/clinebridge/internal/config"
	"github.com/clinebridge/clinebridge/internal/logging"
	"github.com/clinebridge/clinebridge/internal/mcpserver/bridge"
)

var (
	directory = flag.String("directory", "", "Directory to load configuration from")
	logLevel  = flag.String("log-level", "INFO", "Log level (DEBUG|INFO|WARN|ERROR)")
	version   = flag.Bool("version", false, "Print version and exit")
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("clinebridge-mcp %s (%s)\n", Version, BuildTime)
		os.Exit(0)
	}

	logging.Init(logging.Config{Level: logging.ParseLevel(*logLevel)})

	workDir := *directory
	if workDir == "" {
		var err error
		workDir, err = os.Getwd()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	cfg, err := config.Load(workDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	registry := bridgeRegistry(cfg)
	defer registry.StopAll(context.Background())

	s := bridge.NewServer(Version, registry, bridgeQuickRunner(cfg), bridgeReviewer(cfg))
	if err := bridge.ServeStdio(s); err != nil {
		logging.Error().Err(err).Msg("mcp server exited")
		os.Exit(1)
	}
}
