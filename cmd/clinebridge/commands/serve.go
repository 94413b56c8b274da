package commands

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/clinebridge/clinebridge/internal/config"
	"github.com/clinebridge/clinebridge/internal/event"
	"github.com/clinebridge/clinebridge/internal/logging"
	"github.com/clinebridge/clinebridge/internal/server"
)

var (
	servePort int
	serveDir  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the clinebridge HTTP server",
	Long: `Start the HTTP server exposing session and review endpoints.

Sessions launch the configured automation harness on demand; stopping
the server stops every live session first.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().StringVar(&serveDir, "directory", "", "Directory to load configuration from")
}

func runServe(cmd *cobra.Command, args []string) error {
	workDir := serveDir
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
	if servePort > 0 {
		cfg.Server.Port = servePort
	}
	if !cmd.Flags().Changed("log-level") && cfg.Log.Level != "" {
		logging.Init(logging.Config{
			Level:  logging.ParseLevel(cfg.Log.Level),
			Pretty: cfg.Log.Pretty != nil && *cfg.Log.Pretty,
		})
	}

	bus := event.NewBus()
	defer bus.Close()

	registry := buildRegistry(cfg, bus)
	quick := buildQuickRunner(cfg)
	reviewer := buildReviewer(cfg)

	serverConfig := server.DefaultConfig()
	serverConfig.Port = cfg.Server.Port
	if cfg.Server.EnableCORS != nil {
		serverConfig.EnableCORS = *cfg.Server.EnableCORS
	}

	srv := server.New(serverConfig, registry, quick, reviewer, bus)

	go func() {
		logging.Info().Int("port", serverConfig.Port).Str("version", Version).Msg("server listening")
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logging.Error().Err(err).Msg("server error")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("shutdown error")
	}

	logging.Info().Msg("server stopped")
	return nil
}
