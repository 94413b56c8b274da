package commands

import (
	"time"

	"github.com/clinebridge/clinebridge/internal/archive"
	"github.com/clinebridge/clinebridge/internal/channel"
	"github.com/clinebridge/clinebridge/internal/event"
	"github.com/clinebridge/clinebridge/internal/review"
	"github.com/clinebridge/clinebridge/internal/session"
	"github.com/clinebridge/clinebridge/pkg/types"
)

// buildRegistry wires the session registry from configuration.
func buildRegistry(cfg *types.Config, bus *event.Bus) *session.Registry {
	opts := session.Options{
		Channel: channel.Options{
			Command:         cfg.Session.Command,
			Dir:             cfg.Session.ProjectDir,
			PollInterval:    time.Duration(cfg.Session.PollIntervalSeconds) * time.Second,
			ReadyTimeout:    time.Duration(cfg.Session.ReadyTimeoutSeconds) * time.Second,
			ResponseTimeout: time.Duration(cfg.Session.ResponseTimeoutSeconds) * time.Second,
			StopGrace:       time.Duration(cfg.Session.StopGraceSeconds) * time.Second,
		},
		DefaultWorkspace: cfg.Session.DefaultWorkspace,
		Bus:              bus,
	}
	if cfg.Session.ArchiveDir != "" {
		opts.Archive = archive.New(cfg.Session.ArchiveDir)
	}
	return session.NewRegistry(opts)
}

// buildQuickRunner wires the one-shot message runner from configuration.
func buildQuickRunner(cfg *types.Config) *session.QuickRunner {
	return session.NewQuickRunner(cfg.Session.QuickCommand, cfg.Session.ProjectDir, 0)
}

// buildReviewer wires the review runner from configuration.
func buildReviewer(cfg *types.Config) *review.Runner {
	return review.NewRunner(review.Options{
		Command:     cfg.Review.Command,
		Dir:         cfg.Review.ProjectDir,
		Timeout:     time.Duration(cfg.Review.TimeoutMinutes) * time.Minute,
		IgnoreGlobs: cfg.Review.IgnoreGlobs,
	})
}
