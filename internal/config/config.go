// Package config loads clinebridge configuration from files and environment.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/clinebridge/clinebridge/pkg/types"
)

// Default timing values for the file-channel protocol. The external harness
// takes minutes to boot VS Code, so the handshake deadline is generous.
const (
	DefaultPollIntervalSeconds    = 2
	DefaultReadyTimeoutSeconds    = 300
	DefaultResponseTimeoutSeconds = 300
	DefaultStopGraceSeconds       = 3
	DefaultReviewTimeoutMinutes   = 10
)

// Default returns the built-in configuration.
func Default() *types.Config {
	return &types.Config{
		Server: types.ServerConfig{
			Port:       8080,
			EnableCORS: boolPtr(true),
		},
		Session: types.SessionConfig{
			Command:                []string{"bash", "cli-with-persistence.sh"},
			QuickCommand:           []string{"npm", "run", "cli"},
			PollIntervalSeconds:    DefaultPollIntervalSeconds,
			ReadyTimeoutSeconds:    DefaultReadyTimeoutSeconds,
			ResponseTimeoutSeconds: DefaultResponseTimeoutSeconds,
			StopGraceSeconds:       DefaultStopGraceSeconds,
		},
		Review: types.ReviewConfig{
			Command:        []string{"npm", "run", "coderabbit"},
			TimeoutMinutes: DefaultReviewTimeoutMinutes,
		},
		Log: types.LogConfig{
			Level: "INFO",
		},
	}
}

// Load loads configuration from multiple sources (priority order):
//  1. built-in defaults
//  2. global config (~/.config/clinebridge/)
//  3. project config (<directory>/clinebridge.*)
//  4. CLINEBRIDGE_CONFIG file override
//  5. environment variables
func Load(directory string) (*types.Config, error) {
	config := Default()

	loaded := make(map[string]bool)
	loadOnce := func(path string) {
		absPath, err := filepath.Abs(path)
		if err != nil || loaded[absPath] {
			return
		}
		if loadFile(path, config) == nil {
			loaded[absPath] = true
		}
	}

	names := []string{
		"clinebridge.json",
		"clinebridge.jsonc",
		"clinebridge.yaml",
		"clinebridge.yml",
	}

	if home := os.Getenv("HOME"); home != "" {
		globalDir := filepath.Join(home, ".config", "clinebridge")
		for _, name := range names {
			loadOnce(filepath.Join(globalDir, name))
		}
	}

	if directory != "" {
		for _, name := range names {
			loadOnce(filepath.Join(directory, name))
		}
	}

	if path := os.Getenv("CLINEBRIDGE_CONFIG"); path != "" {
		loadOnce(path)
	}

	applyEnvOverrides(config)

	return config, nil
}

// loadFile parses a single config file into config, merging non-zero fields.
func loadFile(path string, config *types.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fileConfig types.Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return err
		}
	default:
		data = jsonc.ToJSON(data)
		if err := json.Unmarshal(data, &fileConfig); err != nil {
			return err
		}
	}

	merge(config, &fileConfig)
	return nil
}

// merge copies non-zero fields from source into target.
func merge(target, source *types.Config) {
	if source.Server.Port != 0 {
		target.Server.Port = source.Server.Port
	}
	if source.Server.EnableCORS != nil {
		target.Server.EnableCORS = source.Server.EnableCORS
	}

	s := &source.Session
	t := &target.Session
	if len(s.Command) > 0 {
		t.Command = s.Command
	}
	if len(s.QuickCommand) > 0 {
		t.QuickCommand = s.QuickCommand
	}
	if s.ProjectDir != "" {
		t.ProjectDir = s.ProjectDir
	}
	if s.DefaultWorkspace != "" {
		t.DefaultWorkspace = s.DefaultWorkspace
	}
	if s.PollIntervalSeconds != 0 {
		t.PollIntervalSeconds = s.PollIntervalSeconds
	}
	if s.ReadyTimeoutSeconds != 0 {
		t.ReadyTimeoutSeconds = s.ReadyTimeoutSeconds
	}
	if s.ResponseTimeoutSeconds != 0 {
		t.ResponseTimeoutSeconds = s.ResponseTimeoutSeconds
	}
	if s.StopGraceSeconds != 0 {
		t.StopGraceSeconds = s.StopGraceSeconds
	}
	if s.ArchiveDir != "" {
		t.ArchiveDir = s.ArchiveDir
	}

	r := &source.Review
	if len(r.Command) > 0 {
		target.Review.Command = r.Command
	}
	if r.ProjectDir != "" {
		target.Review.ProjectDir = r.ProjectDir
	}
	if r.TimeoutMinutes != 0 {
		target.Review.TimeoutMinutes = r.TimeoutMinutes
	}
	if len(r.IgnoreGlobs) > 0 {
		target.Review.IgnoreGlobs = r.IgnoreGlobs
	}

	if source.Log.Level != "" {
		target.Log.Level = source.Log.Level
	}
	if source.Log.Pretty != nil {
		target.Log.Pretty = source.Log.Pretty
	}
}

func boolPtr(b bool) *bool { return &b }

// applyEnvOverrides applies CLINEBRIDGE_* environment variables, which take
// precedence over all config files.
func applyEnvOverrides(config *types.Config) {
	if v := os.Getenv("CLINEBRIDGE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("CLINEBRIDGE_LOG_LEVEL"); v != "" {
		config.Log.Level = v
	}
	if v := os.Getenv("CLINEBRIDGE_PROJECT_DIR"); v != "" {
		config.Session.ProjectDir = v
		if config.Review.ProjectDir == "" {
			config.Review.ProjectDir = v
		}
	}
	if v := os.Getenv("CLINEBRIDGE_WORKSPACE"); v != "" {
		config.Session.DefaultWorkspace = v
	}
	if v := os.Getenv("CLINEBRIDGE_ARCHIVE_DIR"); v != "" {
		config.Session.ArchiveDir = v
	}
	if v := os.Getenv("CLINEBRIDGE_POLL_INTERVAL"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			config.Session.PollIntervalSeconds = secs
		}
	}
	if v := os.Getenv("CLINEBRIDGE_READY_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			config.Session.ReadyTimeoutSeconds = secs
		}
	}
	if v := os.Getenv("CLINEBRIDGE_RESPONSE_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			config.Session.ResponseTimeoutSeconds = secs
		}
	}
}
