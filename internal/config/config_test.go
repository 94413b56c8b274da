package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DefaultPollIntervalSeconds, cfg.Session.PollIntervalSeconds)
	assert.Equal(t, DefaultReadyTimeoutSeconds, cfg.Session.ReadyTimeoutSeconds)
	assert.Equal(t, DefaultReviewTimeoutMinutes, cfg.Review.TimeoutMinutes)
	assert.Equal(t, "INFO", cfg.Log.Level)
}

func TestLoad_ProjectJSONC(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()

	content := `{
		// comments are allowed
		"server": {"port": 9090},
		"session": {"pollIntervalSeconds": 1, "defaultWorkspace": "/ws"}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "clinebridge.jsonc"), []byte(content), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 1, cfg.Session.PollIntervalSeconds)
	assert.Equal(t, "/ws", cfg.Session.DefaultWorkspace)
	// Untouched fields keep defaults.
	assert.Equal(t, DefaultReadyTimeoutSeconds, cfg.Session.ReadyTimeoutSeconds)
}

func TestLoad_ProjectYAML(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()

	content := "review:\n  timeoutMinutes: 20\n  ignoreGlobs:\n    - \"vendor/**\"\nlog:\n  level: DEBUG\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "clinebridge.yaml"), []byte(content), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Review.TimeoutMinutes)
	assert.Equal(t, []string{"vendor/**"}, cfg.Review.IgnoreGlobs)
	assert.Equal(t, "DEBUG", cfg.Log.Level)
}

func TestLoad_ExplicitFalseBooleans(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()

	// CORS defaults to enabled; an explicit false in a file must stick.
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "clinebridge.json"),
		[]byte(`{"server": {"enableCors": false}, "log": {"pretty": false}}`), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	require.NotNil(t, cfg.Server.EnableCORS)
	assert.False(t, *cfg.Server.EnableCORS)
	require.NotNil(t, cfg.Log.Pretty)
	assert.False(t, *cfg.Log.Pretty)
}

func TestLoad_GlobalThenProject(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	globalDir := filepath.Join(home, ".config", "clinebridge")
	require.NoError(t, os.MkdirAll(globalDir, 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(globalDir, "clinebridge.json"),
		[]byte(`{"server": {"port": 7000}, "log": {"level": "WARN"}}`), 0644))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "clinebridge.json"),
		[]byte(`{"server": {"port": 7100}}`), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	// Project overrides global, global fills what project omits.
	assert.Equal(t, 7100, cfg.Server.Port)
	assert.Equal(t, "WARN", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CLINEBRIDGE_PORT", "8888")
	t.Setenv("CLINEBRIDGE_POLL_INTERVAL", "5")
	t.Setenv("CLINEBRIDGE_WORKSPACE", "/env/workspace")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "clinebridge.json"),
		[]byte(`{"server": {"port": 9999}}`), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Session.PollIntervalSeconds)
	assert.Equal(t, "/env/workspace", cfg.Session.DefaultWorkspace)
}

func TestLoad_ConfigFileEnvVar(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "override.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"session": {"stopGraceSeconds": 9}}`), 0644))
	t.Setenv("CLINEBRIDGE_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.Session.StopGraceSeconds)
}

func TestLoad_MalformedFileSkipped(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "clinebridge.json"), []byte("{not json"), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}
