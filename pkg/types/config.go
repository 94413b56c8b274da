package types

// Config is the application configuration, merged from config files and
// environment overrides.
type Config struct {
	Server  ServerConfig  `json:"server" yaml:"server"`
	Session SessionConfig `json:"session" yaml:"session"`
	Review  ReviewConfig  `json:"review" yaml:"review"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

// ServerConfig holds HTTP server settings. EnableCORS is a pointer so that
// config layers can distinguish an explicit false from an unset field.
type ServerConfig struct {
	Port       int   `json:"port" yaml:"port"`
	EnableCORS *bool `json:"enableCors" yaml:"enableCors"`
}

// SessionConfig holds settings for the automation harness and the
// file-channel protocol.
type SessionConfig struct {
	// Command is the argv used to launch the long-lived harness process.
	Command []string `json:"command" yaml:"command"`
	// QuickCommand is the argv for one-shot messages without a session.
	QuickCommand []string `json:"quickCommand" yaml:"quickCommand"`
	// ProjectDir is the working directory the harness is launched from.
	ProjectDir string `json:"projectDir" yaml:"projectDir"`
	// DefaultWorkspace is used when a create request omits a workspace path.
	DefaultWorkspace string `json:"defaultWorkspace" yaml:"defaultWorkspace"`
	// PollIntervalSeconds is the channel polling cadence.
	PollIntervalSeconds int `json:"pollIntervalSeconds" yaml:"pollIntervalSeconds"`
	// ReadyTimeoutSeconds bounds the startup handshake.
	ReadyTimeoutSeconds int `json:"readyTimeoutSeconds" yaml:"readyTimeoutSeconds"`
	// ResponseTimeoutSeconds bounds each message round trip.
	ResponseTimeoutSeconds int `json:"responseTimeoutSeconds" yaml:"responseTimeoutSeconds"`
	// StopGraceSeconds is how long to wait after SIGTERM before SIGKILL.
	StopGraceSeconds int `json:"stopGraceSeconds" yaml:"stopGraceSeconds"`
	// ArchiveDir, when set, receives transcripts of stopped sessions.
	ArchiveDir string `json:"archiveDir" yaml:"archiveDir"`
}

// ReviewConfig holds settings for the one-shot review CLI.
type ReviewConfig struct {
	// Command is the argv used to launch the review CLI.
	Command []string `json:"command" yaml:"command"`
	// ProjectDir is the working directory the CLI is launched from.
	ProjectDir string `json:"projectDir" yaml:"projectDir"`
	// TimeoutMinutes is the default review deadline.
	TimeoutMinutes int `json:"timeoutMinutes" yaml:"timeoutMinutes"`
	// IgnoreGlobs filters out comments whose file path matches any glob.
	IgnoreGlobs []string `json:"ignoreGlobs" yaml:"ignoreGlobs"`
}

// LogConfig holds logging settings. Pretty is a pointer for the same reason
// as ServerConfig.EnableCORS.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Pretty *bool  `json:"pretty" yaml:"pretty"`
}
