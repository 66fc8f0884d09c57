// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for davnotes. It supports a four-layer
// override chain (defaults -> config file -> environment -> CLI flags).
package config

import "time"

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`

	Session     SessionConfig     `toml:"session"`
	Credentials CredentialsConfig `toml:"credentials"`
	Network     NetworkConfig     `toml:"network"`
	Transfers   TransfersConfig   `toml:"transfers"`
}

// SessionConfig scopes the WebDAV session.
type SessionConfig struct {
	// BasePath is the remote subtree every path is confined to.
	BasePath string `toml:"base_path"`
	// HiddenFiles are basenames left out of directory listings.
	HiddenFiles []string `toml:"hidden_files"`
}

// Credential store backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// CredentialsConfig selects where the connection record is persisted.
type CredentialsConfig struct {
	Backend string `toml:"backend"`
	// Path of the store; empty means the platform data directory.
	Path string `toml:"path"`
}

// NetworkConfig controls the HTTP client used for WebDAV requests.
type NetworkConfig struct {
	Timeout   string `toml:"timeout"`
	UserAgent string `toml:"user_agent"`
}

// TransfersConfig controls bulk downloads and uploads from the CLI.
type TransfersConfig struct {
	ParallelDownloads int    `toml:"parallel_downloads"`
	MaxFileSize       string `toml:"max_file_size"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to the zero value".
type CLIOverrides struct {
	ConfigPath string  // --config flag (empty = use default)
	BasePath   *string // --base-path flag
	LogLevel   *string // --verbose / --quiet
}

// Resolved is a validated Config after all override layers, plus the values
// derived from it that callers need in parsed form.
type Resolved struct {
	Config

	// Path is the config file consulted. The file may not exist.
	Path string
	// CredentialsPath is Credentials.Path, or the backend's default location.
	CredentialsPath string
	// Timeout is Network.Timeout parsed; 0 disables the client timeout.
	Timeout time.Duration
	// MaxFileSize is Transfers.MaxFileSize in bytes; 0 means unlimited.
	MaxFileSize int64
}
