package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validation range constants.
const (
	minParallelDownloads = 1
	maxParallelDownloads = 32
	minTimeout           = 1 * time.Second
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateLogLevel(cfg.LogLevel)...)
	errs = append(errs, validateLogFormat(cfg.LogFormat)...)
	errs = append(errs, validateSession(&cfg.Session)...)
	errs = append(errs, validateCredentials(&cfg.Credentials)...)
	errs = append(errs, validateNetwork(&cfg.Network)...)
	errs = append(errs, validateTransfers(&cfg.Transfers)...)

	return errors.Join(errs...)
}

func validateSession(s *SessionConfig) []error {
	var errs []error

	if s.BasePath != "" && !strings.HasPrefix(s.BasePath, "/") {
		errs = append(errs, fmt.Errorf("session.base_path: %q must start with /", s.BasePath))
	}

	for _, name := range s.HiddenFiles {
		if name == "" || strings.Contains(name, "/") {
			errs = append(errs, fmt.Errorf("session.hidden_files: %q must be a non-empty basename", name))
		}
	}

	return errs
}

var validBackends = map[string]bool{
	BackendFile:   true,
	BackendSQLite: true,
	BackendMemory: true,
}

func validateCredentials(c *CredentialsConfig) []error {
	if !validBackends[c.Backend] {
		return []error{fmt.Errorf("credentials.backend: must be one of file, sqlite, memory; got %q", c.Backend)}
	}

	return nil
}

func validateNetwork(n *NetworkConfig) []error {
	d, err := time.ParseDuration(n.Timeout)
	if err != nil {
		return []error{fmt.Errorf("network.timeout: invalid duration %q: %w", n.Timeout, err)}
	}

	// 0 disables the client timeout.
	if d != 0 && d < minTimeout {
		return []error{fmt.Errorf("network.timeout: must be 0 or >= %s, got %s", minTimeout, d)}
	}

	return nil
}

func validateTransfers(t *TransfersConfig) []error {
	var errs []error

	if t.ParallelDownloads < minParallelDownloads || t.ParallelDownloads > maxParallelDownloads {
		errs = append(errs, fmt.Errorf("transfers.parallel_downloads: must be between %d and %d, got %d",
			minParallelDownloads, maxParallelDownloads, t.ParallelDownloads))
	}

	if _, err := ParseSize(t.MaxFileSize); err != nil {
		errs = append(errs, fmt.Errorf("transfers.max_file_size: %w", err))
	}

	return errs
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func validateLogLevel(level string) []error {
	if !validLogLevels[level] {
		return []error{fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", level)}
	}

	return nil
}

var validLogFormats = map[string]bool{
	"auto": true,
	"text": true,
	"json": true,
}

func validateLogFormat(format string) []error {
	if !validLogFormats[format] {
		return []error{fmt.Errorf("log_format: must be one of auto, text, json; got %q", format)}
	}

	return nil
}
