package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal errors with "did you mean?"
// suggestions, so a typo never silently falls back to a default.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the four-layer override chain:
// defaults -> config file -> environment variables -> CLI flags.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	// 1. Config path: CLI > env > default
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	// 2. Config file (defaults if absent)
	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	// 3. Environment
	if env.BasePath != "" {
		cfg.Session.BasePath = env.BasePath
	}

	if env.CredentialsPath != "" {
		cfg.Credentials.Path = env.CredentialsPath
	}

	// 4. CLI flags
	if cli.BasePath != nil {
		cfg.Session.BasePath = *cli.BasePath
	}

	if cli.LogLevel != nil {
		cfg.LogLevel = *cli.LogLevel
	}

	// Overrides bypass the file validation, so validate the merged result.
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return resolve(cfg, cfgPath)
}

// resolve derives the parsed values of a validated Config.
func resolve(cfg *Config, cfgPath string) (*Resolved, error) {
	timeout, err := time.ParseDuration(cfg.Network.Timeout)
	if err != nil {
		return nil, fmt.Errorf("network.timeout: %w", err)
	}

	maxSize, err := ParseSize(cfg.Transfers.MaxFileSize)
	if err != nil {
		return nil, fmt.Errorf("transfers.max_file_size: %w", err)
	}

	credPath := cfg.Credentials.Path
	if credPath == "" {
		credPath = DefaultCredentialsPath(cfg.Credentials.Backend)
	}

	return &Resolved{
		Config:          *cfg,
		Path:            cfgPath,
		CredentialsPath: credPath,
		Timeout:         timeout,
		MaxFileSize:     maxSize,
	}, nil
}
