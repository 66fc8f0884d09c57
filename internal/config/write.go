package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// configFilePermissions is the standard permission mode for config files.
// Owner read/write, group and others read-only. Passwords never live here.
const configFilePermissions = 0o644

// configDirPermissions is the standard permission mode for config directories.
const configDirPermissions = 0o755

// ErrConfigExists is returned by WriteTemplate when the target already exists
// and overwrite was not requested.
var ErrConfigExists = errors.New("config file already exists")

// configTemplate is the file written by "config init". Every setting is
// present as a commented-out default so users can discover each option.
const configTemplate = `# davnotes configuration

# Log verbosity: debug, info, warn, error
# log_level = "info"

# Log format: auto (text on a terminal, JSON otherwise), text, json
# log_format = "auto"

[session]
# Remote directory every path is confined to. Unset: the folder saved by
# "connect", else "/obsidian"
# base_path = "/obsidian"

# File names never shown in listings
# hidden_files = [".DS_Store", "Thumbs.db", "desktop.ini"]

[credentials]
# Where the saved connection lives: file, sqlite, memory
# backend = "file"

# Store location (default: platform data directory)
# path = ""

[network]
# HTTP timeout per request; "0" disables it
# timeout = "30s"

# user_agent = ""

[transfers]
# Concurrent downloads for "pull" (1-32)
# parallel_downloads = 4

# Skip files larger than this in "pull" and refuse them in "put"; "0" = no limit.
# Whole number with an optional unit: B, KB, MB, GB, KiB, MiB, GiB.
# max_file_size = "0"
`

// WriteTemplate writes the commented default config to path. An existing
// file is only replaced when overwrite is set. The write is atomic.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s: %w", path, ErrConfigExists)
		}
	}

	return atomicWriteFile(path, []byte(configTemplate))
}

// atomicWriteFile writes data to a temporary file in the same directory as
// path, then renames it to the target path, so a crash never leaves a
// partially written config. Parent directories are created as needed.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tempPath := f.Name()

	// Clean up the temp file on any error path.
	succeeded := false
	defer func() {
		if !succeeded {
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()

		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tempPath, configFilePermissions); err != nil {
		return fmt.Errorf("setting file permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	succeeded = true

	return nil
}
