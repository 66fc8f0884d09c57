package config

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testHome = "/home/testuser"

func TestDefaultConfigPath_EndsWithConfigToml(t *testing.T) {
	path := DefaultConfigPath()
	assert.NotEmpty(t, path)
	assert.True(t, strings.HasSuffix(path, "config.toml"))
	assert.Contains(t, path, appName)
}

func TestDefaultDirs_Linux(t *testing.T) {
	if runtime.GOOS != platformLinux {
		t.Skip("Linux-only test")
	}

	t.Setenv("HOME", testHome)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_DATA_HOME", "")

	assert.Equal(t, filepath.Join(testHome, ".config", appName), DefaultConfigDir())
	assert.Equal(t, filepath.Join(testHome, ".local", "share", appName), DefaultDataDir())

	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_DATA_HOME", "/xdg/data")

	assert.Equal(t, filepath.Join("/xdg/config", appName), DefaultConfigDir())
	assert.Equal(t, filepath.Join("/xdg/data", appName), DefaultDataDir())
}

func TestDefaultDirs_MacOS(t *testing.T) {
	if runtime.GOOS != platformDarwin {
		t.Skip("macOS-only test")
	}

	t.Setenv("HOME", testHome)

	want := filepath.Join(testHome, "Library", "Application Support", appName)
	assert.Equal(t, want, DefaultConfigDir())
	assert.Equal(t, want, DefaultDataDir())
}

func TestDefaultCredentialsPath(t *testing.T) {
	dir := DefaultDataDir()

	assert.Equal(t, filepath.Join(dir, "credentials.json"), DefaultCredentialsPath(BackendFile))
	assert.Equal(t, filepath.Join(dir, "credentials.db"), DefaultCredentialsPath(BackendSQLite))
	assert.Empty(t, DefaultCredentialsPath(BackendMemory))
}
