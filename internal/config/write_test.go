package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTemplate_CreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "config.toml")

	require.NoError(t, WriteTemplate(path, false))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(configFilePermissions), info.Mode().Perm())
}

func TestWriteTemplate_RefusesOverwrite(t *testing.T) {
	path := writeTestConfig(t, "log_level = \"debug\"\n")

	err := WriteTemplate(path, false)
	require.ErrorIs(t, err, ErrConfigExists)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "log_level = \"debug\"\n", string(data), "existing file untouched")

	require.NoError(t, WriteTemplate(path, true))

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, configTemplate, string(data))
}

func TestWriteTemplate_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteTemplate(filepath.Join(dir, "config.toml"), false))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestRenderEffective(t *testing.T) {
	r, err := resolve(DefaultConfig(), "/etc/davnotes/config.toml")
	require.NoError(t, err)

	r.Network.UserAgent = "ua/1"

	var buf bytes.Buffer
	require.NoError(t, RenderEffective(r, &buf))

	out := buf.String()
	assert.Contains(t, out, "/etc/davnotes/config.toml")
	assert.Contains(t, out, `base_path    = ""  # saved connection, else /obsidian`)
	assert.Contains(t, out, `hidden_files = [".DS_Store", "Thumbs.db", "desktop.ini"]`)
	assert.Contains(t, out, `backend = "file"`)
	assert.Contains(t, out, `user_agent = "ua/1"`)
	assert.Contains(t, out, "parallel_downloads = 4")
	assert.NotContains(t, out, "password")
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, os.ErrClosed }

func TestRenderEffective_WriteError(t *testing.T) {
	r, err := resolve(DefaultConfig(), "x")
	require.NoError(t, err)

	require.ErrorIs(t, RenderEffective(r, failWriter{}), os.ErrClosed)
}
