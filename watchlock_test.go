package main

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireWatchLock_WritesCurrentPID(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "w.pid")

	release, err := acquireWatchLock(path)
	require.NoError(t, err)

	defer release()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestAcquireWatchLock_SecondHolderRefused(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "w.pid")

	release, err := acquireWatchLock(path)
	require.NoError(t, err)

	defer release()

	again, err := acquireWatchLock(path)
	require.ErrorIs(t, err, errWatchRunning)
	assert.Nil(t, again)
	assert.Contains(t, err.Error(), strconv.Itoa(os.Getpid()))
}

func TestAcquireWatchLock_ReleaseRemovesFileAndUnlocks(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "w.pid")

	release, err := acquireWatchLock(path)
	require.NoError(t, err)
	release()

	assert.NoFileExists(t, path)

	release, err = acquireWatchLock(path)
	require.NoError(t, err)
	release()
}

func TestAcquireWatchLock_EmptyPath(t *testing.T) {
	t.Parallel()

	release, err := acquireWatchLock("")
	require.Error(t, err)
	assert.Nil(t, release)
}

func TestWatchLockPath_DistinctPerTarget(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	a := watchLockPath("https://dav.example.com", "/obsidian/a.md")
	b := watchLockPath("https://dav.example.com", "/obsidian/b.md")

	require.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
	assert.Equal(t, "watch", filepath.Base(filepath.Dir(a)))
}
