package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/tonimelisma/davnotes/internal/config"
)

const (
	lockFilePermissions = 0o644
	lockDirPermissions  = 0o755
)

var errWatchRunning = errors.New("another put --watch is already uploading to this path")

// watchLockPath returns the lock file guarding uploads to the normalized
// remote path, or "" when no data directory is known.
func watchLockPath(serverURL, remote string) string {
	dataDir := config.DefaultDataDir()
	if dataDir == "" {
		return ""
	}

	key := strings.NewReplacer("/", "_", ":", "_", "\\", "_").Replace(serverURL + remote)

	return filepath.Join(dataDir, "watch", key+".pid")
}

// acquireWatchLock writes the current process ID to path and holds an
// exclusive flock on it. The returned release function removes the file and
// drops the lock. If the lock is held elsewhere the error names the holder.
func acquireWatchLock(path string) (release func(), err error) {
	if path == "" {
		return nil, fmt.Errorf("lock file path is empty: cannot determine data directory")
	}

	if err := os.MkdirAll(filepath.Dir(path), lockDirPermissions); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, lockFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	// Non-blocking: fails immediately if another process holds it.
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()

		if pid, readErr := readLockPID(path); readErr == nil {
			return nil, fmt.Errorf("%w (PID %d)", errWatchRunning, pid)
		}

		return nil, errWatchRunning
	}

	if err := f.Truncate(0); err != nil {
		f.Close()

		return nil, fmt.Errorf("truncating lock file: %w", err)
	}

	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		f.Close()

		return nil, fmt.Errorf("writing lock file: %w", err)
	}

	return func() {
		os.Remove(path)
		f.Close()
	}, nil
}

// readLockPID reads the PID recorded in a lock file.
func readLockPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading lock file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in %s: %w", path, err)
	}

	return pid, nil
}
