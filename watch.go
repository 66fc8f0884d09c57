package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the burst of events an editor save produces.
const watchDebounce = 300 * time.Millisecond

// fsWatcher is the subset of *fsnotify.Watcher the watch loop needs.
type fsWatcher interface {
	Add(name string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

type fsnotifyWrapper struct {
	w *fsnotify.Watcher
}

func (f *fsnotifyWrapper) Add(name string) error         { return f.w.Add(name) }
func (f *fsnotifyWrapper) Close() error                  { return f.w.Close() }
func (f *fsnotifyWrapper) Events() <-chan fsnotify.Event { return f.w.Events }
func (f *fsnotifyWrapper) Errors() <-chan error          { return f.w.Errors }

// watchFile calls onChange after each settled modification of local until
// ctx is canceled. The parent directory is watched, not the file, because
// many editors save by writing a new file and renaming it over the old one.
func watchFile(ctx context.Context, local string, logger *slog.Logger, onChange func(context.Context)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	return runWatch(ctx, &fsnotifyWrapper{w: w}, local, watchDebounce, logger, onChange)
}

func runWatch(
	ctx context.Context, watcher fsWatcher, local string, debounce time.Duration,
	logger *slog.Logger, onChange func(context.Context),
) error {
	defer watcher.Close()

	abs, err := filepath.Abs(local)
	if err != nil {
		return err
	}

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	timer := time.NewTimer(debounce)
	timer.Stop()

	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events():
			if !ok {
				return nil
			}

			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}

			logger.Debug("local change", slog.String("path", abs), slog.String("op", ev.Op.String()))
			timer.Reset(debounce)

		case werr, ok := <-watcher.Errors():
			if !ok {
				return nil
			}

			logger.Warn("filesystem watcher error", slog.String("error", werr.Error()))

		case <-timer.C:
			onChange(ctx)
		}
	}
}
