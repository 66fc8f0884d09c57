package session

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/tonimelisma/davnotes/internal/dav"
)

// DefaultHiddenFiles are basenames dropped from every listing: sentinel files
// written by desktop operating systems.
var DefaultHiddenFiles = []string{".DS_Store", "Thumbs.db", "desktop.ini"}

// Listing is the filtered content of one directory at one point in time.
// Entries keep the server's order.
type Listing struct {
	Path      string
	Entries   []dav.Entry
	FetchedAt time.Time
}

// Directories returns the directory entries of l, in listing order.
func (l Listing) Directories() []dav.Entry {
	return l.filter(true)
}

// Files returns the non-directory entries of l, in listing order.
func (l Listing) Files() []dav.Entry {
	return l.filter(false)
}

func (l Listing) filter(dirs bool) []dav.Entry {
	out := make([]dav.Entry, 0, len(l.Entries))

	for _, e := range l.Entries {
		if e.IsDir() == dirs {
			out = append(out, e)
		}
	}

	return out
}

func (l Listing) clone() Listing {
	l.Entries = slices.Clone(l.Entries)

	return l
}

func hiddenSet(names []string) map[string]struct{} {
	if names == nil {
		names = DefaultHiddenFiles
	}

	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}

	return set
}

// fetch lists dir through b and drops hidden entries.
func (s *Session) fetch(ctx context.Context, b *dav.Binding, dir string) (Listing, error) {
	entries, err := b.List(ctx, dir)
	if err != nil {
		return Listing{}, err
	}

	visible := make([]dav.Entry, 0, len(entries))

	for _, e := range entries {
		if _, hidden := s.hidden[e.Name]; hidden {
			continue
		}

		visible = append(visible, e)
	}

	return Listing{Path: dir, Entries: visible, FetchedAt: time.Now()}, nil
}

// GetDirectoryContents lists p (the base path when p is empty) and makes it
// the current directory.
//
// A session that is disconnected and cannot reconnect is not an error here:
// the call logs, leaves state untouched and returns an empty Listing. A
// failed listing returns a *dav.PathError and also leaves state untouched.
// If the session is reset or reconnected while the request is in flight,
// the result is discarded and ErrSuperseded is returned.
func (s *Session) GetDirectoryContents(ctx context.Context, p string) (Listing, error) {
	if !s.EnsureConnected(ctx) {
		s.logger.Warn("listing skipped, not connected", slog.String("path", p))

		return Listing{}, nil
	}

	dir := s.sandbox.Normalize(p)

	s.mu.RLock()
	b, gen := s.binding, s.generation
	s.mu.RUnlock()

	if b == nil {
		return Listing{}, ErrSuperseded
	}

	l, err := s.fetch(ctx, b, dir)
	if err != nil {
		s.logger.Debug("listing failed",
			slog.String("path", dir),
			slog.String("error", err.Error()),
		)

		return Listing{}, err
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()

		return Listing{}, ErrSuperseded
	}

	s.listing = l
	s.currentPath = dir
	s.mu.Unlock()

	s.logger.Debug("listing refreshed",
		slog.String("path", dir),
		slog.Int("entries", len(l.Entries)),
	)

	return l.clone(), nil
}

// ListDirectory lists p like GetDirectoryContents but leaves the current
// directory and listing untouched. Unlike GetDirectoryContents it reports a
// session that cannot connect as ErrNotConnected.
func (s *Session) ListDirectory(ctx context.Context, p string) (Listing, error) {
	if !s.EnsureConnected(ctx) {
		return Listing{}, ErrNotConnected
	}

	s.mu.RLock()
	b := s.binding
	s.mu.RUnlock()

	if b == nil {
		return Listing{}, ErrNotConnected
	}

	return s.fetch(ctx, b, s.sandbox.Normalize(p))
}

// Listing returns a snapshot of the current listing.
func (s *Session) Listing() Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listing.clone()
}

// CurrentDirectory returns the subdirectories of the current listing.
func (s *Session) CurrentDirectory() []dav.Entry {
	return s.Listing().Directories()
}

// CurrentFiles returns the files of the current listing.
func (s *Session) CurrentFiles() []dav.Entry {
	return s.Listing().Files()
}
