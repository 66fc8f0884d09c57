package session

import (
	"context"
	"log/slog"

	"github.com/tonimelisma/davnotes/internal/dav"
)

// ReadFile returns the content of p. It requires an established connection
// and never reconnects on its own; when disconnected it fails with
// ErrNotConnected without touching the capability.
func (s *Session) ReadFile(ctx context.Context, p string) ([]byte, error) {
	name := s.sandbox.Normalize(p)

	b := s.bound()
	if b == nil {
		return nil, &dav.PathError{Op: dav.OpRead, Path: name, Err: ErrNotConnected}
	}

	data, err := b.Read(ctx, name)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("file read", slog.String("path", name), slog.Int("bytes", len(data)))

	return data, nil
}

// WriteFile replaces the content of p. Connection requirements match
// ReadFile. A nil error means the capability accepted the whole write.
func (s *Session) WriteFile(ctx context.Context, p string, content []byte) error {
	name := s.sandbox.Normalize(p)

	b := s.bound()
	if b == nil {
		return &dav.PathError{Op: dav.OpWrite, Path: name, Err: ErrNotConnected}
	}

	if err := b.Write(ctx, name, content); err != nil {
		return err
	}

	s.logger.Debug("file written", slog.String("path", name), slog.Int("bytes", len(content)))

	return nil
}

func (s *Session) bound() *dav.Binding {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.binding
}
