// Package session owns a connection to a WebDAV server scoped to one subtree
// (the base path). It tracks the connection state, the current directory and
// its listing, and offers file reads and writes confined to the subtree.
//
// A Session is safe for concurrent use. Remote calls run without holding the
// session lock, so overlapping Connect or GetDirectoryContents calls are not
// serialized: whichever finishes last wins. The one exception is the
// reconnect attempt in EnsureConnected, which concurrent callers share.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/tonimelisma/davnotes/internal/credstore"
	"github.com/tonimelisma/davnotes/internal/dav"
	"github.com/tonimelisma/davnotes/internal/metrics"
)

// DefaultBasePath is the subtree used when neither the caller nor the saved
// record names one.
const DefaultBasePath = "/obsidian"

// Sentinel errors.
var (
	ErrNotConnected = errors.New("session: not connected")
	ErrSuperseded   = errors.New("session: superseded by reset or reconnect")
)

// Dialer opens a capability for the given credentials, verifying that the
// server accepts them.
type Dialer interface {
	Dial(ctx context.Context, creds dav.Credentials) (dav.Lister, error)
}

// DialFunc adapts a function to the Dialer interface.
type DialFunc func(ctx context.Context, creds dav.Credentials) (dav.Lister, error)

// Dial implements Dialer.
func (f DialFunc) Dial(ctx context.Context, creds dav.Credentials) (dav.Lister, error) {
	return f(ctx, creds)
}

// ClientDialer dials real WebDAV servers with dav.Dial.
func ClientDialer(opts dav.Options) Dialer {
	return DialFunc(func(ctx context.Context, creds dav.Credentials) (dav.Lister, error) {
		return dav.Dial(ctx, creds, opts)
	})
}

// Options configure a Session. Every field is optional.
type Options struct {
	// BasePath is the sandbox root. Empty falls back to the saved record's
	// base path, then DefaultBasePath.
	BasePath string
	// HiddenFiles are basenames filtered out of listings. nil means
	// DefaultHiddenFiles; an empty non-nil slice hides nothing.
	HiddenFiles []string
	// Store persists the credential record. nil keeps it in memory.
	Store   credstore.Store
	Metrics *metrics.Recorder
	Logger  *slog.Logger
}

// Session is a scoped WebDAV session. Create one with New.
type Session struct {
	dialer  Dialer
	store   credstore.Store
	metrics *metrics.Recorder
	logger  *slog.Logger
	sandbox Sandbox
	hidden  map[string]struct{}

	reconnect singleflight.Group

	mu          sync.RWMutex
	saved       credstore.State
	serverURL   string
	username    string
	password    string
	binding     *dav.Binding // nil when disconnected
	generation  uint64       // bumped whenever binding changes
	currentPath string
	listing     Listing
}

// New creates a disconnected Session primed with the credential record found
// in opts.Store. It never fails: an absent or corrupt record leaves the
// session without known credentials.
func New(ctx context.Context, dialer Dialer, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store := opts.Store
	if store == nil {
		store = credstore.NewMemStore()
	}

	rec := credstore.Load(ctx, store, logger)

	base := opts.BasePath
	if base == "" {
		base = rec.BasePath
	}

	if base == "" {
		base = DefaultBasePath
	}

	sb := NewSandbox(base)

	s := &Session{
		dialer:      dialer,
		store:       store,
		metrics:     opts.Metrics,
		logger:      logger,
		sandbox:     sb,
		hidden:      hiddenSet(opts.HiddenFiles),
		saved:       rec.State,
		serverURL:   rec.ServerURL,
		username:    rec.Username,
		password:    rec.Password,
		currentPath: sb.Root(),
	}

	logger.Debug("session created",
		slog.String("base_path", sb.Root()),
		slog.String("record", rec.State.String()),
		slog.Bool("has_server", rec.HasServer()),
	)

	return s
}

// Connect dials serverURL, negotiates the capability variants, lists the base
// path and persists the credentials, in that order. Only when every step
// succeeds does the session become connected. On any failure the session is
// fully Reset, nothing is persisted and Connect returns false; the cause is
// logged.
func (s *Session) Connect(ctx context.Context, serverURL, username, password string) bool {
	return s.connect(ctx, metrics.KindConnect, serverURL, username, password)
}

func (s *Session) connect(ctx context.Context, kind, serverURL, username, password string) bool {
	err := s.establish(ctx, serverURL, username, password)
	s.metrics.ObserveAttempt(kind, err == nil)

	if err != nil {
		s.logger.Warn("connect failed",
			slog.String("server_url", serverURL),
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		s.Reset()

		return false
	}

	s.metrics.SetConnected(true)
	s.logger.Info("connected",
		slog.String("server_url", serverURL),
		slog.String("base_path", s.sandbox.Root()),
	)

	return true
}

func (s *Session) establish(ctx context.Context, serverURL, username, password string) error {
	creds := dav.Credentials{ServerURL: serverURL, Username: username, Password: password}

	capability, err := s.dialer.Dial(ctx, creds)
	if err != nil {
		return err
	}

	opts := []dav.BindOption{dav.WithLogger(s.logger)}
	if s.metrics != nil {
		opts = append(opts, dav.WithObserver(s.metrics))
	}

	b, err := dav.Bind(capability, opts...)
	if err != nil {
		return err
	}

	root := s.sandbox.Root()

	l, err := s.fetch(ctx, b, root)
	if err != nil {
		return err
	}

	rec := credstore.Record{
		ServerURL: serverURL,
		Username:  username,
		Password:  password,
		BasePath:  root,
	}
	if err := credstore.Save(ctx, s.store, rec); err != nil {
		return err
	}

	s.mu.Lock()
	s.serverURL = serverURL
	s.username = username
	s.password = password
	s.binding = b
	s.generation++
	s.currentPath = root
	s.listing = l
	s.saved = credstore.StateLoaded
	s.mu.Unlock()

	return nil
}

// EnsureConnected reports whether the session is connected, making one
// reconnect attempt with the last-known credentials if it is not. Without a
// known server it returns false at once. Concurrent callers share a single
// attempt.
func (s *Session) EnsureConnected(ctx context.Context) bool {
	s.mu.RLock()
	connected := s.binding != nil
	serverURL, username, password := s.serverURL, s.username, s.password
	s.mu.RUnlock()

	if connected {
		return true
	}

	if serverURL == "" {
		s.logger.Debug("no known server, not reconnecting")

		return false
	}

	v, _, _ := s.reconnect.Do("reconnect", func() (any, error) {
		return s.connect(ctx, metrics.KindReconnect, serverURL, username, password), nil
	})

	ok, _ := v.(bool)

	return ok
}

// Reconnect re-reads the stored credential record and connects with it,
// replacing any current connection. It returns false without dialing when no
// server is stored; the session is then Reset.
func (s *Session) Reconnect(ctx context.Context) bool {
	rec := credstore.Load(ctx, s.store, s.logger)

	s.mu.Lock()
	s.saved = rec.State
	s.mu.Unlock()

	if !rec.HasServer() {
		s.Reset()

		return false
	}

	return s.connect(ctx, metrics.KindReconnect, rec.ServerURL, rec.Username, rec.Password)
}

// Reset drops the connection and forgets the in-memory credentials, listing
// and position. The stored credential record is left alone.
func (s *Session) Reset() {
	s.mu.Lock()
	s.serverURL = ""
	s.username = ""
	s.password = ""
	s.binding = nil
	s.generation++
	s.currentPath = s.sandbox.Root()
	s.listing = Listing{}
	s.mu.Unlock()

	s.metrics.SetConnected(false)
	s.logger.Debug("session reset")
}

// Logout deletes the stored credential record, then resets the session.
func (s *Session) Logout(ctx context.Context) error {
	if err := credstore.Clear(ctx, s.store); err != nil {
		return err
	}

	s.mu.Lock()
	s.saved = credstore.StateAbsent
	s.mu.Unlock()

	s.Reset()

	return nil
}

// Connected reports whether a capability is bound.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.binding != nil
}

// ServerURL returns the server of the current or last-known connection.
func (s *Session) ServerURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.serverURL
}

// Username returns the account of the current or last-known connection.
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.username
}

// BasePath returns the sandbox root.
func (s *Session) BasePath() string {
	return s.sandbox.Root()
}

// Sandbox returns the session's path sandbox.
func (s *Session) Sandbox() Sandbox {
	return s.sandbox
}

// CurrentPath returns the directory of the current listing. It is always
// inside the base path.
func (s *Session) CurrentPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.currentPath
}

// RecordState reports what the credential store held at construction, or
// StateLoaded once a Connect has persisted a record.
func (s *Session) RecordState() credstore.State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.saved
}

// Variants reports the negotiated read and write forms. Both are VariantNone
// while disconnected.
func (s *Session) Variants() (read, write dav.Variant) {
	b := s.bound()
	if b == nil {
		return dav.VariantNone, dav.VariantNone
	}

	return b.ReadVariant(), b.WriteVariant()
}
