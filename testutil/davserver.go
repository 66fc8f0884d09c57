// Package testutil provides an in-process WebDAV server for integration
// tests. The server keeps everything in memory and requires HTTP Basic auth.
package testutil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"strings"
	"sync"
	"testing"

	"golang.org/x/net/webdav"
)

// DAVServer is a WebDAV endpoint backed by webdav.NewMemFS.
type DAVServer struct {
	URL      string
	Username string
	Password string
	FS       webdav.FileSystem

	mu       sync.Mutex
	requests map[string]int // keyed by HTTP method
}

// NewDAVServer starts a server accepting username/password and creates each
// of dirs (with parents). The server is closed when the test ends.
func NewDAVServer(t *testing.T, username, password string, dirs ...string) *DAVServer {
	t.Helper()

	s := &DAVServer{
		Username: username,
		Password: password,
		FS:       webdav.NewMemFS(),
		requests: make(map[string]int),
	}

	for _, dir := range dirs {
		s.MkdirAll(t, dir)
	}

	handler := &webdav.Handler{
		FileSystem: s.FS,
		LockSystem: webdav.NewMemLS(),
	}

	srv := httptest.NewServer(s.basicAuth(handler))
	t.Cleanup(srv.Close)

	s.URL = srv.URL

	return s
}

func (s *DAVServer) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests[r.Method]++
		s.mu.Unlock()

		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="davnotes-test"`)
			http.Error(w, "Authentication required", http.StatusUnauthorized)

			return
		}

		next.ServeHTTP(w, r)
	})
}

// Requests returns how many requests with the given method reached the server.
func (s *DAVServer) Requests(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.requests[method]
}

// MkdirAll creates dir and its parents.
func (s *DAVServer) MkdirAll(t *testing.T, dir string) {
	t.Helper()

	ctx := context.Background()
	built := ""

	for _, seg := range splitPath(dir) {
		built = built + "/" + seg

		err := s.FS.Mkdir(ctx, built, 0o755)
		if err != nil && !os.IsExist(err) {
			t.Fatalf("mkdir %s: %v", built, err)
		}
	}
}

// WriteFile stores data at name, creating parent directories.
func (s *DAVServer) WriteFile(t *testing.T, name string, data []byte) {
	t.Helper()

	s.MkdirAll(t, path.Dir(name))

	f, err := s.FS.OpenFile(context.Background(), name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		t.Fatalf("open %s: %v", name, err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

// ReadFile returns the content stored at name.
func (s *DAVServer) ReadFile(t *testing.T, name string) []byte {
	t.Helper()

	f, err := s.FS.OpenFile(context.Background(), name, os.O_RDONLY, 0)
	if err != nil {
		t.Fatalf("open %s: %v", name, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}

	return data
}

func splitPath(p string) []string {
	var segs []string

	for _, seg := range strings.Split(path.Clean("/"+p), "/") {
		if seg != "" {
			segs = append(segs, seg)
		}
	}

	return segs
}
