package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/tonimelisma/davnotes/internal/credstore"
	"github.com/tonimelisma/davnotes/internal/dav"
)

// remote is an in-memory tree shared by the stub capabilities. Directories
// are implied by the files beneath them plus anything added with mkdir.
type remote struct {
	mu     sync.Mutex
	files  map[string][]byte
	dirs   map[string]bool
	calls  []string // "list /x", "read /x", "write /x"
	onList func(dir string)
}

func newRemote(dirs ...string) *remote {
	r := &remote{files: make(map[string][]byte), dirs: map[string]bool{"/": true}}
	for _, d := range dirs {
		r.mkdir(d)
	}

	return r
}

func (r *remote) mkdir(dir string) {
	for d := path.Clean(dir); d != "/"; d = path.Dir(d) {
		r.dirs[d] = true
	}
}

func (r *remote) put(name, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.mkdir(path.Dir(name))
	r.files[name] = []byte(content)
}

func (r *remote) record(op, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, op+" "+name)
}

func (r *remote) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.calls)
}

func (r *remote) ReadDir(_ context.Context, dir string) ([]dav.Entry, error) {
	r.record("list", dir)

	if r.onList != nil {
		r.onList(dir)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.dirs[dir] {
		return nil, dav.ErrNotFound
	}

	var entries []dav.Entry

	for d := range r.dirs {
		if d != "/" && path.Dir(d) == dir {
			entries = append(entries, dav.Entry{Name: path.Base(d), Path: d, Kind: dav.KindDirectory})
		}
	}

	for name, data := range r.files {
		if path.Dir(name) == dir {
			entries = append(entries, dav.Entry{
				Name: path.Base(name), Path: name, Kind: dav.KindFile, Size: int64(len(data)),
			})
		}
	}

	slices.SortFunc(entries, func(a, b dav.Entry) int { return strings.Compare(a.Name, b.Name) })

	return entries, nil
}

func (r *remote) read(name string) ([]byte, error) {
	r.record("read", name)

	r.mu.Lock()
	defer r.mu.Unlock()

	data, ok := r.files[name]
	if !ok {
		return nil, dav.ErrNotFound
	}

	return slices.Clone(data), nil
}

func (r *remote) write(name string, data []byte) error {
	r.record("write", name)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.mkdir(path.Dir(name))
	r.files[name] = slices.Clone(data)

	return nil
}

// bufferedCap exposes only the buffered read/write variants.
type bufferedCap struct{ *remote }

func (c bufferedCap) Read(_ context.Context, name string) ([]byte, error) {
	return c.read(name)
}

func (c bufferedCap) Write(_ context.Context, name string, data []byte) error {
	return c.write(name, data)
}

// streamedCap exposes only the streamed read/write variants.
type streamedCap struct{ *remote }

func (c streamedCap) ReadStream(_ context.Context, name string) (io.ReadCloser, error) {
	data, err := c.read(name)
	if err != nil {
		return nil, err
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

func (c streamedCap) WriteStream(_ context.Context, name string, src io.Reader) error {
	data, err := io.ReadAll(src)
	if err != nil {
		return err
	}

	return c.write(name, data)
}

// listOnlyCap cannot read or write.
type listOnlyCap struct{ *remote }

var errBadCredentials = errors.New("stub: bad credentials")

// stubDialer accepts only alice/secret and hands out wrap(remote).
type stubDialer struct {
	remote *remote
	wrap   func(*remote) dav.Lister

	mu    sync.Mutex
	dials []dav.Credentials
	gate  chan struct{} // when non-nil, Dial waits for it to close
}

func newStubDialer(r *remote) *stubDialer {
	return &stubDialer{remote: r, wrap: func(r *remote) dav.Lister { return bufferedCap{r} }}
}

func (d *stubDialer) Dial(_ context.Context, creds dav.Credentials) (dav.Lister, error) {
	d.mu.Lock()
	d.dials = append(d.dials, creds)
	gate := d.gate
	d.mu.Unlock()

	if gate != nil {
		<-gate
	}

	if creds.Username != "alice" || creds.Password != "secret" {
		return nil, &dav.StatusError{StatusCode: 401, Err: dav.ErrUnauthorized}
	}

	return d.wrap(d.remote), nil
}

func (d *stubDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.dials)
}

// failingSetStore rejects writes.
type failingSetStore struct {
	*credstore.MemStore
}

func (failingSetStore) Set(context.Context, string, []byte) error {
	return errors.New("stub: read-only store")
}

func newTestSession(t *testing.T, d Dialer, store credstore.Store) *Session {
	t.Helper()

	if store == nil {
		store = credstore.NewMemStore()
	}

	return New(context.Background(), d, Options{BasePath: DefaultBasePath, Store: store})
}

func names(entries []dav.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}

	return out
}
