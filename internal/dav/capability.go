package dav

import (
	"context"
	"io"
	"time"
)

// Kind distinguishes files from directories in a listing.
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
)

func (k Kind) String() string {
	if k == KindDirectory {
		return "directory"
	}

	return "file"
}

// Entry is one item of a directory listing. Entries are produced only by a
// listing fetch and are not modified afterwards.
type Entry struct {
	Name    string // basename, NFC-normalized for display and comparison
	Path    string // absolute path on the server, byte-for-byte as listed
	Kind    Kind
	Size    int64
	ModTime time.Time
	Meta    map[string]string // etag, content_type when the server reports them
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool {
	return e.Kind == KindDirectory
}

// Lister lists the entries of a directory. Every capability must implement it.
type Lister interface {
	ReadDir(ctx context.Context, dir string) ([]Entry, error)
}

// BufferedReader returns the whole content of a file.
type BufferedReader interface {
	Read(ctx context.Context, name string) ([]byte, error)
}

// StreamReader opens a file for streamed reading. The caller closes the
// returned reader.
type StreamReader interface {
	ReadStream(ctx context.Context, name string) (io.ReadCloser, error)
}

// BufferedWriter replaces the content of a file in one call.
type BufferedWriter interface {
	Write(ctx context.Context, name string, data []byte) error
}

// StreamWriter replaces the content of a file from a reader.
type StreamWriter interface {
	WriteStream(ctx context.Context, name string, r io.Reader) error
}
