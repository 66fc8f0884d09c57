package dav

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/studio-b12/gowebdav"
	"golang.org/x/text/unicode/norm"
)

// filePerms is sent with PUT requests; most servers ignore it.
const filePerms os.FileMode = 0o644

// Credentials identify a WebDAV endpoint and the account used on it.
type Credentials struct {
	ServerURL string
	Username  string
	Password  string
}

// Options tune the HTTP side of a Client. Zero values keep gowebdav defaults.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// Client adapts a gowebdav.Client to the capability interfaces. It exposes
// both buffered and streamed variants of reads and writes.
type Client struct {
	c      *gowebdav.Client
	logger *slog.Logger
}

// NewClient creates a Client without contacting the server.
func NewClient(creds Credentials, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := gowebdav.NewClient(creds.ServerURL, creds.Username, creds.Password)

	if opts.Timeout > 0 {
		c.SetTimeout(opts.Timeout)
	}

	if opts.Transport != nil {
		c.SetTransport(opts.Transport)
	}

	if opts.UserAgent != "" {
		c.SetHeader("User-Agent", opts.UserAgent)
	}

	return &Client{c: c, logger: logger}
}

// Dial validates the server URL, creates a Client and verifies that the
// server accepts the credentials.
func Dial(ctx context.Context, creds Credentials, opts Options) (*Client, error) {
	if err := validateServerURL(creds.ServerURL); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := NewClient(creds, opts)

	if err := client.c.Connect(); err != nil {
		return nil, fmt.Errorf("dav: connecting to %s: %w", creds.ServerURL, classify(err))
	}

	client.logger.Debug("connected to WebDAV server",
		slog.String("server_url", creds.ServerURL),
		slog.String("username", creds.Username),
	)

	return client, nil
}

func validateServerURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https, got %q", ErrInvalidURL, u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("%w: missing host in %q", ErrInvalidURL, raw)
	}

	return nil
}

// ReadDir lists dir. The directory itself is not part of the result.
func (c *Client) ReadDir(_ context.Context, dir string) ([]Entry, error) {
	infos, err := c.c.ReadDir(dir)
	if err != nil {
		return nil, classify(err)
	}

	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, entryFromInfo(dir, info))
	}

	return entries, nil
}

// etagger and contentTyper are satisfied by gowebdav.File.
type etagger interface{ ETag() string }

type contentTyper interface{ ContentType() string }

func entryFromInfo(dir string, info os.FileInfo) Entry {
	e := Entry{
		Name:    norm.NFC.String(info.Name()),
		Path:    path.Join("/", dir, info.Name()),
		Kind:    KindFile,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}

	if info.IsDir() {
		e.Kind = KindDirectory
		e.Size = 0
	}

	meta := make(map[string]string, 2)

	if et, ok := info.(etagger); ok && et.ETag() != "" {
		meta["etag"] = strings.Trim(et.ETag(), `"`)
	}

	if ct, ok := info.(contentTyper); ok && ct.ContentType() != "" {
		meta["content_type"] = ct.ContentType()
	}

	if len(meta) > 0 {
		e.Meta = meta
	}

	return e
}

// Read returns the whole content of name.
func (c *Client) Read(_ context.Context, name string) ([]byte, error) {
	data, err := c.c.Read(name)
	if err != nil {
		return nil, classify(err)
	}

	return data, nil
}

// ReadStream opens name for streamed reading.
func (c *Client) ReadStream(_ context.Context, name string) (io.ReadCloser, error) {
	rc, err := c.c.ReadStream(name)
	if err != nil {
		return nil, classify(err)
	}

	return rc, nil
}

// Write replaces the content of name. Missing parent collections are
// created by gowebdav on 409 Conflict.
func (c *Client) Write(_ context.Context, name string, data []byte) error {
	return classify(c.c.Write(name, data, filePerms))
}

// WriteStream replaces the content of name from r.
func (c *Client) WriteStream(_ context.Context, name string, r io.Reader) error {
	return classify(c.c.WriteStream(name, r, filePerms))
}

// Compile-time interface checks.
var (
	_ Lister         = (*Client)(nil)
	_ BufferedReader = (*Client)(nil)
	_ StreamReader   = (*Client)(nil)
	_ BufferedWriter = (*Client)(nil)
	_ StreamWriter   = (*Client)(nil)
)
