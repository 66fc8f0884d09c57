package dav

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Variant identifies which form of a read or write operation a Binding uses.
type Variant int

const (
	VariantNone Variant = iota
	VariantBuffered
	VariantStreamed
)

func (v Variant) String() string {
	switch v {
	case VariantBuffered:
		return "buffered"
	case VariantStreamed:
		return "streamed"
	default:
		return "none"
	}
}

// Operation names reported to observers and used in PathError.Op.
const (
	OpList  = "list"
	OpRead  = "read"
	OpWrite = "write"
)

// Observer receives one call per capability operation. n is the number of
// content bytes moved (0 for listings).
type Observer interface {
	ObserveOp(op string, d time.Duration, n int64, err error)
}

// BindOption configures a Binding.
type BindOption func(*Binding)

// WithObserver reports every operation to o.
func WithObserver(o Observer) BindOption {
	return func(b *Binding) {
		b.observer = o
	}
}

// WithLogger sets the logger used for debug output. Defaults to slog.Default().
func WithLogger(l *slog.Logger) BindOption {
	return func(b *Binding) {
		b.logger = l
	}
}

// Binding is a capability whose read and write variants have been resolved.
// Buffered variants are preferred; streamed ones are used only when the
// buffered form is absent. Resolution happens once, in Bind.
type Binding struct {
	lister   Lister
	read     func(ctx context.Context, name string) ([]byte, error)
	write    func(ctx context.Context, name string, data []byte) error
	readVia  Variant
	writeVia Variant
	observer Observer
	logger   *slog.Logger
}

// Bind negotiates the read and write variants of c. It fails when c exposes
// neither form of either operation.
func Bind(c Lister, opts ...BindOption) (*Binding, error) {
	if c == nil {
		return nil, ErrNoLister
	}

	b := &Binding{lister: c, logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}

	switch r := c.(type) {
	case BufferedReader:
		b.read, b.readVia = r.Read, VariantBuffered
	case StreamReader:
		b.read, b.readVia = readAllFrom(r), VariantStreamed
	default:
		return nil, ErrNoReader
	}

	switch w := c.(type) {
	case BufferedWriter:
		b.write, b.writeVia = w.Write, VariantBuffered
	case StreamWriter:
		b.write, b.writeVia = writeFrom(w), VariantStreamed
	default:
		return nil, ErrNoWriter
	}

	b.logger.Debug("capability bound",
		slog.String("read", b.readVia.String()),
		slog.String("write", b.writeVia.String()),
	)

	return b, nil
}

func readAllFrom(r StreamReader) func(context.Context, string) ([]byte, error) {
	return func(ctx context.Context, name string) ([]byte, error) {
		rc, err := r.ReadStream(ctx, name)
		if err != nil {
			return nil, err
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("reading stream: %w", err)
		}

		return data, nil
	}
}

func writeFrom(w StreamWriter) func(context.Context, string, []byte) error {
	return func(ctx context.Context, name string, data []byte) error {
		return w.WriteStream(ctx, name, bytes.NewReader(data))
	}
}

// ReadVariant reports the negotiated read form.
func (b *Binding) ReadVariant() Variant { return b.readVia }

// WriteVariant reports the negotiated write form.
func (b *Binding) WriteVariant() Variant { return b.writeVia }

// List returns the entries of dir.
func (b *Binding) List(ctx context.Context, dir string) ([]Entry, error) {
	start := time.Now()

	var entries []Entry

	err := ctx.Err()
	if err == nil {
		entries, err = b.lister.ReadDir(ctx, dir)
	}

	b.observe(OpList, start, 0, err)

	if err != nil {
		return nil, &PathError{Op: OpList, Path: dir, Err: err}
	}

	return entries, nil
}

// Read returns the content of name using the negotiated read variant.
func (b *Binding) Read(ctx context.Context, name string) ([]byte, error) {
	start := time.Now()

	var data []byte

	err := ctx.Err()
	if err == nil {
		data, err = b.read(ctx, name)
	}

	b.observe(OpRead, start, int64(len(data)), err)

	if err != nil {
		return nil, &PathError{Op: OpRead, Path: name, Err: err}
	}

	return data, nil
}

// Write replaces the content of name using the negotiated write variant.
func (b *Binding) Write(ctx context.Context, name string, data []byte) error {
	start := time.Now()

	err := ctx.Err()
	if err == nil {
		err = b.write(ctx, name, data)
	}

	var n int64
	if err == nil {
		n = int64(len(data))
	}

	b.observe(OpWrite, start, n, err)

	if err != nil {
		return &PathError{Op: OpWrite, Path: name, Err: err}
	}

	return nil
}

func (b *Binding) observe(op string, start time.Time, n int64, err error) {
	if b.observer == nil {
		return
	}

	b.observer.ObserveOp(op, time.Since(start), n, err)
}
