// Package dav defines the file-access capability a session binds to (list,
// read, write over slash-separated paths), negotiates which read and write
// variants a capability exposes, and adapts github.com/studio-b12/gowebdav
// as the production implementation.
package dav

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/studio-b12/gowebdav"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, dav.ErrNotFound) to check.
var (
	ErrBadRequest          = errors.New("dav: bad request")
	ErrUnauthorized        = errors.New("dav: unauthorized")
	ErrForbidden           = errors.New("dav: forbidden")
	ErrNotFound            = errors.New("dav: not found")
	ErrMethodNotAllowed    = errors.New("dav: method not allowed")
	ErrConflict            = errors.New("dav: conflict")
	ErrLocked              = errors.New("dav: resource locked")
	ErrInsufficientStorage = errors.New("dav: insufficient storage")
	ErrServerError         = errors.New("dav: server error")
	ErrUnexpectedStatus    = errors.New("dav: unexpected status")
)

// Capability negotiation errors returned by Bind.
var (
	ErrNoLister = errors.New("dav: capability cannot list directories")
	ErrNoReader = errors.New("dav: capability exposes neither buffered nor streamed reads")
	ErrNoWriter = errors.New("dav: capability exposes neither buffered nor streamed writes")
)

// ErrInvalidURL is returned by Dial when the server URL is not an absolute
// http(s) URL.
var ErrInvalidURL = errors.New("dav: invalid server URL")

// StatusError records the HTTP status a WebDAV server answered with. Err is
// the classified sentinel, for errors.Is().
type StatusError struct {
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("dav: HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// PathError annotates a failed capability call with the operation and the
// normalized path it was attempted on.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("dav: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusMethodNotAllowed:
		return ErrMethodNotAllowed
	case http.StatusConflict:
		return ErrConflict
	case http.StatusLocked:
		return ErrLocked
	case http.StatusInsufficientStorage:
		return ErrInsufficientStorage
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return ErrUnexpectedStatus
	}
}

// classify converts a gowebdav error into a *StatusError when the server
// answered with an HTTP status. Network-level errors are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var se gowebdav.StatusError
	if errors.As(err, &se) {
		return &StatusError{StatusCode: se.Status, Err: classifyStatus(se.Status)}
	}

	return err
}
