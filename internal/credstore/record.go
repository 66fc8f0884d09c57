// Package credstore persists the connection credential record in a generic
// key-value store. The record lives under a single key as a JSON document;
// loading never fails: a missing or unreadable record yields an empty Record
// whose State says why.
package credstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// RecordKey is the store key holding the credential record.
const RecordKey = "webdav_config"

// Store is a string-keyed byte-value store, the contract the credential
// record needs from its persistence medium.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// State describes where a loaded Record came from.
type State int

const (
	// StateAbsent means nothing was stored under RecordKey.
	StateAbsent State = iota
	// StateCorrupt means a value was stored but could not be read or decoded.
	StateCorrupt
	// StateLoaded means the record was decoded successfully.
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateCorrupt:
		return "corrupt"
	case StateLoaded:
		return "loaded"
	default:
		return "absent"
	}
}

// Record is the persisted connection configuration. All fields are optional.
type Record struct {
	ServerURL string `json:"serverUrl,omitempty"`
	Username  string `json:"username,omitempty"`
	Password  string `json:"password,omitempty"`
	BasePath  string `json:"basePath,omitempty"`

	State State `json:"-"`
}

// HasServer reports whether the record names a server to reconnect to.
func (r Record) HasServer() bool {
	return r.ServerURL != ""
}

// Load reads the record from store. Read and decode failures are logged and
// reported through State; the returned Record is then empty.
func Load(ctx context.Context, store Store, logger *slog.Logger) Record {
	if logger == nil {
		logger = slog.Default()
	}

	data, ok, err := store.Get(ctx, RecordKey)
	if err != nil {
		logger.Warn("credential record unreadable, starting without saved credentials",
			slog.String("error", err.Error()),
		)

		return Record{State: StateCorrupt}
	}

	if !ok {
		logger.Debug("no saved credential record")

		return Record{State: StateAbsent}
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		logger.Warn("credential record corrupt, starting without saved credentials",
			slog.String("error", err.Error()),
		)

		return Record{State: StateCorrupt}
	}

	rec.State = StateLoaded

	logger.Debug("loaded credential record",
		slog.String("server_url", rec.ServerURL),
		slog.String("username", rec.Username),
	)

	return rec
}

// Save writes rec to store under RecordKey.
func Save(ctx context.Context, store Store, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("credstore: encoding record: %w", err)
	}

	if err := store.Set(ctx, RecordKey, data); err != nil {
		return fmt.Errorf("credstore: saving record: %w", err)
	}

	return nil
}

// Clear removes the stored record.
func Clear(ctx context.Context, store Store) error {
	if err := store.Delete(ctx, RecordKey); err != nil {
		return fmt.Errorf("credstore: clearing record: %w", err)
	}

	return nil
}
