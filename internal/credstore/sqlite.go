package credstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// busyTimeoutMillis lets a second process wait for the write lock instead of
// failing immediately.
const busyTimeoutMillis = 5000

// SQLiteStore implements Store with a single kv table in an SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger

	get, set, del *sql.Stmt
}

// OpenSQLite opens (creating if needed) the database at dbPath, applies
// migrations, and prepares statements. Use ":memory:" for tests.
func OpenSQLite(ctx context.Context, dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("opening credential database", slog.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("credstore: open sqlite: %w", err)
	}

	// One connection: ":memory:" databases are per-connection, and the store
	// sees a handful of writes per process at most.
	db.SetMaxOpenConns(1)

	if err := setPragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db, logger: logger}

	if err := s.prepare(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("credstore: prepare statements: %w", err)
	}

	return s, nil
}

func setPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMillis),
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("credstore: %s: %w", p, err)
		}
	}

	return nil
}

// runMigrations applies all pending schema migrations using the goose v3
// Provider API.
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("credstore: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("credstore: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("credstore: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Debug("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

func (s *SQLiteStore) prepare(ctx context.Context) error {
	var err error

	if s.get, err = s.db.PrepareContext(ctx, `SELECT value FROM kv WHERE key = ?`); err != nil {
		return err
	}

	if s.set, err = s.db.PrepareContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
	); err != nil {
		return err
	}

	if s.del, err = s.db.PrepareContext(ctx, `DELETE FROM kv WHERE key = ?`); err != nil {
		return err
	}

	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte

	err := s.get.QueryRowContext(ctx, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("credstore: get %q: %w", key, err)
	}

	return value, true, nil
}

// Set implements Store.
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.set.ExecContext(ctx, key, value, time.Now().Unix()); err != nil {
		return fmt.Errorf("credstore: set %q: %w", key, err)
	}

	return nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.del.ExecContext(ctx, key); err != nil {
		return fmt.Errorf("credstore: delete %q: %w", key, err)
	}

	return nil
}

// Close releases prepared statements and the database handle.
func (s *SQLiteStore) Close() error {
	return errors.Join(
		s.get.Close(),
		s.set.Close(),
		s.del.Close(),
		s.db.Close(),
	)
}
