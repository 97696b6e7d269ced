package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection to a starfield graph database.
type DB struct {
	*sql.DB
	Path string

	clock func() time.Time
}

const memoryPath = ":memory:"

// DefaultDBPath returns the default database path: ~/.starfield/starfield.db
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".starfield", "starfield.db"), nil
}

// Open opens (or creates) the SQLite database at the given path and runs
// migrations. The directory is created owner-only.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	return open(path)
}

// OpenMemory opens a private in-memory database for testing.
func OpenMemory() (*DB, error) {
	return open(memoryPath)
}

func open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if path == memoryPath {
		// Every connection would get its own empty database.
		sqlDB.SetMaxOpenConns(1)
	}

	db := &DB{DB: sqlDB, Path: path}
	if err := db.PingContext(context.Background()); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("connect %s: %w", path, err)
	}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// pragmas run on every new pool connection. WAL and mmap only make sense
// for files.
func pragmas(path string) []string {
	p := []string{"busy_timeout(5000)", "foreign_keys(1)"}
	if path == memoryPath {
		return p
	}
	return append(p,
		"journal_mode(WAL)",
		"synchronous(NORMAL)",
		"mmap_size(268435456)", // 256MB
	)
}

func dsn(path string) string {
	q := url.Values{"_pragma": pragmas(path)}
	return path + "?" + q.Encode()
}

// Check reports whether the database answers and is fully migrated.
func (db *DB) Check(ctx context.Context) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	v, err := db.schemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("schema version: %w", err)
	}
	if v < len(migrations) {
		return fmt.Errorf("schema at version %d, want %d", v, len(migrations))
	}
	return nil
}
