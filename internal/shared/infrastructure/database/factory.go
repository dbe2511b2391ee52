package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds database configuration.
type Config struct {
	// Driver selects the backend. Empty or "auto" detects it from URL.
	Driver Driver

	// URL is the PostgreSQL connection string, or a sqlite:// / file: URL.
	URL string

	// SQLitePath is the database file for DriverSQLite. ":memory:" opens a
	// private in-memory database. Defaults to ~/.classplan/classplan.db.
	SQLitePath string

	// MaxConns is the maximum number of pooled connections (PostgreSQL only).
	MaxConns int
}

// Resolve fills in the detected driver and the SQLite path taken from URL.
func (c Config) Resolve() Config {
	if c.Driver == "" || c.Driver == "auto" {
		c.Driver = DetectDriver(c.URL)
	}
	if c.Driver == DriverSQLite && c.SQLitePath == "" {
		if c.URL != "" {
			c.SQLitePath = SQLitePathFromURL(c.URL)
		} else {
			c.SQLitePath = DefaultSQLitePath()
		}
	}
	return c
}

// NewConnection opens a connection for the configured driver.
// The driver packages register themselves on import.
func NewConnection(ctx context.Context, cfg Config) (Connection, error) {
	cfg = cfg.Resolve()

	var open func(ctx context.Context, cfg Config) (Connection, error)
	switch cfg.Driver {
	case DriverPostgres:
		open = newPostgresConnection
	case DriverSQLite:
		open = newSQLiteConnection
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
	if open == nil {
		return nil, fmt.Errorf("database driver %s is not registered", cfg.Driver)
	}
	return open(ctx, cfg)
}

// DefaultSQLitePath returns the default SQLite database path.
func DefaultSQLitePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".classplan", "classplan.db")
}

// EnsureDirectory creates the parent directory for a file path if it doesn't exist.
func EnsureDirectory(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

var (
	newPostgresConnection func(ctx context.Context, cfg Config) (Connection, error)
	newSQLiteConnection   func(ctx context.Context, cfg Config) (Connection, error)
)

// RegisterPostgresDriver registers the PostgreSQL connection factory.
func RegisterPostgresDriver(fn func(ctx context.Context, cfg Config) (Connection, error)) {
	newPostgresConnection = fn
}

// RegisterSQLiteDriver registers the SQLite connection factory.
func RegisterSQLiteDriver(fn func(ctx context.Context, cfg Config) (Connection, error)) {
	newSQLiteConnection = fn
}
