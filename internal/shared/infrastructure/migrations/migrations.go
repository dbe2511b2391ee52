// Package migrations holds the embedded schema for every supported driver.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/felixgeelhaar/classplan/internal/shared/infrastructure/database"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

const upSuffix = ".up.sql"

// Migration is one schema step.
type Migration struct {
	Version string
	SQL     string
}

// Load returns the migrations of a driver in version order.
func Load(driver database.Driver) ([]Migration, error) {
	dir := string(driver)
	entries, err := fs.ReadDir(files, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations for %s: %w", driver, err)
	}

	var names []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), upSuffix) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	migrations := make([]Migration, 0, len(names))
	for _, name := range names {
		body, err := fs.ReadFile(files, dir+"/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		migrations = append(migrations, Migration{
			Version: strings.TrimSuffix(name, upSuffix),
			SQL:     string(body),
		})
	}
	return migrations, nil
}

// Run applies every migration not yet recorded in schema_migrations.
// Each migration runs in its own transaction.
func Run(ctx context.Context, conn database.Connection) error {
	migrations, err := Load(conn.Driver())
	if err != nil {
		return err
	}

	if _, err := conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	applied, err := appliedVersions(ctx, conn)
	if err != nil {
		return err
	}

	insert := `INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`
	if conn.Driver() == database.DriverPostgres {
		insert = `INSERT INTO schema_migrations (version, applied_at) VALUES ($1, $2)`
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		if err := apply(ctx, conn, m, insert); err != nil {
			return err
		}
	}
	return nil
}

func appliedVersions(ctx context.Context, conn database.Connection) (map[string]bool, error) {
	rows, err := conn.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	versions, err := database.CollectRows(rows, func(r database.Row) (string, error) {
		var v string
		if err := r.Scan(&v); err != nil {
			return "", err
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}

	applied := make(map[string]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}
	return applied, nil
}

func apply(ctx context.Context, conn database.Connection, m Migration, insert string) error {
	tx, err := conn.BeginTx(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("failed to execute migration %s: %w", m.Version, err)
	}
	if _, err := tx.Exec(ctx, insert, m.Version, time.Now().UTC().Format(time.RFC3339)); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("failed to record migration %s: %w", m.Version, err)
	}
	return tx.Commit(ctx)
}
