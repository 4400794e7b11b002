// Package sqlite implements the service repositories on a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ignite/leadharvest/internal/pkg/vault"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// timeLayout matches SQLite's CURRENT_TIMESTAMP so text comparisons order correctly.
const timeLayout = "2006-01-02 15:04:05"

// DB is an open store. When a password is set the file is decrypted from
// <path>.enc on Open and sealed back on Close.
type DB struct {
	*sql.DB
	path     string
	password string
}

// Open opens (creating if needed) the database at path.
func Open(ctx context.Context, path, password string) (*DB, error) {
	if password != "" {
		if err := unseal(path, password); err != nil {
			return nil, err
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer; SQLite serialises anyway and this keeps :memory: coherent.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &DB{DB: sqlDB, path: path, password: password}, nil
}

// unseal prepares the plaintext file for an encrypted store. A plaintext
// file next to <path>.enc means the previous run never reached Close; it
// holds that run's writes, so it is kept instead of being overwritten by
// the older sealed copy. Close seals it once SQLite has recovered it.
func unseal(path, password string) error {
	enc := path + vault.Extension
	if _, err := os.Stat(enc); errors.Is(err, fs.ErrNotExist) {
		return nil
	} else if err != nil {
		return fmt.Errorf("stat %s: %w", enc, err)
	}

	_, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := vault.OpenFile(enc, path, password); err != nil {
			return fmt.Errorf("decrypt database: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("stat %s: %w", path, err)
	}

	if err := vault.VerifyFile(enc, password); err != nil {
		return fmt.Errorf("decrypt database: %w", err)
	}
	log.Printf("[DB] %s was not sealed by the last run, keeping it", path)
	return nil
}

// Path returns the plaintext database path.
func (d *DB) Path() string { return d.path }

// Close closes the connection and, when encryption is enabled, seals the
// file to <path>.enc and removes the plaintext.
func (d *DB) Close() error {
	if err := d.DB.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	if d.password == "" {
		return nil
	}
	if err := vault.SealFile(d.path, d.path+vault.Extension, d.password); err != nil {
		return fmt.Errorf("encrypt database: %w", err)
	}
	if err := os.Remove(d.path); err != nil {
		return fmt.Errorf("remove plaintext database: %w", err)
	}
	return nil
}

// Migrations lists the embedded migration file names in apply order.
func Migrations() ([]string, error) {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Migrate applies every embedded migration not yet recorded in
// schema_migrations. Each file runs in its own transaction.
func (d *DB) Migrate(ctx context.Context) (int, error) {
	if _, err := d.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name       TEXT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}

	names, err := Migrations()
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, name := range names {
		var exists int
		if err := d.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM schema_migrations WHERE name = ?`, name).Scan(&exists); err != nil {
			return applied, fmt.Errorf("check migration %s: %w", name, err)
		}
		if exists > 0 {
			continue
		}

		body, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return applied, fmt.Errorf("read migration %s: %w", name, err)
		}

		tx, err := d.BeginTx(ctx, nil)
		if err != nil {
			return applied, fmt.Errorf("begin migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			tx.Rollback()
			return applied, fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (name) VALUES (?)`, name); err != nil {
			tx.Rollback()
			return applied, fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return applied, fmt.Errorf("commit migration %s: %w", name, err)
		}
		log.Printf("[Migrate] applied %s", name)
		applied++
	}
	return applied, nil
}

// Tables lists user tables, for the migrate --list command.
func (d *DB) Tables(ctx context.Context) ([]string, error) {
	rows, err := d.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// BackupTo writes a consistent copy of the database to dst.
func (d *DB) BackupTo(ctx context.Context, dst string) error {
	if _, err := d.ExecContext(ctx, `VACUUM INTO ?`, dst); err != nil {
		return fmt.Errorf("backup database: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullTime(t *time.Time) interface{} {
	if t == nil || t.IsZero() {
		return nil
	}
	return formatTime(*t)
}

// parseTime accepts the layouts the driver may hand back for TIMESTAMP columns.
func parseTime(s string) (time.Time, bool) {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func scanTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t, ok := parseTime(ns.String)
	if !ok {
		return nil
	}
	return &t
}
