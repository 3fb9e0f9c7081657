// Package storage is the sqlite-backed chart library catalog: scanned
// song directories, their generated charts, and async chart-generation
// jobs. Adapted from the teacher's internal/storage/db.go (connection
// setup, embedded migrations) and jobs.go (job-queue pattern), retargeted
// from a DJ track library to a rhythm-game chart library.
package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps the SQLite database connection backing the chart library.
type DB struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens the SQLite database at dataDir/rhythmengine.db and runs
// migrations.
func Open(dataDir string, logger *slog.Logger) (*DB, error) {
	dbPath := filepath.Join(dataDir, "rhythmengine.db")

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: enable WAL mode: %w", err)
	}

	store := &DB{db: db, logger: logger}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: run migrations: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) migrate() error {
	_, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var currentVersion int
	row := d.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if d.logger != nil {
			d.logger.Info("applying migration", "version", version, "file", entry.Name())
		}

		if _, err := d.db.Exec(string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := d.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func (d *DB) Exec(query string, args ...any) (sql.Result, error) { return d.db.Exec(query, args...) }
func (d *DB) Query(query string, args ...any) (*sql.Rows, error) { return d.db.Query(query, args...) }
func (d *DB) QueryRow(query string, args ...any) *sql.Row        { return d.db.QueryRow(query, args...) }
func (d *DB) Begin() (*sql.Tx, error)                            { return d.db.Begin() }
func (d *DB) Ping() error                                        { return d.db.Ping() }
