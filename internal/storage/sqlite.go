package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding the services, resources and auth
// collections. Every record is a JSON document keyed by its id.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
// Any failure is reported as ErrStorageUnavailable wrapping the cause.
func Open(dataDir string) (*Store, error) {
	s, err := open(dataDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return s, nil
}

func open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "houhou.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Collections ---

func checkCollection(c Collection) error {
	if !c.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, string(c))
	}
	return nil
}

// GetAll returns every record in the collection. The slice is empty, not nil,
// when the collection holds nothing.
func (s *Store) GetAll(ctx context.Context, c Collection) ([]json.RawMessage, error) {
	if err := checkCollection(c); err != nil {
		return nil, err
	}

	// Table names come from the fixed Collections list, never from input.
	rows, err := s.db.QueryContext(ctx, "SELECT body FROM "+string(c)+" ORDER BY rowid ASC")
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", c, err)
	}
	defer rows.Close()

	results := []json.RawMessage{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		results = append(results, json.RawMessage(body))
	}
	return results, rows.Err()
}

// Get returns the record stored under id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, c Collection, id string) (json.RawMessage, error) {
	if err := checkCollection(c); err != nil {
		return nil, err
	}

	var body string
	err := s.db.QueryRowContext(ctx, "SELECT body FROM "+string(c)+" WHERE id = ?", id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s/%s: %w", c, id, err)
	}
	return json.RawMessage(body), nil
}

// Put marshals record and upserts it under id, replacing any previous record.
func (s *Store) Put(ctx context.Context, c Collection, id string, record any) error {
	if err := checkCollection(c); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("putting into %s: empty id", c)
	}

	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshalling %s/%s: %w", c, id, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO `+string(c)+` (id, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		id, string(body), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("writing %s/%s: %w", c, id, err)
	}
	return nil
}

// Remove deletes the record stored under id. Removing a missing record is a no-op.
func (s *Store) Remove(ctx context.Context, c Collection, id string) error {
	if err := checkCollection(c); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM "+string(c)+" WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting %s/%s: %w", c, id, err)
	}
	return nil
}

// Count returns the number of records in the collection.
func (s *Store) Count(ctx context.Context, c Collection) (int, error) {
	if err := checkCollection(c); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+string(c)).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", c, err)
	}
	return n, nil
}
