package catalog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kilupskalvis/mosgal/internal/models"
	_ "modernc.org/sqlite"
)

const currentSchemaVersion = 2

// SQLite stores the catalog in an SQLite database.
type SQLite struct {
	db   *sql.DB
	path string
}

// NewSQLite opens or creates the database at path and brings its schema up
// to date.
func NewSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLite{db: db, path: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) initialize() error {
	schema := `
	-- Cataloged pictures
	CREATE TABLE IF NOT EXISTS pictures (
		source TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		attributes JSON NOT NULL
	);

	-- Run metadata
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT
	);

	CREATE TABLE IF NOT EXISTS catalog_schema_version (
		version INTEGER PRIMARY KEY
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// runMigrations applies any pending schema migrations.
func (s *SQLite) runMigrations() error {
	version, err := s.schemaVersion()
	if err != nil {
		return err
	}

	if version < 2 {
		if err := s.migrateToV2(); err != nil {
			return fmt.Errorf("migration to v2 failed: %w", err)
		}
	}
	return nil
}

// schemaVersion returns the stored schema version, 1 if not set.
func (s *SQLite) schemaVersion() (int, error) {
	var version int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 1) FROM catalog_schema_version").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

// migrateToV2 adds the updated_at column.
func (s *SQLite) migrateToV2() error {
	if !s.columnExists("pictures", "updated_at") {
		if _, err := s.db.Exec(`ALTER TABLE pictures ADD COLUMN updated_at DATETIME`); err != nil {
			return err
		}
	}
	if _, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_pictures_updated ON pictures(updated_at)`); err != nil {
		return err
	}
	_, err := s.db.Exec("INSERT OR REPLACE INTO catalog_schema_version (version) VALUES (?)", currentSchemaVersion)
	return err
}

// columnExists checks if a column exists in a table.
func (s *SQLite) columnExists(table, column string) bool {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM pragma_table_info(?)
		WHERE name = ?
	`, table, column).Scan(&count)
	return err == nil && count > 0
}

// Load reads every picture and metadata row.
func (s *SQLite) Load(c *Catalog) error {
	rows, err := s.db.Query(`SELECT source, path, attributes FROM pictures ORDER BY source`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var source, path, attrs string
		if err := rows.Scan(&source, &path, &attrs); err != nil {
			return err
		}
		f := models.NewFileRecord(source, path)
		if err := json.Unmarshal([]byte(attrs), &f.Attributes); err != nil {
			return fmt.Errorf("decode attributes of %s: %w", source, err)
		}
		c.restore(f)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	kv, err := s.db.Query(`SELECT key, value FROM kv`)
	if err != nil {
		return err
	}
	defer kv.Close()
	for kv.Next() {
		var key string
		var value sql.NullString
		if err := kv.Scan(&key, &value); err != nil {
			return err
		}
		c.SetMeta(key, value.String)
	}
	return kv.Err()
}

// Save replaces the stored pictures and metadata in one transaction.
func (s *SQLite) Save(c *Catalog) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM pictures`); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO pictures (source, path, attributes, updated_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, f := range c.Records() {
		attrs, err := json.Marshal(f.Attributes)
		if err != nil {
			return fmt.Errorf("encode attributes of %s: %w", f.Source, err)
		}
		if _, err := stmt.Exec(f.Source, f.Path, string(attrs), now); err != nil {
			return fmt.Errorf("insert %s: %w", f.Source, err)
		}
	}

	for _, k := range c.MetaKeys() {
		v := c.Meta(k)
		if _, err := tx.Exec(
			"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = ?",
			k, v, v,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Describe returns the backend kind and path.
func (s *SQLite) Describe() string { return "sqlite " + s.path }
