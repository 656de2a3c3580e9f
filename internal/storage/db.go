// Package storage is the repository/service tier over a single embedded
// relational store (spec §4.4, §6): sqlite open/migrate, per-entity
// repositories, a write-through cache, a connection/concurrency pool, a
// homogeneous-operation batch API, and a performance metrics surface.
//
// Grounded directly on internal/memory/db.go: WAL mode, busy timeout,
// SetMaxOpenConns/SetMaxIdleConns, and the versioned-migration-by-checking-
// schema_version pattern.
package storage

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

//go:embed migrations/001_web_metadata_index.sql
var migration001 string

//go:embed migrations/002_agent_token_expiry_index.sql
var migration002 string

//go:embed migrations/003_audit_severity_index.sql
var migration003 string

// DB wraps the embedded relational store. All repositories share it and
// the cache/pool/batch/metrics layers wrap it directly, matching the
// teacher's single-struct-per-store shape.
type DB struct {
	sql    *sql.DB
	path   string
	logger *log.Logger
}

// Config mirrors the storage section of spec §6's configuration object.
type Config struct {
	URL              string
	MaxConnections   int
	MigrateOnStartup bool
	Logger           *log.Logger
}

func Open(cfg Config) (*DB, error) {
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[STORAGE] ", log.LstdFlags)
	}
	if cfg.URL != ":memory:" {
		if dir := filepath.Dir(cfg.URL); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create storage directory: %w", err)
			}
		}
	}

	sqlDB, err := sql.Open("sqlite3", cfg.URL+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	maxConns := cfg.MaxConnections
	if maxConns <= 0 {
		maxConns = 25
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(5)

	db := &DB{sql: sqlDB, path: cfg.URL, logger: cfg.Logger}

	if cfg.MigrateOnStartup {
		if err := db.migrate(); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to migrate store: %w", err)
		}
	}

	return db, nil
}

func (d *DB) migrate() error {
	if _, err := d.sql.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	err := d.sql.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to check schema version: %w", err)
	}

	migrations := []struct {
		to  int
		sql string
		msg string
	}{
		{2, migration001, "index issues.web_metadata"},
		{3, migration002, "index agent_tokens.expires_at"},
		{4, migration003, "index audit_events.severity"},
	}

	for _, m := range migrations {
		if version >= m.to {
			continue
		}
		d.logger.Printf("Running migration to v%d: %s", m.to, m.msg)
		if _, err := d.sql.Exec(m.sql); err != nil {
			return fmt.Errorf("failed to run migration to v%d: %w", m.to, err)
		}
		version = m.to
	}

	return nil
}

func (d *DB) Close() error {
	if d.sql != nil {
		return d.sql.Close()
	}
	return nil
}

// withTx executes fn within a transaction, matching internal/memory/
// db.go's withTx helper; repository writes and the batch API both use it.
func (d *DB) withTx(fn func(*sql.Tx) error) error {
	tx, err := d.sql.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
