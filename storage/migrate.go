package storage

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the latest schema version supported by the migrator.
const SchemaVersion = 1

// Migrate creates the run tables and records the schema version. It is safe
// to call on every open.
func Migrate(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("migrate: db is nil")
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY);`); err != nil {
		return fmt.Errorf("migrate: create schema_migrations: %w", err)
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations;`).Scan(&current); err != nil {
		return fmt.Errorf("migrate: read current version: %w", err)
	}
	if current >= SchemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migrate: begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	steps := []struct {
		name string
		stmt string
	}{
		{"create runs table", `
			CREATE TABLE IF NOT EXISTS runs (
				id TEXT PRIMARY KEY,
				status TEXT NOT NULL,
				topic TEXT NOT NULL,
				iterations INTEGER NOT NULL,
				overall_score INTEGER NOT NULL,
				started_at TEXT NOT NULL,
				finished_at TEXT NOT NULL,
				record TEXT NOT NULL
			);`},
		{"create finals table", `
			CREATE TABLE IF NOT EXISTS finals (
				run_id TEXT PRIMARY KEY,
				status TEXT NOT NULL,
				result TEXT NOT NULL,
				saved_at TEXT NOT NULL
			);`},
		{"create idx_runs_started_at", `CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);`},
	}
	for _, step := range steps {
		if _, err := tx.Exec(step.stmt); err != nil {
			return fmt.Errorf("migrate: %s: %w", step.name, err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?);`, SchemaVersion); err != nil {
		return fmt.Errorf("migrate: record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate: commit transaction: %w", err)
	}
	return nil
}
