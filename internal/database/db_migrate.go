package database

import (
	"database/sql"
	"fmt"
	"io/fs"
	"log"
)

// Migrate applies all pending embedded migrations in version order
func (db *Database) Migrate() error {
	return db.migrateFS(EmbeddedMigrationsFS)
}

func (db *Database) migrateFS(fsys fs.FS) error {
	if err := ensureMigrationsTable(db.mainDB); err != nil {
		return err
	}

	migrations, err := getEmbeddedMigrationFiles(fsys)
	if err != nil {
		return err
	}

	applied, err := getAppliedMigrations(db.mainDB)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.FileName] {
			continue
		}
		content, err := fs.ReadFile(fsys, m.FilePath)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", m.FileName, err)
		}
		if err := applyMigration(db.mainDB, m, string(content)); err != nil {
			return err
		}
		log.Printf("[DB]: Applied migration %s", m.FileName)
	}
	return nil
}

// ensureMigrationsTable creates the schema_migrations table if it doesn't exist
func ensureMigrationsTable(db *sql.DB) error {
	_, err := retryableExec(db, `CREATE TABLE IF NOT EXISTS schema_migrations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT NOT NULL UNIQUE,
		version INTEGER NOT NULL,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

// getAppliedMigrations returns a map of applied migration filenames
func getAppliedMigrations(db *sql.DB) (map[string]bool, error) {
	applied := make(map[string]bool)

	rows, err := db.Query(`SELECT filename FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fname string
		if err := rows.Scan(&fname); err != nil {
			return nil, fmt.Errorf("failed to scan migration filename: %w", err)
		}
		applied[fname] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating migration rows: %w", err)
	}
	return applied, nil
}

// applyMigration runs one migration and records it in the same transaction
func applyMigration(db *sql.DB, m *MigrationFile, content string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration %s: %w", m.FileName, err)
	}
	if _, err := tx.Exec(content); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to apply migration %s: %w", m.FileName, err)
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (filename, version) VALUES (?, ?)`, m.FileName, m.Version); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record migration %s: %w", m.FileName, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", m.FileName, err)
	}
	return nil
}
