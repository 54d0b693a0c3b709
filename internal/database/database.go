// Package database provides the sqlite user store for go-webindex
package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver
)

// Database wraps the sqlite users database
type Database struct {
	mainDB *sql.DB
	path   string
}

// OpenDatabase opens (and creates if needed) the database at path.
// Call Migrate before use.
func OpenDatabase(path string) (*Database, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	mainDB, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open main database: %w", err)
	}
	// one writer keeps sqlite lock contention inside the retry helpers
	mainDB.SetMaxOpenConns(1)

	if err := mainDB.Ping(); err != nil {
		mainDB.Close()
		return nil, fmt.Errorf("failed to connect to main database %s: %w", path, err)
	}

	log.Printf("[DB]: Opened users database %s", path)
	return &Database{mainDB: mainDB, path: path}, nil
}

// GetMainDB returns the main database connection for direct access
func (db *Database) GetMainDB() *sql.DB {
	return db.mainDB
}

// Path returns the database file path
func (db *Database) Path() string {
	return db.path
}

// Close closes the database
func (db *Database) Close() error {
	if db.mainDB == nil {
		return nil
	}
	if err := db.mainDB.Close(); err != nil {
		return fmt.Errorf("failed to close main database: %w", err)
	}
	db.mainDB = nil
	return nil
}
