package database

import (
	"embed"
	"fmt"
	"io/fs"
	"log"
	"path"
	"sort"
	"strconv"
	"strings"
)

//go:embed migrations/*.sql
var EmbeddedMigrationsFS embed.FS

// MigrationFile represents a migration file with its metadata
type MigrationFile struct {
	FileName    string
	Version     int
	Description string
	FilePath    string
}

// getEmbeddedMigrationFiles reads and parses all migration files from the embedded filesystem
func getEmbeddedMigrationFiles(fsys fs.FS) ([]*MigrationFile, error) {
	files, err := fs.ReadDir(fsys, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded migrations directory: %w", err)
	}

	var migrations []*MigrationFile
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".sql") {
			continue
		}
		migration, err := parseMigrationFileName(f.Name())
		if err != nil {
			log.Printf("[DB]: Warning: skipping invalid embedded migration file %s: %v", f.Name(), err)
			continue
		}
		migrations = append(migrations, migration)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// parseMigrationFileName parses NNNN_main_description.sql
func parseMigrationFileName(fileName string) (*MigrationFile, error) {
	if !strings.HasSuffix(fileName, ".sql") {
		return nil, fmt.Errorf("migration file must have .sql extension: %s", fileName)
	}
	base := strings.TrimSuffix(fileName, ".sql")
	parts := strings.SplitN(base, "_", 3)
	if len(parts) < 3 {
		return nil, fmt.Errorf("invalid migration filename format: %s (expected format: NNNN_main_description.sql)", fileName)
	}

	version, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid version number in filename %s: %w", fileName, err)
	}
	if parts[1] != "main" {
		return nil, fmt.Errorf("unknown migration type in filename %s: %s", fileName, parts[1])
	}

	return &MigrationFile{
		FileName:    fileName,
		Version:     version,
		Description: parts[2],
		FilePath:    path.Join("migrations", fileName),
	}, nil
}
