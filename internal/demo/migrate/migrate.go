// Package migrate applies embedded SQL migration files to a SQLite database.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"
)

const (
	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"
)

// Apply runs every .sql file at the root of migrationFS in lexical order and
// records each applied file in schema_migrations so reruns are no-ops. Each
// file runs inside its own transaction.
func Apply(sqlDB *sql.DB, migrationFS fs.FS) error {
	if sqlDB == nil {
		return errors.New("sql db is required")
	}
	if migrationFS == nil {
		return errors.New("migration fs is required")
	}
	if err := ensureLedger(sqlDB); err != nil {
		return err
	}
	files, err := migrationFiles(migrationFS)
	if err != nil {
		return err
	}
	for _, name := range files {
		if err := applyFile(sqlDB, migrationFS, name); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

func ensureLedger(sqlDB *sql.DB) error {
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		name TEXT PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}
	return nil
}

func migrationFiles(migrationFS fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return nil, fmt.Errorf("read migration dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	return files, nil
}

func applyFile(sqlDB *sql.DB, migrationFS fs.FS, name string) error {
	applied, err := isApplied(sqlDB, name)
	if err != nil {
		return err
	}
	if applied {
		return nil
	}

	content, err := fs.ReadFile(migrationFS, name)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	upSQL := strings.TrimSpace(UpSection(string(content)))
	if upSQL == "" {
		return nil
	}

	tx, err := sqlDB.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.Exec(upSQL); err != nil && !isIdempotentDDLError(err) {
		_ = tx.Rollback()
		return fmt.Errorf("exec: %w", err)
	}
	if _, err := tx.Exec(
		"INSERT OR IGNORE INTO schema_migrations (name, applied_at) VALUES (?, ?)",
		name, time.Now().UTC().UnixMilli(),
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record migration: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func isApplied(sqlDB *sql.DB, name string) (bool, error) {
	var one int
	err := sqlDB.QueryRow("SELECT 1 FROM schema_migrations WHERE name = ?", name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check schema_migrations: %w", err)
	}
	return true, nil
}

// UpSection returns the statements between the up and down markers. Files
// without an up marker run in full.
func UpSection(content string) string {
	_, after, found := strings.Cut(content, upMarker)
	if !found {
		return content
	}
	up, _, _ := strings.Cut(after, downMarker)
	return up
}

// isIdempotentDDLError reports whether err comes from re-running DDL that
// already took effect, such as creating a table that exists.
func isIdempotentDDLError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate column name")
}
