package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/glebarez/go-sqlite"
)

// OpenLocal opens the on-device cache database at path and applies the schema.
func OpenLocal(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open local database: %w", err)
	}
	// Refreshes replace whole tables inside a transaction; one connection
	// keeps them from tripping over SQLITE_BUSY.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping local database: %w", err)
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate local database: %w", err)
	}
	return conn, nil
}

func migrate(conn *sql.DB) error {
	queries := []string{
		`PRAGMA journal_mode = WAL`,
		`CREATE TABLE IF NOT EXISTS notes (
			local_id INTEGER PRIMARY KEY AUTOINCREMENT,
			remote_id TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			title TEXT NOT NULL,
			details TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT 'Work',
			created_at INTEGER NOT NULL DEFAULT 0,
			UNIQUE(owner_id, remote_id)
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			local_id INTEGER PRIMARY KEY AUTOINCREMENT,
			remote_id TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			title TEXT NOT NULL,
			reminder_date INTEGER,
			is_completed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at INTEGER NOT NULL DEFAULT 0,
			UNIQUE(owner_id, remote_id)
		)`,
	}

	for _, q := range queries {
		if _, err := conn.Exec(q); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// InTx runs fn inside a transaction, committing when it returns nil.
func InTx(ctx context.Context, conn *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
