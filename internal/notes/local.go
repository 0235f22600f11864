package notes

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"notesync/internal/db"
	"notesync/internal/syncvm"
)

// LocalRepo is the on-device note cache.
type LocalRepo struct {
	conn *sql.DB
}

func NewLocalRepo(conn *sql.DB) *LocalRepo {
	return &LocalRepo{conn: conn}
}

// Replace stores batch as the owner's cached notes.
func (r *LocalRepo) Replace(ctx context.Context, ownerID string, batch []Note, policy syncvm.Policy) ([]Note, error) {
	err := db.InTx(ctx, r.conn, func(tx *sql.Tx) error {
		if policy == syncvm.PolicyWipe {
			if _, err := tx.ExecContext(ctx, `DELETE FROM notes`); err != nil {
				return fmt.Errorf("wipe notes: %w", err)
			}
		} else if err := deleteMissing(ctx, tx, ownerID, batch); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO notes (remote_id, owner_id, title, details, category, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(owner_id, remote_id) DO UPDATE SET
				title = excluded.title,
				details = excluded.details,
				category = excluded.category,
				created_at = excluded.created_at`)
		if err != nil {
			return fmt.Errorf("prepare upsert: %w", err)
		}
		defer stmt.Close()

		for _, n := range batch {
			if _, err := stmt.ExecContext(ctx, n.RemoteID, ownerID, n.Title, n.Details, string(n.Category), n.CreatedAt.UnixMilli()); err != nil {
				return fmt.Errorf("upsert note %s: %w", n.RemoteID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.List(ctx, ownerID)
}

func deleteMissing(ctx context.Context, tx *sql.Tx, ownerID string, batch []Note) error {
	keep := make(map[string]bool, len(batch))
	for _, n := range batch {
		keep[n.RemoteID] = true
	}

	rows, err := tx.QueryContext(ctx, `SELECT remote_id FROM notes WHERE owner_id = ?`, ownerID)
	if err != nil {
		return fmt.Errorf("list cached notes: %w", err)
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		if !keep[id] {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE owner_id = ? AND remote_id = ?`, ownerID, id); err != nil {
			return fmt.Errorf("delete cached note %s: %w", id, err)
		}
	}
	return nil
}

// List returns the owner's cached notes, newest first.
func (r *LocalRepo) List(ctx context.Context, ownerID string) ([]Note, error) {
	rows, err := r.conn.QueryContext(ctx, `SELECT local_id, remote_id, owner_id, title, details, category, created_at
		FROM notes WHERE owner_id = ? ORDER BY created_at DESC, local_id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list cached notes: %w", err)
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		var (
			n         Note
			category  string
			createdAt int64
		)
		if err := rows.Scan(&n.LocalID, &n.RemoteID, &n.OwnerID, &n.Title, &n.Details, &category, &createdAt); err != nil {
			return nil, err
		}
		n.Category = Category(category)
		n.CreatedAt = time.UnixMilli(createdAt).UTC()
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// Purge drops every cached note of the owner.
func (r *LocalRepo) Purge(ctx context.Context, ownerID string) error {
	if _, err := r.conn.ExecContext(ctx, `DELETE FROM notes WHERE owner_id = ?`, ownerID); err != nil {
		return fmt.Errorf("purge cached notes: %w", err)
	}
	return nil
}
