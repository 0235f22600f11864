package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"notesync/internal/db"
	"notesync/internal/syncvm"
)

// LocalRepo is the on-device task cache.
type LocalRepo struct {
	conn *sql.DB
}

func NewLocalRepo(conn *sql.DB) *LocalRepo {
	return &LocalRepo{conn: conn}
}

func (r *LocalRepo) Replace(ctx context.Context, ownerID string, batch []Task, policy syncvm.Policy) ([]Task, error) {
	err := db.InTx(ctx, r.conn, func(tx *sql.Tx) error {
		if policy == syncvm.PolicyWipe {
			if _, err := tx.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
				return fmt.Errorf("wipe tasks: %w", err)
			}
		} else {
			keep := make(map[string]bool, len(batch))
			for _, t := range batch {
				keep[t.RemoteID] = true
			}
			cached, err := listTx(ctx, tx, ownerID)
			if err != nil {
				return err
			}
			for _, t := range cached {
				if keep[t.RemoteID] {
					continue
				}
				if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE local_id = ?`, t.LocalID); err != nil {
					return fmt.Errorf("delete cached task %s: %w", t.RemoteID, err)
				}
			}
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO tasks (remote_id, owner_id, title, reminder_date, is_completed, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(owner_id, remote_id) DO UPDATE SET
				title = excluded.title,
				reminder_date = excluded.reminder_date,
				is_completed = excluded.is_completed,
				created_at = excluded.created_at`)
		if err != nil {
			return fmt.Errorf("prepare upsert: %w", err)
		}
		defer stmt.Close()

		for _, t := range batch {
			var reminder sql.NullInt64
			if t.ReminderDate != nil {
				reminder = sql.NullInt64{Int64: t.ReminderDate.UnixMilli(), Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, t.RemoteID, ownerID, t.Title, reminder, t.IsCompleted, t.CreatedAt.UnixMilli()); err != nil {
				return fmt.Errorf("upsert task %s: %w", t.RemoteID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.List(ctx, ownerID)
}

// List returns the owner's cached tasks, newest first.
func (r *LocalRepo) List(ctx context.Context, ownerID string) ([]Task, error) {
	return listTx(ctx, r.conn, ownerID)
}

func (r *LocalRepo) Purge(ctx context.Context, ownerID string) error {
	if _, err := r.conn.ExecContext(ctx, `DELETE FROM tasks WHERE owner_id = ?`, ownerID); err != nil {
		return fmt.Errorf("purge cached tasks: %w", err)
	}
	return nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listTx(ctx context.Context, q querier, ownerID string) ([]Task, error) {
	rows, err := q.QueryContext(ctx, `SELECT local_id, remote_id, owner_id, title, reminder_date, is_completed, created_at
		FROM tasks WHERE owner_id = ? ORDER BY created_at DESC, local_id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list cached tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var (
			t         Task
			reminder  sql.NullInt64
			createdAt int64
		)
		if err := rows.Scan(&t.LocalID, &t.RemoteID, &t.OwnerID, &t.Title, &reminder, &t.IsCompleted, &createdAt); err != nil {
			return nil, err
		}
		if reminder.Valid {
			at := time.UnixMilli(reminder.Int64).UTC()
			t.ReminderDate = &at
		}
		t.CreatedAt = time.UnixMilli(createdAt).UTC()
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
