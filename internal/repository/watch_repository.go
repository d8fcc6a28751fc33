// Package repository contains the MySQL-backed stores. Each repository
// wraps a *sql.DB and exposes the same contracts as the in-memory
// implementations, so the rest of the system never cares which one it got.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/course-watcher/internal/model"
	"github.com/example/course-watcher/internal/registry"
)

// WatchRepo persists watch entries in the watches table. The UNIQUE key on
// (owner, course_id) backs the registry's uniqueness invariant; concurrent
// Adds for the same key collapse into one row at the database.
type WatchRepo struct {
	db         *sql.DB
	maxPerUser int
}

// NewWatchRepo returns a WatchRepo bound to the provided database.
func NewWatchRepo(db *sql.DB, maxPerUser int) *WatchRepo {
	if maxPerUser <= 0 {
		maxPerUser = 10
	}
	return &WatchRepo{db: db, maxPerUser: maxPerUser}
}

// Add upserts a watch inside a transaction. The capacity check and the
// insert share the transaction so two concurrent Adds cannot both pass the
// limit; re-adding an existing course refreshes metadata without consuming
// capacity or resetting created_at.
func (r *WatchRepo) Add(ctx context.Context, e model.WatchEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add watch: %w", err)
	}
	defer tx.Rollback()

	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM watches WHERE owner = ? AND course_id <> ? FOR UPDATE`,
		e.Owner, e.CourseID,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("count watches: %w", err)
	}
	if count >= r.maxPerUser {
		return registry.ErrCapacityExceeded
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO watches (owner, course_id, category, display_name, created_at, last_checked)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE
		     category = VALUES(category),
		     display_name = VALUES(display_name),
		     last_checked = VALUES(last_checked)`,
		e.Owner, e.CourseID, e.Category, e.DisplayName,
		e.CreatedAt.UTC(), e.LastCheckedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert watch: %w", err)
	}
	return tx.Commit()
}

func (r *WatchRepo) Remove(ctx context.Context, owner, courseID string) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM watches WHERE owner = ? AND course_id = ?`, owner, courseID)
	if err != nil {
		return 0, fmt.Errorf("delete watch: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (r *WatchRepo) RemoveAll(ctx context.Context, owner string) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM watches WHERE owner = ?`, owner)
	if err != nil {
		return 0, fmt.Errorf("delete watches: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (r *WatchRepo) ListActive(ctx context.Context) ([]model.WatchEntry, error) {
	return r.list(ctx,
		`SELECT owner, course_id, category, display_name, created_at, last_checked
		 FROM watches ORDER BY owner, course_id`)
}

func (r *WatchRepo) ListForOwner(ctx context.Context, owner string) ([]model.WatchEntry, error) {
	return r.list(ctx,
		`SELECT owner, course_id, category, display_name, created_at, last_checked
		 FROM watches WHERE owner = ? ORDER BY created_at DESC`, owner)
}

func (r *WatchRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM watches`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count watches: %w", err)
	}
	return n, nil
}

func (r *WatchRepo) Touch(ctx context.Context, owner, courseID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE watches SET last_checked = ? WHERE owner = ? AND course_id = ?`,
		at.UTC(), owner, courseID)
	if err != nil {
		return fmt.Errorf("touch watch: %w", err)
	}
	return nil
}

func (r *WatchRepo) list(ctx context.Context, query string, args ...any) ([]model.WatchEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query watches: %w", err)
	}
	defer rows.Close()
	var out []model.WatchEntry
	for rows.Next() {
		var e model.WatchEntry
		if err := rows.Scan(&e.Owner, &e.CourseID, &e.Category, &e.DisplayName,
			&e.CreatedAt, &e.LastCheckedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
