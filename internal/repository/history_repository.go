package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/course-watcher/internal/model"
)

// HistoryRepo persists resolved queries in the query_history table. The
// table is append-only; rows are only ever deleted by age-based pruning.
type HistoryRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewHistoryRepo returns a HistoryRepo bound to the provided database.
func NewHistoryRepo(db *sql.DB) *HistoryRepo {
	return &HistoryRepo{db: db, now: time.Now}
}

func (r *HistoryRepo) Append(ctx context.Context, rec model.QueryRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO query_history
		     (owner, course_id, category, course_name, capacity, occupied, available, queried_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Owner, rec.CourseID, rec.Category, rec.Name,
		rec.Capacity, rec.Occupied, rec.Available, rec.QueriedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func (r *HistoryRepo) PruneOlderThan(ctx context.Context, age time.Duration) (int, error) {
	cutoff := r.now().Add(-age).UTC()
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM query_history WHERE queried_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (r *HistoryRepo) ListRecent(ctx context.Context, owner string, n int) ([]model.QueryRecord, error) {
	if n <= 0 {
		n = 50
	}
	query := `SELECT owner, course_id, category, course_name, capacity, occupied, available, queried_at
	          FROM query_history`
	args := []any{}
	if owner != "" {
		query += ` WHERE owner = ?`
		args = append(args, owner)
	}
	query += ` ORDER BY queried_at DESC LIMIT ?`
	args = append(args, n)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()
	var out []model.QueryRecord
	for rows.Next() {
		var rec model.QueryRecord
		if err := rows.Scan(&rec.Owner, &rec.CourseID, &rec.Category, &rec.Name,
			&rec.Capacity, &rec.Occupied, &rec.Available, &rec.QueriedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
