// Package history keeps the append-only log of resolved queries. Records
// are facts: they are written once, read for display, and pruned by age.
package history

import (
	"context"
	"time"

	"github.com/example/course-watcher/internal/model"
)

// Store is the history log. Implementations must be safe for concurrent use
// by request handlers, the scheduler and the prune timer.
type Store interface {
	// Append records one resolved query.
	Append(ctx context.Context, rec model.QueryRecord) error

	// PruneOlderThan deletes records older than age and returns the count.
	PruneOlderThan(ctx context.Context, age time.Duration) (int, error)

	// ListRecent returns up to n of the owner's most recent records, newest
	// first. An empty owner returns records across all owners.
	ListRecent(ctx context.Context, owner string, n int) ([]model.QueryRecord, error)
}
