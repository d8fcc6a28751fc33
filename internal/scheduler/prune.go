package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/example/course-watcher/internal/history"
)

// PruneLoop deletes history records older than retention on its own
// long-period timer, independent of the polling cycle.
func PruneLoop(ctx context.Context, store history.Store, retention, every time.Duration) {
	if every <= 0 {
		every = time.Hour
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PruneOlderThan(ctx, retention)
			if err != nil {
				log.Printf("history-prune: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("history-prune: removed %d record(s) older than %s", n, retention)
			}
		}
	}
}
