// Package registry defines the watch table: the shared, capacity-bounded
// set of active watches mutated concurrently by user requests and the
// background scheduler. The registry is the single writer for watch
// entries; every other component goes through its operations.
package registry

import (
	"context"
	"errors"
	"time"

	"github.com/example/course-watcher/internal/model"
)

// ErrCapacityExceeded is returned by Add when the owner already holds the
// maximum number of active watches. The registry is left unchanged. Handlers
// should translate this into a user-facing message, never a crash.
var ErrCapacityExceeded = errors.New("watch limit reached")

// Registry stores active watch entries keyed by (owner, courseID). All
// operations are linearizable with respect to each other: no caller may
// observe two entries for the same key, and concurrent Adds for one key
// collapse into a single entry via upsert semantics.
type Registry interface {
	// Add upserts a watch. Re-adding an existing (owner, courseID) refreshes
	// its metadata and is not an error and does not consume capacity.
	Add(ctx context.Context, entry model.WatchEntry) error

	// Remove deletes one watch if present and returns how many were removed
	// (0 or 1).
	Remove(ctx context.Context, owner, courseID string) (int, error)

	// RemoveAll deletes every watch the owner holds and returns the count.
	RemoveAll(ctx context.Context, owner string) (int, error)

	// ListActive returns a snapshot of every active watch. Mutation after
	// the call does not affect the returned slice.
	ListActive(ctx context.Context) ([]model.WatchEntry, error)

	// ListForOwner returns the owner's watches, most recent first.
	ListForOwner(ctx context.Context, owner string) ([]model.WatchEntry, error)

	// Count returns the total number of active watches.
	Count(ctx context.Context) (int, error)

	// Touch records that the scheduler checked a watch.
	Touch(ctx context.Context, owner, courseID string, at time.Time) error
}
