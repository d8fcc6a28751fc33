package model

import "time"

// WatchEntry is a standing request by one user to be notified when a course
// gains an open slot. At most one active entry exists per (Owner, CourseID);
// the registry enforces that invariant. Entries are created when a query
// finds the course full, touched by the scheduler on every check, and
// destroyed on resolution or explicit cancel.
type WatchEntry struct {
	Owner         string    // chat user identifier that created the watch
	CourseID      string    // 4-digit selection number being watched
	Category      string    // listing category to fetch when checking
	DisplayName   string    // human-readable label shown in the watch list
	CreatedAt     time.Time
	LastCheckedAt time.Time
}
