// Package service implements the core orchestration behind every user
// command: validate, fetch, extract, then either answer directly or start a
// watch. It owns no storage itself; all shared state lives behind the
// registry, history and limiter contracts.
package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/example/course-watcher/internal/history"
	"github.com/example/course-watcher/internal/model"
	"github.com/example/course-watcher/internal/registry"
	"github.com/example/course-watcher/internal/upstream"
)

// ErrValidation marks user-correctable input problems (malformed course id,
// unsupported category). Never retried; the user gets told what to fix.
var ErrValidation = errors.New("invalid input")

// CancelAll is the sentinel target for HandleCancel meaning "every watch the
// owner holds".
const CancelAll = "ALL"

var courseIDPattern = regexp.MustCompile(`^\d{4}$`)

// CourseSource fetches category listings and extracts course rows.
type CourseSource interface {
	FetchCategory(ctx context.Context, category string) (string, error)
	Extract(content, courseID string) (model.CourseRecord, error)
}

// SessionInfo exposes the read-only session state for status reporting.
type SessionInfo interface {
	State() upstream.SessionState
	EstablishedAt() time.Time
}

// QueryResult is the outcome of HandleQuery. Exactly one of Found/Watching
// is set: Found carries the live record, Watching means the course was full
// and a watch now exists.
type QueryResult struct {
	Found      bool
	Record     model.CourseRecord
	Watching   bool
	WatchCount int // owner's active watches after the call, for display
}

// Status is a snapshot of engine health for the status command and pages.
type Status struct {
	SessionState  upstream.SessionState
	EstablishedAt time.Time
	WatchCount    int
}

// Monitor is the engine core shared by the chat layer, the HTTP surface and
// the scheduler wiring.
type Monitor struct {
	source   CourseSource
	session  SessionInfo
	registry registry.Registry
	history  history.Store
	now      func() time.Time
}

// NewMonitor wires the core together. All arguments are required.
func NewMonitor(source CourseSource, session SessionInfo, reg registry.Registry, hist history.Store) *Monitor {
	return &Monitor{
		source:   source,
		session:  session,
		registry: reg,
		history:  hist,
		now:      time.Now,
	}
}

// HandleQuery answers one course query. When the course appears in the
// listing it has open slots: record history, drop any stale watch and return
// the snapshot. When it is absent it is full: register a watch so the
// scheduler picks it up. Capacity and upstream errors pass through for the
// caller to translate.
func (m *Monitor) HandleQuery(ctx context.Context, owner, category, courseID string) (QueryResult, error) {
	courseID, err := ValidateCourseID(courseID)
	if err != nil {
		return QueryResult{}, err
	}
	if !upstream.ValidCategory(category) {
		return QueryResult{}, fmt.Errorf("%w: 不支援的課程類別：%s", ErrValidation, category)
	}

	content, err := m.source.FetchCategory(ctx, category)
	if err != nil {
		return QueryResult{}, err
	}

	rec, err := m.source.Extract(content, courseID)
	switch {
	case err == nil:
		rec.Category = category
		if err := m.history.Append(ctx, model.FromCourseRecord(owner, rec, m.now())); err != nil {
			return QueryResult{}, err
		}
		// A direct hit supersedes any watch left over from earlier queries.
		if _, err := m.registry.Remove(ctx, owner, courseID); err != nil {
			return QueryResult{}, err
		}
		return QueryResult{Found: true, Record: rec}, nil

	case errors.Is(err, upstream.ErrNotFound):
		now := m.now()
		entry := model.WatchEntry{
			Owner:         owner,
			CourseID:      courseID,
			Category:      category,
			DisplayName:   fmt.Sprintf("%s課程-%s", category, courseID),
			CreatedAt:     now,
			LastCheckedAt: now,
		}
		if err := m.registry.Add(ctx, entry); err != nil {
			return QueryResult{}, err
		}
		watches, err := m.registry.ListForOwner(ctx, owner)
		if err != nil {
			return QueryResult{}, err
		}
		return QueryResult{Watching: true, WatchCount: len(watches)}, nil

	default:
		return QueryResult{}, err
	}
}

// HandleList returns the owner's active watches, most recent first.
func (m *Monitor) HandleList(ctx context.Context, owner string) ([]model.WatchEntry, error) {
	return m.registry.ListForOwner(ctx, owner)
}

// HandleCancel removes one watch, or all of them when target is CancelAll,
// returning how many were removed.
func (m *Monitor) HandleCancel(ctx context.Context, owner, target string) (int, error) {
	if target == CancelAll {
		return m.registry.RemoveAll(ctx, owner)
	}
	courseID, err := ValidateCourseID(target)
	if err != nil {
		return 0, err
	}
	return m.registry.Remove(ctx, owner, courseID)
}

// Status reports session state and the total watch count.
func (m *Monitor) Status(ctx context.Context) (Status, error) {
	count, err := m.registry.Count(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		SessionState:  m.session.State(),
		EstablishedAt: m.session.EstablishedAt(),
		WatchCount:    count,
	}, nil
}

// ValidateCourseID checks the 4-digit selection-number format.
func ValidateCourseID(courseID string) (string, error) {
	if !courseIDPattern.MatchString(courseID) {
		return "", fmt.Errorf("%w: 課程代碼必須是4位數字", ErrValidation)
	}
	return courseID, nil
}
