// Package scheduler runs the background polling loop. One goroutine wakes
// on a fixed interval, snapshots the active watch set and checks every entry
// exactly once per cycle. Cycles run inline in that goroutine, so they can
// never overlap; a slow upstream stretches a cycle but never stacks two.
package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/example/course-watcher/internal/history"
	"github.com/example/course-watcher/internal/model"
	"github.com/example/course-watcher/internal/notifier"
	"github.com/example/course-watcher/internal/queue"
	"github.com/example/course-watcher/internal/registry"
	"github.com/example/course-watcher/internal/upstream"
)

// Session is the slice of the session manager the scheduler needs: a way to
// verify the login before a cycle touches the upstream.
type Session interface {
	EnsureActive(ctx context.Context) error
}

// CourseSource fetches category listings and extracts course rows, as
// implemented by upstream.Fetcher.
type CourseSource interface {
	FetchCategory(ctx context.Context, category string) (string, error)
	Extract(content, courseID string) (model.CourseRecord, error)
}

// EventPublisher publishes resolved-watch events; queue.Publisher satisfies
// it and a nil publisher disables publishing.
type EventPublisher interface {
	Publish(ctx context.Context, event queue.WatchResolvedEvent) error
}

// Scheduler drives the periodic checks over the watch registry.
type Scheduler struct {
	session  Session
	source   CourseSource
	registry registry.Registry
	history  history.Store
	notify   notifier.Notifier
	events   EventPublisher

	interval time.Duration // cycle period
	pause    time.Duration // politeness delay between entries within a cycle
	now      func() time.Time
}

// Options configures New. Interval defaults to 5s, Pause to 500ms. Events
// may be nil.
type Options struct {
	Session  Session
	Source   CourseSource
	Registry registry.Registry
	History  history.Store
	Notifier notifier.Notifier
	Events   EventPublisher
	Interval time.Duration
	Pause    time.Duration
}

// New builds a Scheduler. Session, Source, Registry, History and Notifier
// are required.
func New(opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.Pause <= 0 {
		opts.Pause = 500 * time.Millisecond
	}
	return &Scheduler{
		session:  opts.Session,
		source:   opts.Source,
		registry: opts.Registry,
		history:  opts.History,
		notify:   opts.Notifier,
		events:   opts.Events,
		interval: opts.Interval,
		pause:    opts.Pause,
		now:      time.Now,
	}
}

// Run loops until the context is cancelled. The cadence is purely
// time-driven: nothing wakes the loop early, and a cycle's own errors only
// get logged — the loop itself never dies because one watch misbehaved.
func (s *Scheduler) Run(ctx context.Context) {
	log.Printf("scheduler: polling every %s", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("scheduler: stopped: %v", ctx.Err())
			return
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// RunCycle performs one pass over the active watch set. Exported so tests
// can drive cycles deterministically.
//
// Per entry, a resolved watch is handled in a fixed order: notify first,
// then remove, then append history. If the notification fails the entry
// stays registered and is retried next cycle; once the channel accepts the
// push, the watch is removed regardless of downstream delivery confirmation.
func (s *Scheduler) RunCycle(ctx context.Context) {
	if err := s.session.EnsureActive(ctx); err != nil {
		// Do not spin on a broken login; skip the interval and let the next
		// cycle retry naturally.
		log.Printf("scheduler: session not active, skipping cycle: %v", err)
		return
	}

	entries, err := s.registry.ListActive(ctx)
	if err != nil {
		log.Printf("scheduler: list watches: %v", err)
		return
	}
	if len(entries) == 0 {
		return
	}
	log.Printf("scheduler: checking %d watched course(s)", len(entries))

	// One fetch per distinct category per cycle; every entry in that
	// category is checked against the same snapshot. Entries are processed
	// sequentially with a pause between them to stay polite to the upstream.
	listings := make(map[string]string)
	for i, entry := range entries {
		if i > 0 {
			select {
			case <-time.After(s.pause):
			case <-ctx.Done():
				return
			}
		}
		s.checkEntry(ctx, entry, listings)
	}
}

func (s *Scheduler) checkEntry(ctx context.Context, entry model.WatchEntry, listings map[string]string) {
	content, ok := listings[entry.Category]
	if !ok {
		var err error
		content, err = s.source.FetchCategory(ctx, entry.Category)
		if err != nil {
			// Failure isolation is per entry: log and move on, the watch is
			// simply retried next cycle.
			log.Printf("scheduler: fetch %s for %s/%s: %v", entry.Category, entry.Owner, entry.CourseID, err)
			return
		}
		listings[entry.Category] = content
	}

	if err := s.registry.Touch(ctx, entry.Owner, entry.CourseID, s.now()); err != nil {
		log.Printf("scheduler: touch %s/%s: %v", entry.Owner, entry.CourseID, err)
	}

	rec, err := s.source.Extract(content, entry.CourseID)
	if errors.Is(err, upstream.ErrNotFound) {
		return // still full
	}
	if err != nil {
		log.Printf("scheduler: extract %s: %v", entry.CourseID, err)
		return
	}

	// The listing only carries courses with open slots, so presence alone
	// resolves the watch.
	rec.Category = entry.Category
	s.resolve(ctx, entry, rec)
}

func (s *Scheduler) resolve(ctx context.Context, entry model.WatchEntry, rec model.CourseRecord) {
	log.Printf("scheduler: %s has open slots (%d available), notifying %s", rec.ID, rec.Available, entry.Owner)

	if err := s.notify.Push(ctx, entry.Owner, notifier.ResolvedMessage(rec)); err != nil {
		// Keep the watch; a later cycle retries the notification.
		log.Printf("scheduler: notify %s about %s: %v", entry.Owner, rec.ID, err)
		return
	}
	if _, err := s.registry.Remove(ctx, entry.Owner, entry.CourseID); err != nil {
		log.Printf("scheduler: remove %s/%s: %v", entry.Owner, entry.CourseID, err)
	}
	if err := s.history.Append(ctx, model.FromCourseRecord(entry.Owner, rec, s.now())); err != nil {
		log.Printf("scheduler: record history for %s: %v", rec.ID, err)
	}
	if s.events != nil {
		ev := queue.WatchResolvedEvent{
			Owner:      entry.Owner,
			CourseID:   rec.ID,
			Category:   rec.Category,
			CourseName: rec.Name,
			Capacity:   rec.Capacity,
			Occupied:   rec.Occupied,
			Available:  rec.Available,
			ClassInfo:  rec.ClassInfo,
			ResolvedAt: s.now().UTC().Format(time.RFC3339),
		}
		if err := s.events.Publish(ctx, ev); err != nil {
			log.Printf("scheduler: publish resolved event for %s: %v", rec.ID, err)
		}
	}
}
