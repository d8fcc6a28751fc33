package limiter

import (
	"context"
	"sync"
	"time"
)

// Window is the in-process sliding-window limiter. It keeps a per-owner
// slice of request timestamps and evicts expired ones lazily.
type Window struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	hits map[string][]time.Time
}

// NewWindow returns a limiter allowing limit requests per window per owner.
func NewWindow(limit int, window time.Duration) *Window {
	if limit <= 0 {
		limit = 20
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Window{
		limit:  limit,
		window: window,
		now:    time.Now,
		hits:   make(map[string][]time.Time),
	}
}

func (w *Window) Allow(ctx context.Context, owner string) bool {
	now := w.now()
	cutoff := now.Add(-w.window)

	w.mu.Lock()
	defer w.mu.Unlock()

	kept := w.hits[owner][:0]
	for _, t := range w.hits[owner] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= w.limit {
		w.hits[owner] = kept
		return false
	}
	w.hits[owner] = append(kept, now)
	return true
}
