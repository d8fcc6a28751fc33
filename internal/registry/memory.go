package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/course-watcher/internal/model"
)

// Memory is the in-process Registry used when no database is configured and
// by the test suite. A single mutex covers the map; operations never hold
// any other lock while holding it.
type Memory struct {
	maxPerUser int

	mu      sync.Mutex
	entries map[watchKey]model.WatchEntry
}

type watchKey struct {
	owner    string
	courseID string
}

// NewMemory returns an empty in-memory registry enforcing maxPerUser.
func NewMemory(maxPerUser int) *Memory {
	if maxPerUser <= 0 {
		maxPerUser = 10
	}
	return &Memory{
		maxPerUser: maxPerUser,
		entries:    make(map[watchKey]model.WatchEntry),
	}
}

func (m *Memory) Add(ctx context.Context, entry model.WatchEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := watchKey{entry.Owner, entry.CourseID}
	if existing, ok := m.entries[key]; ok {
		// Refresh metadata, keep the original creation time.
		existing.Category = entry.Category
		existing.DisplayName = entry.DisplayName
		existing.LastCheckedAt = entry.LastCheckedAt
		m.entries[key] = existing
		return nil
	}

	count := 0
	for k := range m.entries {
		if k.owner == entry.Owner {
			count++
		}
	}
	if count >= m.maxPerUser {
		return ErrCapacityExceeded
	}
	m.entries[key] = entry
	return nil
}

func (m *Memory) Remove(ctx context.Context, owner, courseID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := watchKey{owner, courseID}
	if _, ok := m.entries[key]; !ok {
		return 0, nil
	}
	delete(m.entries, key)
	return 1, nil
}

func (m *Memory) RemoveAll(ctx context.Context, owner string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for k := range m.entries {
		if k.owner == owner {
			delete(m.entries, k)
			removed++
		}
	}
	return removed, nil
}

func (m *Memory) ListActive(ctx context.Context) ([]model.WatchEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.WatchEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	// Stable order keeps scheduler cycles deterministic.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Owner != out[j].Owner {
			return out[i].Owner < out[j].Owner
		}
		return out[i].CourseID < out[j].CourseID
	})
	return out, nil
}

func (m *Memory) ListForOwner(ctx context.Context, owner string) ([]model.WatchEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.WatchEntry
	for k, e := range m.entries {
		if k.owner == owner {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), nil
}

func (m *Memory) Touch(ctx context.Context, owner, courseID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := watchKey{owner, courseID}
	if e, ok := m.entries[key]; ok {
		e.LastCheckedAt = at
		m.entries[key] = e
	}
	return nil
}
