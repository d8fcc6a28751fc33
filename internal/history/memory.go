package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/course-watcher/internal/model"
)

// Memory is the in-process Store used when no database is configured.
type Memory struct {
	now func() time.Time

	mu      sync.Mutex
	records []model.QueryRecord
}

// NewMemory returns an empty in-memory history store.
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

func (m *Memory) Append(ctx context.Context, rec model.QueryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *Memory) PruneOlderThan(ctx context.Context, age time.Duration) (int, error) {
	cutoff := m.now().Add(-age)
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.records[:0]
	pruned := 0
	for _, r := range m.records {
		if r.QueriedAt.Before(cutoff) {
			pruned++
			continue
		}
		kept = append(kept, r)
	}
	m.records = kept
	return pruned, nil
}

func (m *Memory) ListRecent(ctx context.Context, owner string, n int) ([]model.QueryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.QueryRecord
	for _, r := range m.records {
		if owner == "" || r.Owner == owner {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QueriedAt.After(out[j].QueriedAt) })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}
