package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/course-watcher/internal/history"
	"github.com/example/course-watcher/internal/model"
	"github.com/example/course-watcher/internal/registry"
	"github.com/example/course-watcher/internal/upstream"
)

type fakeSource struct {
	open     map[string]model.CourseRecord
	fetchErr error
}

func (f *fakeSource) FetchCategory(ctx context.Context, category string) (string, error) {
	if f.fetchErr != nil {
		return "", f.fetchErr
	}
	return "listing-" + category, nil
}

func (f *fakeSource) Extract(content, courseID string) (model.CourseRecord, error) {
	rec, ok := f.open[courseID]
	if !ok {
		return model.CourseRecord{}, fmt.Errorf("row %s: %w", courseID, upstream.ErrNotFound)
	}
	return rec, nil
}

type fakeSessionInfo struct {
	state upstream.SessionState
	at    time.Time
}

func (f *fakeSessionInfo) State() upstream.SessionState { return f.state }
func (f *fakeSessionInfo) EstablishedAt() time.Time     { return f.at }

func newTestMonitor(maxPerUser int) (*Monitor, *fakeSource, registry.Registry, history.Store) {
	src := &fakeSource{open: map[string]model.CourseRecord{}}
	reg := registry.NewMemory(maxPerUser)
	hist := history.NewMemory()
	m := NewMonitor(src, &fakeSessionInfo{state: upstream.StateActive, at: time.Now()}, reg, hist)
	return m, src, reg, hist
}

func TestHandleQueryFoundRecordsHistory(t *testing.T) {
	ctx := context.Background()
	m, src, reg, hist := newTestMonitor(10)
	src.open["7002"] = model.CourseRecord{
		ID: "7002", Code: "PE102", Name: "羽球初級",
		Capacity: 60, Occupied: 55, Available: 5,
	}

	res, err := m.HandleQuery(ctx, "U1", "體育", "7002")
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.False(t, res.Watching)
	assert.Equal(t, "羽球初級", res.Record.Name)
	assert.Equal(t, "體育", res.Record.Category)

	recent, err := hist.ListRecent(ctx, "U1", 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "7002", recent[0].CourseID)

	watches, err := reg.ListForOwner(ctx, "U1")
	require.NoError(t, err)
	assert.Empty(t, watches)
}

func TestHandleQueryFullCourseStartsWatch(t *testing.T) {
	ctx := context.Background()
	m, _, reg, hist := newTestMonitor(10)

	res, err := m.HandleQuery(ctx, "U1", "體育", "7002")
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.True(t, res.Watching)
	assert.Equal(t, 1, res.WatchCount)

	watches, err := reg.ListForOwner(ctx, "U1")
	require.NoError(t, err)
	require.Len(t, watches, 1)
	assert.Equal(t, "7002", watches[0].CourseID)
	assert.Equal(t, "體育課程-7002", watches[0].DisplayName)

	recent, err := hist.ListRecent(ctx, "U1", 10)
	require.NoError(t, err)
	assert.Empty(t, recent, "a full course is not a resolved query")
}

func TestHandleQueryFoundDropsStaleWatch(t *testing.T) {
	ctx := context.Background()
	m, src, reg, _ := newTestMonitor(10)

	_, err := m.HandleQuery(ctx, "U1", "體育", "7002")
	require.NoError(t, err)

	// The course opens up before the scheduler notices; a direct query must
	// clear the now-stale watch.
	src.open["7002"] = model.CourseRecord{ID: "7002", Name: "羽球初級", Available: 5}
	res, err := m.HandleQuery(ctx, "U1", "體育", "7002")
	require.NoError(t, err)
	assert.True(t, res.Found)

	watches, err := reg.ListForOwner(ctx, "U1")
	require.NoError(t, err)
	assert.Empty(t, watches)
}

func TestHandleQueryValidation(t *testing.T) {
	ctx := context.Background()
	m, _, _, _ := newTestMonitor(10)

	for _, id := range []string{"", "123", "12345", "70a2", "體育"} {
		_, err := m.HandleQuery(ctx, "U1", "體育", id)
		assert.ErrorIs(t, err, ErrValidation, "course id %q", id)
	}

	_, err := m.HandleQuery(ctx, "U1", "必修", "7002")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestHandleQueryCapacity(t *testing.T) {
	ctx := context.Background()
	m, _, _, _ := newTestMonitor(2)

	for _, id := range []string{"7001", "7002"} {
		_, err := m.HandleQuery(ctx, "U1", "體育", id)
		require.NoError(t, err)
	}
	_, err := m.HandleQuery(ctx, "U1", "體育", "7003")
	assert.ErrorIs(t, err, registry.ErrCapacityExceeded)

	// Re-querying an already watched course does not hit the cap.
	res, err := m.HandleQuery(ctx, "U1", "體育", "7002")
	require.NoError(t, err)
	assert.True(t, res.Watching)
	assert.Equal(t, 2, res.WatchCount)
}

func TestHandleQueryPropagatesFetchErrors(t *testing.T) {
	ctx := context.Background()
	m, src, _, _ := newTestMonitor(10)
	src.fetchErr = fmt.Errorf("login failed: %w", upstream.ErrLogin)

	_, err := m.HandleQuery(ctx, "U1", "體育", "7002")
	assert.ErrorIs(t, err, upstream.ErrLogin)
}

func TestHandleCancel(t *testing.T) {
	ctx := context.Background()
	m, _, _, _ := newTestMonitor(10)
	for _, id := range []string{"7001", "7002", "7003"} {
		_, err := m.HandleQuery(ctx, "U1", "體育", id)
		require.NoError(t, err)
	}

	n, err := m.HandleCancel(ctx, "U1", "7002")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = m.HandleCancel(ctx, "U1", "7002")
	require.NoError(t, err)
	assert.Equal(t, 0, n, "cancelling twice removes nothing the second time")

	_, err = m.HandleCancel(ctx, "U1", "70x2")
	assert.ErrorIs(t, err, ErrValidation)

	n, err = m.HandleCancel(ctx, "U1", CancelAll)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	watches, err := m.HandleList(ctx, "U1")
	require.NoError(t, err)
	assert.Empty(t, watches)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	m, _, _, _ := newTestMonitor(10)
	_, err := m.HandleQuery(ctx, "U1", "體育", "7002")
	require.NoError(t, err)
	_, err = m.HandleQuery(ctx, "U2", "通識", "0001")
	require.NoError(t, err)

	st, err := m.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, upstream.StateActive, st.SessionState)
	assert.Equal(t, 2, st.WatchCount)
	assert.False(t, st.EstablishedAt.IsZero())
}
