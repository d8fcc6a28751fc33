package bot

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/course-watcher/internal/model"
	"github.com/example/course-watcher/internal/registry"
	"github.com/example/course-watcher/internal/service"
	"github.com/example/course-watcher/internal/upstream"
)

type fakeCore struct {
	queryRes   service.QueryResult
	queryErr   error
	lastQuery  [3]string // owner, category, courseID
	watches    []model.WatchEntry
	cancelN    int
	cancelErr  error
	lastCancel string
	status     service.Status
}

func (f *fakeCore) HandleQuery(ctx context.Context, owner, category, courseID string) (service.QueryResult, error) {
	f.lastQuery = [3]string{owner, category, courseID}
	return f.queryRes, f.queryErr
}

func (f *fakeCore) HandleList(ctx context.Context, owner string) ([]model.WatchEntry, error) {
	return f.watches, nil
}

func (f *fakeCore) HandleCancel(ctx context.Context, owner, target string) (int, error) {
	f.lastCancel = target
	return f.cancelN, f.cancelErr
}

func (f *fakeCore) Status(ctx context.Context) (service.Status, error) {
	return f.status, nil
}

type allowAll struct{}

func (allowAll) Allow(ctx context.Context, owner string) bool { return true }

type denyAll struct{}

func (denyAll) Allow(ctx context.Context, owner string) bool { return false }

func testLimits() Limits {
	return Limits{PollIntervalSec: 5, MaxPerUser: 10, RatePerMinute: 20}
}

func TestProcessQueryFound(t *testing.T) {
	core := &fakeCore{queryRes: service.QueryResult{
		Found: true,
		Record: model.CourseRecord{
			ID: "7002", Code: "PE102", Name: "羽球初級", Category: "體育",
			Capacity: 60, Occupied: 55, Available: 5, ClassInfo: "體育一B",
		},
	}}
	p := NewProcessor(core, allowAll{}, testLimits())

	reply := p.Process(context.Background(), "U1", "體育 7002")
	assert.Contains(t, reply, "查詢成功")
	assert.Contains(t, reply, "羽球初級")
	assert.Contains(t, reply, "55/60")
	assert.Equal(t, [3]string{"U1", "體育", "7002"}, core.lastQuery)
}

func TestProcessQueryFullStartsWatch(t *testing.T) {
	core := &fakeCore{queryRes: service.QueryResult{Watching: true, WatchCount: 3}}
	p := NewProcessor(core, allowAll{}, testLimits())

	reply := p.Process(context.Background(), "U1", "體育 7002")
	assert.Contains(t, reply, "額滿")
	assert.Contains(t, reply, "已自動加入監控清單")
	assert.Contains(t, reply, "3/10")
	assert.Contains(t, reply, "每5秒")
}

func TestProcessErrorReplies(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"validation", fmt.Errorf("%w: 課程代碼必須是4位數字", service.ErrValidation), "課程代碼必須是4位數字"},
		{"capacity", registry.ErrCapacityExceeded, "監控數量已達上限（10門）"},
		{"login", fmt.Errorf("credentials rejected: %w", upstream.ErrLogin), "系統登入失敗"},
		{"network", fmt.Errorf("timeout: %w", upstream.ErrNetwork), "查詢失敗"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			core := &fakeCore{queryErr: tc.err}
			p := NewProcessor(core, allowAll{}, testLimits())
			reply := p.Process(context.Background(), "U1", "體育 7002")
			assert.Contains(t, reply, tc.want)
		})
	}
}

func TestProcessRateLimited(t *testing.T) {
	core := &fakeCore{}
	p := NewProcessor(core, denyAll{}, testLimits())

	reply := p.Process(context.Background(), "U1", "體育 7002")
	assert.Contains(t, reply, "請求過於頻繁")
	assert.Contains(t, reply, "20 次請求")
	// The rejected message never reaches the core.
	assert.Equal(t, [3]string{}, core.lastQuery)
}

func TestProcessCancelCommands(t *testing.T) {
	core := &fakeCore{cancelN: 1}
	p := NewProcessor(core, allowAll{}, testLimits())
	ctx := context.Background()

	reply := p.Process(ctx, "U1", "取消 7002")
	assert.Contains(t, reply, "已取消監控課程：7002")
	assert.Equal(t, "7002", core.lastCancel)

	core.cancelN = 3
	reply = p.Process(ctx, "U1", "取消 全部")
	assert.Contains(t, reply, "共 3 門課程")
	assert.Equal(t, service.CancelAll, core.lastCancel)

	core.cancelN = 0
	reply = p.Process(ctx, "U1", "取消 7009")
	assert.Contains(t, reply, "找不到監控的課程：7009")

	reply = p.Process(ctx, "U1", "取消")
	assert.Contains(t, reply, "請使用：取消")
}

func TestProcessListCommand(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	core := &fakeCore{watches: []model.WatchEntry{
		{Owner: "U1", CourseID: "7002", Category: "體育", DisplayName: "體育課程-7002", CreatedAt: now},
		{Owner: "U1", CourseID: "0001", Category: "通識", DisplayName: "通識課程-0001", CreatedAt: now},
	}}
	p := NewProcessor(core, allowAll{}, testLimits())

	reply := p.Process(context.Background(), "U1", "清單")
	assert.Contains(t, reply, "（2/10）")
	assert.Contains(t, reply, "1. 體育課程-7002")
	assert.Contains(t, reply, "2. 通識課程-0001")
	assert.Contains(t, reply, "2026-03-01 10:30")

	core.watches = nil
	reply = p.Process(context.Background(), "U1", "清單")
	assert.Contains(t, reply, "沒有監控任何課程")
}

func TestListReplyTruncatesLongNames(t *testing.T) {
	long := "這是一個名字非常長的課程名稱用來測試截斷行為是否正確運作喔"
	require.Greater(t, len([]rune(long)), 25)
	core := &fakeCore{watches: []model.WatchEntry{
		{Owner: "U1", CourseID: "7002", Category: "體育", DisplayName: long, CreatedAt: time.Now()},
	}}
	p := NewProcessor(core, allowAll{}, testLimits())

	reply := p.Process(context.Background(), "U1", "清單")
	assert.Contains(t, reply, string([]rune(long)[:25])+"...")
	assert.NotContains(t, reply, long)
}

func TestProcessStatusCommand(t *testing.T) {
	core := &fakeCore{status: service.Status{
		SessionState:  upstream.StateActive,
		EstablishedAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.Local),
		WatchCount:    4,
	}}
	p := NewProcessor(core, allowAll{}, testLimits())

	reply := p.Process(context.Background(), "U1", "測試")
	assert.Contains(t, reply, "✅ 正常")
	assert.Contains(t, reply, "08:00:00")
	assert.Contains(t, reply, "總監控數：4 門")

	core.status.SessionState = upstream.StateExpired
	reply = p.Process(context.Background(), "U1", "測試")
	assert.Contains(t, reply, "❌ 登入失敗")
}

func TestProcessHelpOnUnknownInput(t *testing.T) {
	p := NewProcessor(&fakeCore{}, allowAll{}, testLimits())
	for _, msg := range []string{"hello", "體育", "體育 7002 extra", ""} {
		reply := p.Process(context.Background(), "U1", msg)
		assert.Contains(t, reply, "指令格式錯誤", "input %q", msg)
	}
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "體育 7002", Sanitize("  體育 7002  "))
	assert.Equal(t, "scriptalert(1)/script", Sanitize(`<script>alert(1)</script>`))
	assert.Equal(t, "清單", Sanitize(`清單"'&`))
}
