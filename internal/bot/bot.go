// Package bot maps free-text chat commands onto the engine core and renders
// the replies. It is the single place that knows the command vocabulary and
// the reply wording; the core underneath knows neither.
package bot

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strings"

	"github.com/example/course-watcher/internal/limiter"
	"github.com/example/course-watcher/internal/model"
	"github.com/example/course-watcher/internal/registry"
	"github.com/example/course-watcher/internal/service"
	"github.com/example/course-watcher/internal/upstream"
)

// Core is the slice of the monitor service the bot needs. *service.Monitor
// satisfies it; tests substitute fakes.
type Core interface {
	HandleQuery(ctx context.Context, owner, category, courseID string) (service.QueryResult, error)
	HandleList(ctx context.Context, owner string) ([]model.WatchEntry, error)
	HandleCancel(ctx context.Context, owner, target string) (int, error)
	Status(ctx context.Context) (service.Status, error)
}

// Limits carries the configured bounds quoted back to users in replies.
type Limits struct {
	PollIntervalSec int
	MaxPerUser      int
	RatePerMinute   int
}

// Processor handles one inbound message end to end: sanitize, rate-limit,
// dispatch, render the reply.
type Processor struct {
	core    Core
	limiter limiter.Limiter
	limits  Limits
}

// NewProcessor wires the command layer.
func NewProcessor(core Core, lim limiter.Limiter, limits Limits) *Processor {
	return &Processor{core: core, limiter: lim, limits: limits}
}

var unsafeChars = regexp.MustCompile(`[<>"'&]`)

// Sanitize strips characters that could smuggle markup into replies or logs.
func Sanitize(text string) string {
	return unsafeChars.ReplaceAllString(strings.TrimSpace(text), "")
}

// Process dispatches one user message and returns the reply text. Every
// error is converted into a user-facing message here; nothing propagates.
func (p *Processor) Process(ctx context.Context, owner, raw string) string {
	text := Sanitize(raw)

	if !p.limiter.Allow(ctx, owner) {
		return p.rateLimitedReply()
	}

	switch {
	case strings.HasPrefix(text, "取消"):
		return p.handleCancel(ctx, owner, text)
	case text == "清單":
		return p.handleList(ctx, owner)
	case text == "測試":
		return p.handleStatus(ctx)
	default:
		parts := strings.Fields(text)
		if len(parts) == 2 {
			return p.handleQuery(ctx, owner, parts[0], parts[1])
		}
		return p.helpReply()
	}
}

func (p *Processor) handleQuery(ctx context.Context, owner, category, courseID string) string {
	res, err := p.core.HandleQuery(ctx, owner, category, courseID)
	switch {
	case err == nil && res.Found:
		return p.foundReply(res.Record)
	case err == nil && res.Watching:
		return p.watchingReply(courseID, category, res.WatchCount)
	case errors.Is(err, service.ErrValidation):
		return p.validationReply(err)
	case errors.Is(err, registry.ErrCapacityExceeded):
		return p.capacityReply()
	case errors.Is(err, upstream.ErrLogin):
		return p.loginFailedReply()
	default:
		log.Printf("bot: query %s %s for %s failed: %v", category, courseID, owner, err)
		return p.queryFailedReply(courseID, category)
	}
}

func (p *Processor) handleCancel(ctx context.Context, owner, text string) string {
	parts := strings.Fields(text)
	if len(parts) < 2 {
		return "❌ 請使用：取消 [課程代碼] 或 取消 全部"
	}

	target := parts[1]
	if target == "全部" {
		count, err := p.core.HandleCancel(ctx, owner, service.CancelAll)
		if err != nil {
			log.Printf("bot: cancel all for %s failed: %v", owner, err)
			return "❌ 取消監控時發生錯誤，請稍後再試"
		}
		if count == 0 {
			return "📋 您目前沒有任何監控"
		}
		return "✅ 已取消監控所有課程，共 " + itoa(count) + " 門課程"
	}

	count, err := p.core.HandleCancel(ctx, owner, target)
	if errors.Is(err, service.ErrValidation) {
		return p.validationReply(err)
	}
	if err != nil {
		log.Printf("bot: cancel %s for %s failed: %v", target, owner, err)
		return "❌ 取消監控時發生錯誤，請稍後再試"
	}
	if count == 0 {
		return "❌ 找不到監控的課程：" + target
	}
	return "✅ 已取消監控課程：" + target
}

func (p *Processor) handleList(ctx context.Context, owner string) string {
	watches, err := p.core.HandleList(ctx, owner)
	if err != nil {
		log.Printf("bot: list for %s failed: %v", owner, err)
		return "❌ 取得監控清單時發生錯誤，請稍後再試"
	}
	return p.listReply(watches)
}

func (p *Processor) handleStatus(ctx context.Context) string {
	st, err := p.core.Status(ctx)
	if err != nil {
		log.Printf("bot: status failed: %v", err)
		return "❌ 取得系統狀態時發生錯誤"
	}
	return p.statusReply(st)
}
