// Package notifier delivers one-shot messages to users over the external
// chat channel. Delivery failures are surfaced as ErrDelivery so the
// scheduler can retry on a later cycle; they are never fatal.
package notifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/course-watcher/internal/model"
)

// ErrDelivery is wrapped into every failed push so callers can test for the
// class of failure with errors.Is without caring about transport details.
var ErrDelivery = errors.New("notification delivery failed")

// Notifier pushes a text message to a user. Fire-and-forget from the
// engine's perspective: a nil return means the channel accepted the message,
// not that a human read it.
type Notifier interface {
	Push(ctx context.Context, owner, text string) error
}

// ResolvedMessage renders the notification a user receives when a watched
// course gains an open slot.
func ResolvedMessage(rec model.CourseRecord) string {
	return fmt.Sprintf(`🎉 好消息！課程有名額了！

📚 課程：%s
📋 類別：%s
🔢 選課編號：%s
📝 科目代碼：%s
👥 目前人數：%d/%d
✅ 可用名額：%d 人
🏫 開課班級：%s

⚡ 快去選課吧！

🤖 已自動從監控清單移除此課程`,
		rec.Name, rec.Category, rec.ID, rec.Code,
		rec.Occupied, rec.Capacity, rec.Available, rec.ClassInfo)
}
