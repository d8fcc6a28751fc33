package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/example/course-watcher/internal/model"
	"github.com/example/course-watcher/internal/service"
	"github.com/example/course-watcher/internal/upstream"
)

func itoa(n int) string { return strconv.Itoa(n) }

func (p *Processor) foundReply(rec model.CourseRecord) string {
	return fmt.Sprintf(`✅ 查詢成功！

📚 課程：%s
📋 類別：%s
🔢 選課編號：%s
📝 科目代碼：%s
👥 目前人數：%d/%d
✅ 可用名額：%d 人
🏫 開課班級：%s

💡 課程目前有名額可以選課！`,
		rec.Name, rec.Category, rec.ID, rec.Code,
		rec.Occupied, rec.Capacity, rec.Available, rec.ClassInfo)
}

func (p *Processor) watchingReply(courseID, category string, watchCount int) string {
	return fmt.Sprintf(`❌ 課程目前額滿

📋 課程代碼：%s (%s)
🔒 狀態：額滿（未在餘額清單中）

🤖 已自動加入監控清單
🔔 一旦有名額會立即通知您
⏰ 每%d秒檢查一次

📊 您的監控數：%d/%d

💡 使用「清單」查看所有監控中的課程`,
		courseID, category, p.limits.PollIntervalSec, watchCount, p.limits.MaxPerUser)
}

func (p *Processor) validationReply(err error) string {
	msg := strings.TrimPrefix(err.Error(), service.ErrValidation.Error()+": ")
	return fmt.Sprintf(`❌ %s

📋 支援的類別：%s
🔢 課程代碼：4位數字

💡 正確格式：[類別] [課程代碼]
📝 範例：體育 7002`, msg, strings.Join(upstream.Categories(), "、"))
}

func (p *Processor) capacityReply() string {
	return fmt.Sprintf("❌ 監控數量已達上限（%d門）\n\n💡 使用「取消 [課程代碼]」先移除部分監控", p.limits.MaxPerUser)
}

func (p *Processor) loginFailedReply() string {
	return `❌ 系統登入失敗

🔧 可能原因：
• 校務系統維護中
• 網路連線問題
• 帳號密碼設定問題

💡 請稍後再試或聯繫管理員`
}

func (p *Processor) queryFailedReply(courseID, category string) string {
	return fmt.Sprintf(`❌ 查詢失敗

📋 課程代碼：%s (%s)
🔧 可能原因：網路問題或系統繁忙

💡 請稍後再試`, courseID, category)
}

func (p *Processor) rateLimitedReply() string {
	return fmt.Sprintf("⚠️ 請求過於頻繁，請稍後再試\n\n💡 限制：每分鐘最多 %d 次請求", p.limits.RatePerMinute)
}

func (p *Processor) listReply(watches []model.WatchEntry) string {
	if len(watches) == 0 {
		return fmt.Sprintf("📋 您目前沒有監控任何課程\n\n💡 監控上限：%d 門課程", p.limits.MaxPerUser)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 您的監控清單（%d/%d）：\n\n", len(watches), p.limits.MaxPerUser)
	for i, w := range watches {
		name := w.DisplayName
		if name == "" {
			name = w.Category + "課程"
		}
		if len([]rune(name)) > 25 {
			name = string([]rune(name)[:25]) + "..."
		}
		fmt.Fprintf(&b, "%d. %s\n  📋 %s - %s\n  🕒 %s\n\n",
			i+1, name, w.Category, w.CourseID, w.CreatedAt.Format("2006-01-02 15:04"))
	}
	b.WriteString("💡 使用「取消 [課程代碼]」可移除監控")
	return b.String()
}

func (p *Processor) statusReply(st service.Status) string {
	loginStatus := "❌ 登入失敗"
	if st.SessionState == upstream.StateActive {
		loginStatus = "✅ 正常"
	}
	lastLogin := "未知"
	if !st.EstablishedAt.IsZero() {
		lastLogin = st.EstablishedAt.Format("15:04:05")
	}
	return fmt.Sprintf(`🤖 機器人狀態檢查

🔧 系統狀態：正常運行
🔑 登入狀態：%s
🕒 上次登入：%s
📊 監控功能：啟用
📋 總監控數：%d 門
🔄 檢查頻率：每%d秒
👥 監控上限：%d 門/用戶
⚡ 速率限制：%d 次/分鐘

💡 系統運行正常`,
		loginStatus, lastLogin, st.WatchCount,
		p.limits.PollIntervalSec, p.limits.MaxPerUser, p.limits.RatePerMinute)
}

func (p *Processor) helpReply() string {
	return fmt.Sprintf(`❓ 指令格式錯誤

💡 使用方式：[類別] [課程代碼]

📝 範例：
• 體育 7002 - 查詢體育課程
• 通識 3001 - 查詢通識課程

📌 其他指令：
• 清單 - 查看監控的課程
• 取消 [課程代碼] - 取消監控
• 取消 全部 - 取消所有監控
• 測試 - 檢查機器人狀態

⚙️ 系統限制：
• ⏰ 監控頻率：每%d秒檢查一次
• 👥 監控上限：%d 門課程/用戶
• ⚡ 速率限制：%d 次請求/分鐘`,
		p.limits.PollIntervalSec, p.limits.MaxPerUser, p.limits.RatePerMinute)
}
