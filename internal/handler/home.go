package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/example/course-watcher/internal/upstream"
)

// HomeHandler serves the plain status page at /. It mirrors what operators
// used to check in logs: login state, watch count and the configured limits.
type HomeHandler struct {
	status          *StatusHandler
	pollIntervalSec int
	maxPerUser      int
	ratePerMinute   int
}

// NewHomeHandler binds the page to the status source and the limits it
// displays.
func NewHomeHandler(status *StatusHandler, pollIntervalSec, maxPerUser, ratePerMinute int) *HomeHandler {
	return &HomeHandler{
		status:          status,
		pollIntervalSec: pollIntervalSec,
		maxPerUser:      maxPerUser,
		ratePerMinute:   ratePerMinute,
	}
}

// Home handles GET /.
func (h *HomeHandler) Home(c echo.Context) error {
	st, err := h.status.monitor.Status(c.Request().Context())
	if err != nil {
		return c.String(http.StatusInternalServerError, "❌ 系統暫時無法使用，請稍後再試")
	}
	login := "❌ 失敗"
	if st.SessionState == upstream.StateActive {
		login = "✅ 成功"
	}

	page := fmt.Sprintf(`<h1>🤖 課程餘額監控機器人</h1>
<p>✅ 伺服器運行中</p>
<p>🔑 登入狀態: %s</p>
<p>📋 監控課程數: %d 門</p>
<p>🔄 監控頻率: 每%d秒</p>
<p>👥 單用戶監控上限: %d 門</p>
<p>⚡ 速率限制: %d 次/分鐘</p>

<h2>💬 支援指令</h2>
<ul>
<li><code>[類別] [課程代碼]</code> - 查詢課程餘額</li>
<li><code>清單</code> - 查看監控的課程</li>
<li><code>取消 [課程代碼]</code> - 取消監控</li>
<li><code>取消 全部</code> - 取消所有監控</li>
<li><code>測試</code> - 檢查機器人狀態</li>
</ul>

<h2>📋 支援類別</h2>
<ul><li>體育</li><li>通識</li></ul>

<h2>💡 使用說明</h2>
<ol>
<li>輸入 <code>體育 7002</code> 查詢課程</li>
<li>有餘額會顯示詳細資訊</li>
<li>額滿會自動加入監控</li>
<li>有名額時會立即通知</li>
</ol>`,
		login, st.WatchCount, h.pollIntervalSec, h.maxPerUser, h.ratePerMinute)

	return c.HTML(http.StatusOK, page)
}
