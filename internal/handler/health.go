package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/example/course-watcher/internal/service"
	"github.com/example/course-watcher/internal/upstream"
)

// StatusHandler exposes engine health over HTTP for load balancers and
// monitoring systems.
type StatusHandler struct {
	monitor *service.Monitor
}

// NewStatusHandler binds the handler to the engine core.
func NewStatusHandler(monitor *service.Monitor) *StatusHandler {
	return &StatusHandler{monitor: monitor}
}

// Health handles GET /healthz. The service reports healthy while the
// upstream session is active and degraded otherwise; a degraded bot still
// answers commands, it just cannot query the upstream.
func (h *StatusHandler) Health(c echo.Context) error {
	st, err := h.monitor.Status(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error"})
	}
	status := "healthy"
	if st.SessionState != upstream.StateActive {
		status = "degraded"
	}
	resp := echo.Map{
		"status":      status,
		"login_state": st.SessionState.String(),
		"watch_count": st.WatchCount,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}
	if !st.EstablishedAt.IsZero() {
		resp["last_login"] = st.EstablishedAt.UTC().Format(time.RFC3339)
	}
	return c.JSON(http.StatusOK, resp)
}
