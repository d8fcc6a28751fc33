// Package router defines how HTTP routes are registered for the service.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/example/course-watcher/internal/handler"
	"github.com/example/course-watcher/internal/middleware"
)

// RegisterRoutes registers the public surface: the status page, the health
// check and the chat webhook.
func RegisterRoutes(e *echo.Echo, home *handler.HomeHandler, status *handler.StatusHandler, webhook *handler.WebhookHandler) {
	e.GET("/", home.Home)
	e.GET("/healthz", status.Health)
	e.POST("/callback", webhook.Callback)
}

// RegisterAdmin registers the operator API. Login is open; everything else
// under /v1/admin requires a valid access token.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	e.POST("/v1/admin/login", a.Login)

	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.GET("/watches", a.Watches)
	g.GET("/history", a.History)
}
