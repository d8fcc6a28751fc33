package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/example/course-watcher/internal/history"
	"github.com/example/course-watcher/internal/registry"
	"github.com/example/course-watcher/internal/utils"
)

// AdminHandler exposes operator visibility over the watch table and the
// query history, behind JWT auth issued from a single configured credential.
type AdminHandler struct {
	user      string
	passHash  string // bcrypt hash of the admin password
	jwtSecret string
	ttlMin    int
	registry  registry.Registry
	history   history.Store
}

// NewAdminHandler wires the admin API.
func NewAdminHandler(user, passHash, jwtSecret string, ttlMin int, reg registry.Registry, hist history.Store) *AdminHandler {
	return &AdminHandler{
		user:      user,
		passHash:  passHash,
		jwtSecret: jwtSecret,
		ttlMin:    ttlMin,
		registry:  reg,
		history:   hist,
	}
}

// Login handles POST /v1/admin/login. Credentials are checked against the
// configured user and bcrypt hash; a match yields a short-lived token.
func (h *AdminHandler) Login(c echo.Context) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "malformed body"})
	}
	if req.Username != h.user || !utils.VerifyPassword(h.passHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	tok, err := utils.NewAccessToken(h.jwtSecret, h.user, h.ttlMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token issue failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access_token": tok.Token,
		"expires_at":   tok.Exp,
	})
}

// Watches handles GET /v1/admin/watches and returns every active watch.
func (h *AdminHandler) Watches(c echo.Context) error {
	entries, err := h.registry.ListActive(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"count": len(entries), "watches": entries})
}

// History handles GET /v1/admin/history?owner=&n=.
func (h *AdminHandler) History(c echo.Context) error {
	n := 50
	if raw := c.QueryParam("n"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			n = v
		}
	}
	records, err := h.history.ListRecent(c.Request().Context(), c.QueryParam("owner"), n)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"count": len(records), "history": records})
}
