package handler

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"localstack-cors-proxy/internal/config"
)

// DashboardFile is the page served for "/" and "/dashboard", relative to the static root.
const DashboardFile = "dashboard.html"

const (
	dashboardNotFound    = "<h1>Dashboard not found</h1>"
	dashboardUnavailable = "<h1>Dashboard unavailable</h1>"
)

// DashboardHandler serves the dashboard page and every other file under the
// static root.
type DashboardHandler struct {
	root   string
	static echo.HandlerFunc
	logger *slog.Logger
}

// NewDashboardHandler creates a DashboardHandler rooted at cfg.Static.Root.
func NewDashboardHandler(cfg *config.Config, logger *slog.Logger) *DashboardHandler {
	// Echo's static middleware cleans the path before opening it, which keeps
	// lookups inside root. Misses fall through to a plain 404.
	static := echomw.StaticWithConfig(echomw.StaticConfig{
		Root:   cfg.Static.Root,
		Index:  "index.html",
		Browse: true,
	})(func(echo.Context) error {
		return echo.ErrNotFound
	})

	return &DashboardHandler{
		root:   cfg.Static.Root,
		static: static,
		logger: logger.With("component", "dashboard_handler"),
	}
}

// Dashboard writes dashboard.html byte for byte. The file is read on every
// request so edits show up without a restart.
func (h *DashboardHandler) Dashboard(c echo.Context) error {
	body, err := os.ReadFile(filepath.Join(h.root, DashboardFile))
	switch {
	case err == nil:
		return c.Blob(http.StatusOK, echo.MIMETextHTML, body)
	case errors.Is(err, fs.ErrNotExist):
		return c.Blob(http.StatusNotFound, echo.MIMETextHTML, []byte(dashboardNotFound))
	default:
		h.logger.Error("read dashboard", "err", err)
		return c.Blob(http.StatusInternalServerError, echo.MIMETextHTML, []byte(dashboardUnavailable))
	}
}

// Static serves a file or directory listing from the static root.
func (h *DashboardHandler) Static(c echo.Context) error {
	return h.static(c)
}
