package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"localstack-cors-proxy/internal/config"
)

// Version is a string type for dependency injection of the build version.
type Version string

// statusResponse is the body of /proxy/status.
type statusResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	BackendURL string `json:"backend_url"`
	StaticRoot string `json:"static_root"`
	Dashboard  bool   `json:"dashboard"`
}

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	version Version
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, version: v}
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Status reports where requests are sent and whether the dashboard file is present.
// It does not contact the backend.
func (h *HealthHandler) Status(c echo.Context) error {
	_, err := os.Stat(filepath.Join(h.cfg.Static.Root, DashboardFile))
	return c.JSON(http.StatusOK, statusResponse{
		Status:     "ok",
		Version:    string(h.version),
		BackendURL: h.cfg.Backend.BaseURL,
		StaticRoot: h.cfg.Static.Root,
		Dashboard:  err == nil,
	})
}
