package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"localstack-cors-proxy/internal/config"
	"localstack-cors-proxy/internal/metrics"
)

// RegisterRoutes wires all route handlers onto the Echo instance. Everything
// that is not a health or metrics endpoint goes through the dispatcher. The
// metrics endpoint is only registered when m is non-nil.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, d *Dispatcher, health *HealthHandler, m *metrics.Metrics) {
	e.Pre(d.UnroutedMethods())

	e.GET("/healthz", health.Healthz)
	e.GET("/proxy/status", health.Status)

	if m != nil {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}

	e.Any("/", d.Dispatch)
	e.Any("/*", d.Dispatch)
}
