package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// route is one row of the dispatch table. Rows are tried in order and the
// first whose method and predicate both match handles the request.
type route struct {
	name   string
	method string
	match  func(target string) bool
	handle echo.HandlerFunc
}

// Dispatcher picks exactly one handler per request from a fixed table keyed
// by method and a predicate on the raw request target.
type Dispatcher struct {
	routes []route
	logger *slog.Logger
}

// routedMethods are the methods echo's router keeps a handler slot for.
// Anything else is answered 405 by the router unless UnroutedMethods
// intercepts it first.
var routedMethods = map[string]bool{
	http.MethodConnect: true,
	http.MethodDelete:  true,
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
	http.MethodPatch:   true,
	http.MethodPost:    true,
	echo.PROPFIND:      true,
	http.MethodPut:     true,
	http.MethodTrace:   true,
	echo.REPORT:        true,
}

// NewDispatcher creates a Dispatcher over the forward and dashboard handlers.
// OPTIONS never reaches it; the CORS middleware answers preflight before routing.
func NewDispatcher(fwd *ForwardHandler, dash *DashboardHandler, logger *slog.Logger) *Dispatcher {
	return newDispatcher(fwd.Handle, dash.Dashboard, dash.Static, logger)
}

func newDispatcher(forward, dashboard, static echo.HandlerFunc, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		routes: []route{
			{name: "forward", method: http.MethodGet, match: isAPITarget, handle: forward},
			{name: "dashboard", method: http.MethodGet, match: isDashboardTarget, handle: dashboard},
			{name: "static", method: http.MethodGet, match: anyTarget, handle: static},
			{name: "static", method: http.MethodHead, match: anyTarget, handle: static},
		},
		logger: logger.With("component", "dispatcher"),
	}
}

// UnroutedMethods returns Pre middleware that hands requests with a method
// the router cannot store straight to Dispatch, so they get 501 like any
// other unsupported method instead of the router's 405.
func (d *Dispatcher) UnroutedMethods() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !routedMethods[c.Request().Method] {
				return d.Dispatch(c)
			}
			return next(c)
		}
	}
}

// Dispatch routes the request. Methods with no row get 501.
func (d *Dispatcher) Dispatch(c echo.Context) error {
	req := c.Request()
	target := RequestTarget(req)

	for _, r := range d.routes {
		if req.Method == r.method && r.match(target) {
			d.logger.Debug("dispatch", "route", r.name, "method", req.Method, "target", target)
			return r.handle(c)
		}
	}

	d.logger.Debug("dispatch", "route", "unsupported", "method", req.Method, "target", target)
	return echo.NewHTTPError(http.StatusNotImplemented, fmt.Sprintf("Unsupported method (%q)", req.Method))
}

// RequestTarget returns the request target as the client sent it, path and
// query string, without any cleaning.
func RequestTarget(r *http.Request) string {
	if strings.HasPrefix(r.RequestURI, "/") {
		return r.RequestURI
	}
	return r.URL.RequestURI()
}

func anyTarget(string) bool { return true }

func isAPITarget(target string) bool {
	return strings.HasPrefix(target, "/api/")
}

// isDashboardTarget matches "/" and "/dashboard" exactly; a query string
// makes the target fall through to static serving.
func isDashboardTarget(target string) bool {
	return target == "/" || target == "/dashboard"
}
