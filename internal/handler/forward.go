package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"localstack-cors-proxy/internal/client"
	"localstack-cors-proxy/internal/service"
)

// ForwardHandler answers /api/ requests from the LocalStack backend.
type ForwardHandler struct {
	service *service.ForwardService
	logger  *slog.Logger
}

// NewForwardHandler creates a ForwardHandler.
func NewForwardHandler(svc *service.ForwardService, logger *slog.Logger) *ForwardHandler {
	return &ForwardHandler{
		service: svc,
		logger:  logger.With("component", "forward_handler"),
	}
}

// Handle forwards the request and writes the backend body back as JSON.
// Any 2xx from the backend is reported to the client as 200.
func (h *ForwardHandler) Handle(c echo.Context) error {
	req := c.Request()

	resp, err := h.service.Forward(req.Context(), RequestTarget(req))
	if err != nil {
		return h.mapError(c, err)
	}

	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, resp.Body)
}

func (h *ForwardHandler) mapError(c echo.Context, err error) error {
	var statusErr *service.StatusError
	if errors.As(err, &statusErr) {
		h.logger.Error("backend HTTP error",
			"code", statusErr.Code,
			"reason", statusErr.Reason,
			"uri", c.Request().RequestURI,
		)
		if statusErr.Code == http.StatusNotModified {
			return c.NoContent(statusErr.Code)
		}
		return c.JSON(statusErr.Code, errorBody(statusErr.Error()))
	}

	var connErr *client.ConnectError
	if errors.As(err, &connErr) {
		h.logger.Error("backend connection error",
			"reason", connErr.Reason(),
			"uri", c.Request().RequestURI,
		)
		return c.JSON(http.StatusServiceUnavailable, errorBody("LocalStack connection failed: "+connErr.Reason()))
	}

	h.logger.Error("proxy error",
		"err", err,
		"uri", c.Request().RequestURI,
	)
	return c.JSON(http.StatusInternalServerError, errorBody("Proxy error: "+err.Error()))
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}
