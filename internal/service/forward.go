// Package service implements the core forwarding logic for /api requests.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"localstack-cors-proxy/internal/client"
	"localstack-cors-proxy/internal/config"
	"localstack-cors-proxy/internal/metrics"
	"localstack-cors-proxy/internal/model"
)

// APIPrefix is removed from the request target before it is appended to the
// backend base URL. Only these four characters are removed; the rest of the
// target, query string included, is passed through untouched.
const APIPrefix = "/api"

// StatusError is returned when the backend answered with a non-2xx status.
type StatusError struct {
	Code   int
	Reason string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Reason)
}

// ForwardService turns an /api request target into a backend call.
type ForwardService struct {
	client  *client.BackendClient
	baseURL string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewForwardService creates a ForwardService. The metrics parameter is optional.
func NewForwardService(c *client.BackendClient, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *ForwardService {
	return &ForwardService{
		client:  c,
		baseURL: cfg.Backend.BaseURL,
		logger:  logger.With("component", "forward_service"),
		metrics: m,
	}
}

// Forward sends a GET for target (the raw request target, starting with
// /api) to the backend. A 2xx response is returned as is; any other status
// comes back as a *StatusError and an unreachable backend as a
// *client.ConnectError.
func (s *ForwardService) Forward(ctx context.Context, target string) (*model.UpstreamResponse, error) {
	upstreamURL := s.UpstreamURL(target)

	s.logger.Info("proxying", "from", target, "to", upstreamURL)

	resp, err := s.client.Get(ctx, upstreamURL)
	if err == nil && !resp.OK() {
		err = &StatusError{Code: resp.StatusCode, Reason: resp.Reason}
	}
	s.recordOutcome(err)
	if err != nil {
		return nil, fmt.Errorf("forward %s: %w", target, err)
	}
	return resp, nil
}

// UpstreamURL concatenates the backend base URL with target minus the /api
// prefix. No cleaning is applied: "/api//x" maps to base+"//x" and "/api/../x"
// to base+"/../x".
func (s *ForwardService) UpstreamURL(target string) string {
	if len(target) >= len(APIPrefix) {
		target = target[len(APIPrefix):]
	}
	return s.baseURL + target
}

func (s *ForwardService) recordOutcome(err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.ForwardOutcomes.WithLabelValues(Outcome(err)).Inc()
}

// Outcome classifies a Forward error into the label used for metrics.
func Outcome(err error) string {
	var statusErr *StatusError
	var connErr *client.ConnectError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &statusErr):
		return "http_error"
	case errors.As(err, &connErr):
		return "connection_error"
	default:
		return "proxy_error"
	}
}
