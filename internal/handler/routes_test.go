package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"localstack-cors-proxy/internal/client"
	"localstack-cors-proxy/internal/config"
	"localstack-cors-proxy/internal/metrics"
	"localstack-cors-proxy/internal/middleware"
	"localstack-cors-proxy/internal/service"
)

// newTestServer wires the full route table the way main does.
func newTestServer(t *testing.T, backendURL, root string, m *metrics.Metrics) *echo.Echo {
	t.Helper()
	cfg := &config.Config{
		Backend: config.BackendConfig{BaseURL: backendURL, TimeoutSeconds: 10},
		Static:  config.StaticConfig{Root: root},
		Metrics: config.MetricsConfig{Enabled: m != nil, Path: "/metrics"},
	}
	logger := discardLogger()
	bc := client.NewBackendClient(cfg, logger, m)
	fwd := NewForwardHandler(service.NewForwardService(bc, cfg, logger, m), logger)
	d := NewDispatcher(fwd, NewDashboardHandler(cfg, logger), logger)

	e := echo.New()
	e.Pre(middleware.CORS())
	RegisterRoutes(e, cfg, d, NewHealthHandler(cfg, "test"), m)
	return e
}

func serve(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func checkCORS(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	want := map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "GET, POST, PUT, DELETE, OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type, Authorization",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}

func TestRegisterRoutes_Wiring(t *testing.T) {
	var backendSaw []string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backendSaw = append(backendSaw, r.RequestURI)
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"services":{}}`))
		case "/gone":
			w.WriteHeader(http.StatusNotFound)
		default:
			_, _ = w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer upstream.Close()

	root := t.TempDir()
	dashboard := "<h1>LocalStack</h1>\n"
	if err := os.WriteFile(filepath.Join(root, DashboardFile), []byte(dashboard), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "style.css"), []byte("body{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	e := newTestServer(t, upstream.URL, root, nil)

	tests := []struct {
		name       string
		method     string
		target     string
		wantStatus int
		wantBody   string
		wantType   string
	}{
		{"GET /healthz", http.MethodGet, "/healthz", http.StatusOK, "", ""},
		{"GET /proxy/status", http.MethodGet, "/proxy/status", http.StatusOK, "", ""},
		{"GET /api/health 201 becomes 200", http.MethodGet, "/api/health", http.StatusOK, `{"services":{}}`, "application/json"},
		{"GET /api/gone", http.MethodGet, "/api/gone", http.StatusNotFound, "", "application/json"},
		{"GET /", http.MethodGet, "/", http.StatusOK, dashboard, "text/html"},
		{"GET /dashboard", http.MethodGet, "/dashboard", http.StatusOK, dashboard, "text/html"},
		{"GET /style.css", http.MethodGet, "/style.css", http.StatusOK, "body{}", ""},
		{"GET /static/missing-file", http.MethodGet, "/static/missing-file", http.StatusNotFound, "", ""},
		{"OPTIONS /api/health", http.MethodOptions, "/api/health", http.StatusOK, "", ""},
		{"OPTIONS /healthz", http.MethodOptions, "/healthz", http.StatusOK, "", ""},
		{"POST /api/health", http.MethodPost, "/api/health", http.StatusNotImplemented, "", ""},
		{"DELETE /", http.MethodDelete, "/", http.StatusNotImplemented, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, tt.method, tt.target)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
			if tt.wantType != "" && rec.Header().Get("Content-Type") != tt.wantType {
				t.Errorf("Content-Type = %q, want %q", rec.Header().Get("Content-Type"), tt.wantType)
			}
			if tt.method == http.MethodOptions && rec.Body.Len() != 0 {
				t.Errorf("preflight body = %q, want empty", rec.Body.String())
			}
			checkCORS(t, rec)
		})
	}

	for _, uri := range backendSaw {
		if strings.HasPrefix(uri, "/api") {
			t.Errorf("backend saw %q; /api prefix should be stripped", uri)
		}
	}
}

func TestRegisterRoutes_DashboardMissing(t *testing.T) {
	e := newTestServer(t, "http://127.0.0.1:1", t.TempDir(), nil)

	rec := serve(e, http.MethodGet, "/")

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if rec.Body.String() != "<h1>Dashboard not found</h1>" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "<h1>Dashboard not found</h1>")
	}
	checkCORS(t, rec)
}

func TestRegisterRoutes_BackendDown(t *testing.T) {
	e := newTestServer(t, "http://127.0.0.1:1", t.TempDir(), nil)

	rec := serve(e, http.MethodGet, "/api/_localstack/health")

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !strings.HasPrefix(body["error"], "LocalStack connection failed: ") {
		t.Errorf("error = %q, want LocalStack connection failed prefix", body["error"])
	}
	checkCORS(t, rec)
}

func TestRegisterRoutes_Metrics(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer upstream.Close()

	m := metrics.New()
	e := newTestServer(t, upstream.URL, t.TempDir(), m)

	serve(e, http.MethodGet, "/api/health")
	rec := serve(e, http.MethodGet, "/metrics")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `localstack_cors_proxy_forward_outcomes_total{outcome="ok"} 1`) {
		t.Errorf("metrics output missing forward outcome:\n%s", body)
	}
	checkCORS(t, rec)
}

func TestRegisterRoutes_MetricsDisabled(t *testing.T) {
	e := newTestServer(t, "http://127.0.0.1:1", t.TempDir(), nil)

	rec := serve(e, http.MethodGet, "/metrics")

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d (served as a missing static file)", rec.Code, http.StatusNotFound)
	}
}
