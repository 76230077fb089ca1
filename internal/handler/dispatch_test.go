package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestRequestTarget(t *testing.T) {
	tests := []struct {
		name string
		req  func() *http.Request
		want string
	}{
		{
			name: "raw target kept",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/api//health?x=1", http.NoBody)
			},
			want: "/api//health?x=1",
		},
		{
			name: "dot segments kept",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/api/../health", http.NoBody)
			},
			want: "/api/../health",
		},
		{
			name: "absolute form falls back to URL",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "http://localhost:8080/api/health?x=1", http.NoBody)
			},
			want: "/api/health?x=1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RequestTarget(tt.req()); got != tt.want {
				t.Errorf("RequestTarget() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	var called string
	record := func(name string) echo.HandlerFunc {
		return func(c echo.Context) error {
			called = name
			return c.NoContent(http.StatusOK)
		}
	}

	d := newDispatcher(record("forward"), record("dashboard"), record("static"), discardLogger())

	tests := []struct {
		method string
		target string
		want   string
	}{
		{http.MethodGet, "/api/health", "forward"},
		{http.MethodGet, "/api/", "forward"},
		{http.MethodGet, "/api", "static"},
		{http.MethodGet, "/apix/health", "static"},
		{http.MethodGet, "/", "dashboard"},
		{http.MethodGet, "/dashboard", "dashboard"},
		{http.MethodGet, "/?tab=s3", "static"},
		{http.MethodGet, "/dashboard/", "static"},
		{http.MethodGet, "/static/app.js", "static"},
		{http.MethodHead, "/api/health", "static"},
		{http.MethodHead, "/", "static"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			called = ""
			e := echo.New()
			req := httptest.NewRequest(tt.method, tt.target, http.NoBody)
			c := e.NewContext(req, httptest.NewRecorder())

			if err := d.Dispatch(c); err != nil {
				t.Fatalf("Dispatch() error = %v", err)
			}
			if called != tt.want {
				t.Errorf("route = %q, want %q", called, tt.want)
			}
		})
	}
}

func TestDispatcher_UnsupportedMethod(t *testing.T) {
	d := NewDispatcher(newTestForwardHandler("http://127.0.0.1:1"), newTestDashboardHandler(t.TempDir()), discardLogger())

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		t.Run(method, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(method, "/api/health", http.NoBody)
			c := e.NewContext(req, httptest.NewRecorder())

			err := d.Dispatch(c)
			he, ok := err.(*echo.HTTPError)
			if !ok {
				t.Fatalf("Dispatch() error = %v, want *echo.HTTPError", err)
			}
			if he.Code != http.StatusNotImplemented {
				t.Errorf("code = %d, want %d", he.Code, http.StatusNotImplemented)
			}
		})
	}
}

func TestDispatcher_UnroutedMethods(t *testing.T) {
	d := NewDispatcher(newTestForwardHandler("http://127.0.0.1:1"), newTestDashboardHandler(t.TempDir()), discardLogger())

	tests := []struct {
		method     string
		wantStatus int
		wantNext   bool
	}{
		{"FOO", http.StatusNotImplemented, false},
		{"BREW", http.StatusNotImplemented, false},
		{http.MethodPost, http.StatusOK, true},
		{http.MethodGet, http.StatusOK, true},
		{echo.PROPFIND, http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(tt.method, "/x", http.NoBody)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			calledNext := false
			h := d.UnroutedMethods()(func(c echo.Context) error {
				calledNext = true
				return c.NoContent(http.StatusOK)
			})

			err := h(c)
			if calledNext != tt.wantNext {
				t.Errorf("next called = %v, want %v", calledNext, tt.wantNext)
			}
			if tt.wantNext {
				return
			}
			he, ok := err.(*echo.HTTPError)
			if !ok {
				t.Fatalf("error = %v, want *echo.HTTPError", err)
			}
			if he.Code != tt.wantStatus {
				t.Errorf("code = %d, want %d", he.Code, tt.wantStatus)
			}
			if want := `Unsupported method ("` + tt.method + `")`; he.Message != want {
				t.Errorf("message = %v, want %q", he.Message, want)
			}
		})
	}
}
