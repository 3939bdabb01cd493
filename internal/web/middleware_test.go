package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/haasonsaas/boxgrid/internal/observability"
)

func TestCORSMiddleware(t *testing.T) {
	handler := CORSMiddleware([]string{"https://dash.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	tests := []struct {
		name       string
		method     string
		origin     string
		preflight  bool
		wantStatus int
		wantAllow  string
	}{
		{"allowed", http.MethodGet, "https://dash.example.com", false, http.StatusTeapot, "https://dash.example.com"},
		{"foreign", http.MethodGet, "https://evil.example.com", false, http.StatusTeapot, ""},
		{"no origin", http.MethodGet, "", false, http.StatusTeapot, ""},
		{"preflight allowed", http.MethodOptions, "https://dash.example.com", true, http.StatusNoContent, "https://dash.example.com"},
		{"preflight foreign", http.MethodOptions, "https://evil.example.com", true, http.StatusForbidden, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/board", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", "PATCH")
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Fatalf("Allow-Origin = %q, want %q", got, tt.wantAllow)
			}
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = observability.RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "req-7")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen != "req-7" || rec.Header().Get(requestIDHeader) != "req-7" {
		t.Fatalf("expected incoming id to be kept, got %q / %q", seen, rec.Header().Get(requestIDHeader))
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, strings.Repeat("x", 200))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if len(seen) != 36 {
		t.Fatalf("expected a generated uuid for an oversized id, got %q", seen)
	}
}

func TestResponseWriterCapturesStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapped := wrapResponseWriter(rec)
	wrapped.WriteHeader(http.StatusAccepted)
	wrapped.WriteHeader(http.StatusInternalServerError)
	if wrapped.status != http.StatusAccepted || rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d / %d", wrapped.status, rec.Code)
	}
	if _, _, err := wrapped.Hijack(); err == nil {
		t.Fatalf("expected hijack to fail on a recorder")
	}
}

func TestServerStartAndShutdown(t *testing.T) {
	env := newTestEnv(t, false)
	server := NewServer(env.handler, ServerOptions{Addr: "127.0.0.1:0", Logger: discardLogger()})
	if err := server.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	resp, err := http.Get("http://" + server.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}
