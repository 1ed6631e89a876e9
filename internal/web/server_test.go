package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/face-matcher/internal/config"
	"github.com/kozaktomas/face-matcher/internal/engine"
	"github.com/kozaktomas/face-matcher/internal/facematch"
	"github.com/kozaktomas/face-matcher/internal/gallery"
)

type noFaces struct{}

func (noFaces) ExtractFaces(ctx context.Context, imagePath string, opts facematch.DetectOptions) ([]facematch.Face, error) {
	return nil, nil
}

func (noFaces) Find(ctx context.Context, facePath string, opts facematch.SearchOptions) ([]facematch.Candidate, error) {
	return nil, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Load()
	cfg.Matcher.DatabasePath = t.TempDir()
	cfg.Matcher.TempDir = t.TempDir()

	eng := &engine.Engine{Name: "fake", Detector: noFaces{}, Searcher: noFaces{}}
	return NewServer(cfg, eng, gallery.NewStore(cfg.Matcher.DatabasePath))
}

func TestServer_Routes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name         string
		method       string
		path         string
		expectedCode int
		contentType  string
		bodyContains string
	}{
		{"health", http.MethodGet, "/api/v1/health", http.StatusOK, "application/json", `"engine":"fake"`},
		{"config", http.MethodGet, "/api/v1/config", http.StatusOK, "application/json", `"default_detector"`},
		{"empty database", http.MethodGet, "/api/v1/face/database/list", http.StatusOK, "application/json", `"count":0`},
		{"unknown job", http.MethodGet, "/api/v1/match/nope", http.StatusNotFound, "application/json", "job not found"},
		{"delete unknown person", http.MethodDelete, "/api/v1/face/database/delete/nobody", http.StatusNotFound, "application/json", ""},
		{"index", http.MethodGet, "/", http.StatusOK, "text/html", "Face Matcher"},
		{"spa fallback", http.MethodGet, "/gallery", http.StatusOK, "text/html", "Face Matcher"},
		{"script", http.MethodGet, "/assets/app.js", http.StatusOK, "application/javascript", "EventSource"},
		{"stylesheet", http.MethodGet, "/assets/app.css", http.StatusOK, "text/css", ".banner"},
		{"missing asset", http.MethodGet, "/assets/missing.js", http.StatusNotFound, "", ""},
		{"match without upload", http.MethodPost, "/api/v1/match", http.StatusBadRequest, "application/json", "invalid multipart form"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, req)

			if rec.Code != tt.expectedCode {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedCode, rec.Code, rec.Body.String())
			}
			if tt.contentType != "" && !strings.HasPrefix(rec.Header().Get("Content-Type"), tt.contentType) {
				t.Errorf("expected content type %s, got %s", tt.contentType, rec.Header().Get("Content-Type"))
			}
			if tt.bodyContains != "" && !strings.Contains(rec.Body.String(), tt.bodyContains) {
				t.Errorf("expected body to contain %q, got %s", tt.bodyContains, rec.Body.String())
			}
		})
	}
}

func TestServer_SecurityHeaders(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	csp := rec.Header().Get("Content-Security-Policy")
	if !strings.Contains(csp, "default-src 'self'") {
		t.Errorf("unexpected Content-Security-Policy %q", csp)
	}
	if rec.Header().Get("Cache-Control") != "" {
		t.Error("index.html should not be cached")
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/index.html", "text/html; charset=utf-8"},
		{"/assets/app.JS", "application/javascript; charset=utf-8"},
		{"/assets/logo.svg", "image/svg+xml"},
		{"/assets/blob", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := contentTypeFor(tt.path); got != tt.expected {
				t.Errorf("contentTypeFor(%q) = %q, want %q", tt.path, got, tt.expected)
			}
		})
	}
}
