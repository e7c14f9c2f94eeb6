package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"statuscomms/internal/api"
	"statuscomms/internal/gemini"
	"statuscomms/internal/pipeline"
)

type nopService struct{}

func (nopService) Generate(ctx context.Context, req gemini.Request) (gemini.Response, error) {
	return gemini.Response{}, gemini.ErrEmptyResponse
}

func setupRouter(key string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := api.New(pipeline.New(nopService{}, pipeline.Options{}), nil, nil)
	return New(h, func() string { return key })
}

func TestAPIKeyGatesOnlyAPIRoutes(t *testing.T) {
	r := setupRouter("secret")
	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"health open", "/health", "", http.StatusOK},
		{"ready open", "/ready", "", http.StatusOK},
		{"metrics open", "/metrics", "", http.StatusOK},
		{"api without key", "/api/status-examples", "", http.StatusUnauthorized},
		{"api with key", "/api/status-examples", "secret", http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("X-API-Key", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestMetricsExposition(t *testing.T) {
	r := setupRouter("")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Fatalf("expected Go collector output")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, "127.0.0.1:0", http.NotFoundHandler()) }()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
}

func TestAddr(t *testing.T) {
	if got := Addr("8080"); got != ":8080" {
		t.Fatalf("unexpected %q", got)
	}
	if got := Addr(":9090"); got != ":9090" {
		t.Fatalf("unexpected %q", got)
	}
}
