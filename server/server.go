// Package server assembles the HTTP router and runs it.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"statuscomms/internal/api"
	"statuscomms/internal/auth"
	"statuscomms/internal/logging"
	"statuscomms/internal/metrics"
)

const shutdownTimeout = 20 * time.Second

// New builds the router. /api is gated by apiKey when it returns non-empty.
func New(h *api.Handlers, apiKey func() string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLog(logging.New("http")))

	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	g := r.Group("/api")
	g.Use(auth.APIKey(apiKey))
	{
		g.POST("/generate-draft", h.GenerateDraft)
		g.POST("/extract-evidence", h.ExtractEvidence)
		g.POST("/generate-from-evidence", h.GenerateFromEvidence)
		g.POST("/evaluate-draft", h.EvaluateDraft)
		g.POST("/evaluate-with-llm-judge", h.EvaluateWithJudge)
		g.GET("/runs/:id", h.GetRun)
		g.GET("/status-examples", h.StatusExamples)
		g.POST("/verify", h.Verify)
	}
	return r
}

func requestLog(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.FullPath() == "/health" || c.FullPath() == "/metrics" {
			return
		}
		logger.Info("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
}

// Addr turns a PORT value into a listen address.
func Addr(port string) string {
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// Run serves h on addr until ctx is done, then drains in-flight requests.
func Run(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
