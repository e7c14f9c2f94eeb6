package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"statuscomms/internal/api"
	"statuscomms/internal/config"
	"statuscomms/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the HTTP API on $PORT (default 8080). Routes under /api are gated by
the X-API-Key header when STATUSCOMMS_API_KEY is set.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if config.APIKey() == "" {
		a.logger.Warn("STATUSCOMMS_API_KEY not set; /api routes are open")
	}
	gin.SetMode(gin.ReleaseMode)
	router := server.New(api.New(a.pipeline, a.store, a.attester), config.APIKey)

	addr := server.Addr(config.Port())
	a.logger.Info("listening", slog.String("addr", addr))
	return server.Run(ctx, addr, router)
}
