package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/packlinehq/packline-api/internal/api"
	"github.com/packlinehq/packline-api/internal/config"
	"github.com/packlinehq/packline-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()

	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.NewLogger(cfg.LogLevel)

	server := api.NewServer(cfg, l)

	go func() {
		l.Info("Order API listening", "port", cfg.Port, "env", cfg.Env)

		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("Server stopped unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	stop()

	l.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		l.Error("Forced shutdown", "error", err)
		return
	}

	l.Info("Shutdown complete")
}
