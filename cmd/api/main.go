package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"chargeline/internal/infrastructure"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := infrastructure.Bootstrap(ctx)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		log.Fatalf("Bootstrap failed: %v", err)
	}

	slog.Info("chargeline is running")
	if err := app.Run(ctx); err != nil {
		slog.Error("server stopped with error", "error", err)
		return
	}
	slog.Info("chargeline stopped")
}
