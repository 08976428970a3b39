// Command migrate applies the charge journal schema with goose.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"chargeline/internal/config"
	"chargeline/internal/infrastructure"
	"chargeline/internal/repository"
)

var commands = map[string]bool{
	"up": true, "up-by-one": true, "up-to": true,
	"down": true, "down-to": true, "redo": true,
	"reset": true, "status": true, "version": true,
}

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: migrate [command] [args]")
		fmt.Fprintln(os.Stderr, "Commands: up, up-by-one, up-to VERSION, down, down-to VERSION, redo, reset, status, version")
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 || !commands[args[0]] {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.New()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}
	infrastructure.SetupLogger(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := repository.RunMigrations(ctx, cfg.DSN(), args[0], args[1:]...); err != nil {
		slog.Error("migration failed", "command", args[0], "error", err)
		os.Exit(1)
	}

	slog.Info("migration finished", "command", args[0])
}
