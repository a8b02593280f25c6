package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"navmenus/internal/app"
	"navmenus/internal/platform/config"
	"navmenus/internal/platform/httpserver"
	"navmenus/internal/platform/logger"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Navigation logic lives in internal packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("wire services: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("failed to close resources", "error", err)
		}
	}()

	srv := httpserver.New(cfg.Addr, a.Router())
	log.Info("starting navmenus",
		"addr", cfg.Addr,
		"root_codename", cfg.Navigation.RootCodename,
		"redis", cfg.Redis.URL != "",
		"invalidation_webhook", cfg.WebhookSecret != "",
	)
	return httpserver.Run(ctx, srv, log)
}
