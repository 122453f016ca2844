package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirillkom/paperless-bot/internal/bootstrap"
	"github.com/kirillkom/paperless-bot/internal/config"
	"github.com/kirillkom/paperless-bot/internal/observability/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_error", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New("paperless-bot", cfg.LogLevel, cfg.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_error", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil {
		slog.Error("bot_stopped", "error", err)
		app.Close()
		os.Exit(1)
	}
	slog.Info("bot_stopped")
}
