package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/keshon/dispatchkit/internal/config"
	"github.com/keshon/dispatchkit/internal/discord"
	"github.com/keshon/dispatchkit/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel()}))
	slog.SetDefault(logger)
	logger.Info("starting dispatchkit bot", "prefix", cfg.Prefix, "commands_dir", cfg.CommandsDir)

	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		logger.Error("failed to open storage", "path", cfg.StoragePath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bot := discord.NewBot(cfg, store, logger)
	if err := bot.Run(ctx); err != nil {
		logger.Error("discord bot error", "error", err)
		stop()
		store.Close()
		os.Exit(1)
	}
	logger.Info("discord bot exited cleanly")
}
