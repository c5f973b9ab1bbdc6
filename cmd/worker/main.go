package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/randomlife/internal/app/worker"
	"github.com/magabrotheeeer/randomlife/internal/config"
	"github.com/magabrotheeeer/randomlife/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := sl.New(cfg.Env, os.Stdout)

	logger.Info("starting randomlife worker", slog.String("env", cfg.Env), slog.String("region", cfg.Region))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := worker.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize worker", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("worker stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("worker stopped gracefully")
}
