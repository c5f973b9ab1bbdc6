// Package main RandomLife API
//
// @title           RandomLife API
// @version         1.0
// @description     Персональные случайные рекомендации с pro-подпиской, отдельные развертывания для CN и INTL.

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Введите "Bearer", пробел и access-токен.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/randomlife/internal/app/randomlife"
	"github.com/magabrotheeeer/randomlife/internal/config"
	"github.com/magabrotheeeer/randomlife/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := sl.New(cfg.Env, os.Stdout)

	logger.Info("starting randomlife", slog.String("env", cfg.Env), slog.String("region", cfg.Region))
	logger.Debug("config loaded", slog.String("config", cfg.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := randomlife.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize app", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("app stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("randomlife stopped gracefully")
}
