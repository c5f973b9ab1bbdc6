// Package worker запускает потребителей очередей и планировщик напоминаний.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/randomlife/internal/app"
	"github.com/magabrotheeeer/randomlife/internal/config"
	"github.com/magabrotheeeer/randomlife/internal/lib/smtp"
	"github.com/magabrotheeeer/randomlife/internal/rabbitmq"
	"github.com/magabrotheeeer/randomlife/internal/region"
	"github.com/magabrotheeeer/randomlife/internal/services/preference"
	"github.com/magabrotheeeer/randomlife/internal/services/scheduler"
	"github.com/magabrotheeeer/randomlife/internal/services/sender"
)

// ErrBrokerRequired возвращается, если воркер запущен без RabbitMQ.
var ErrBrokerRequired = errors.New("worker needs rabbitmq.url")

// App процесс воркера.
type App struct {
	stores    *app.Stores
	broker    *app.Broker
	prefs     *preference.Service
	sender    *sender.Service
	scheduler *scheduler.Service
	logger    *slog.Logger
}

// New подключается к брокеру и активному хранилищу.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "worker.New"

	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrBrokerRequired)
	}
	r, err := region.Parse(cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	broker, err := app.ConnectBroker(cfg.RabbitMQ.URL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	stores, err := app.OpenStores(ctx, cfg, false, logger)
	if err != nil {
		broker.Close(logger)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &App{
		stores:    stores,
		broker:    broker,
		prefs:     preference.New(stores.Active, nil, logger),
		sender:    sender.New(smtp.NewTransport(cfg.SMTP, logger), logger),
		scheduler: scheduler.New(stores.Active, broker.Publisher, r, cfg.Interval, cfg.Lookahead, logger),
		logger:    logger,
	}, nil
}

// Run потребляет сообщения, пока ctx не завершится.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	if err := rabbitmq.Consume(ctx, a.logger, a.broker.Channel, rabbitmq.QueuePreferences, a.prefs.HandleEvent); err != nil {
		a.logger.Error("failed to start preferences consumer", slog.Any("err", err))
		return err
	}
	if err := rabbitmq.Consume(ctx, a.logger, a.broker.Channel, rabbitmq.QueueEmails, a.sender.HandleMessage); err != nil {
		a.logger.Error("failed to start email consumer", slog.Any("err", err))
		return err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		a.scheduler.Run(ctx)
	}()

	<-ctx.Done()
	a.logger.Info("worker shutting down gracefully")
	<-done
	return nil
}

func (a *App) close() {
	a.broker.Close(a.logger)
	if err := a.stores.Close(); err != nil {
		a.logger.Error("failed to close storage", slog.Any("err", err))
	}
}
