// Package app содержит сборку, общую для API и воркера.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/randomlife/internal/config"
	"github.com/magabrotheeeer/randomlife/internal/lib/sl"
	"github.com/magabrotheeeer/randomlife/internal/migrations"
	"github.com/magabrotheeeer/randomlife/internal/rabbitmq"
	"github.com/magabrotheeeer/randomlife/internal/region"
	"github.com/magabrotheeeer/randomlife/internal/storage"
	"github.com/magabrotheeeer/randomlife/internal/storage/cloudbase"
	"github.com/magabrotheeeer/randomlife/internal/storage/postgresql"
)

const (
	dbReadyRetries = 10
	dbReadyDelay   = 3 * time.Second

	rabbitRetries = 5
	rabbitDelay   = 2 * time.Second
)

// Stores набор открытых региональных адаптеров.
type Stores struct {
	// Active обслуживает регион развертывания.
	Active storage.Adapter
	// All содержит все настроенные адаптеры, включая Active. Админка
	// читает из всех.
	All []storage.Adapter
	// Unavailable настроенные адаптеры, которые не удалось открыть, по имени.
	// Админка показывает их как упавшие источники.
	Unavailable map[string]error
}

// Close закрывает все адаптеры.
func (s *Stores) Close() error {
	var errs []error
	for _, a := range s.All {
		if err := a.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func waitForDB(ctx context.Context, db *postgresql.Storage) error {
	var err error
	for range dbReadyRetries {
		if err = postgresql.CheckDatabaseReady(ctx, db); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(dbReadyDelay):
		}
	}
	return fmt.Errorf("database not ready after retries: %w", err)
}

// OpenStores открывает адаптер региона развертывания и, если настроен,
// адаптер другого региона. Обязателен только активный адаптер. С migrate
// схема Supabase накатывается, когда он активное хранилище, иначе
// ожидаем готовности схемы.
func OpenStores(ctx context.Context, cfg *config.Config, migrate bool, log *slog.Logger) (*Stores, error) {
	const op = "app.OpenStores"

	r, err := region.Parse(cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var cn, intl storage.Adapter
	stores := &Stores{Unavailable: map[string]error{}}

	if cfg.StorageConnectionString != "" {
		pg, err := postgresql.New(ctx, cfg.StorageConnectionString)
		switch {
		case err != nil && r == region.INTL:
			return nil, fmt.Errorf("%s: %w", op, err)
		case err != nil:
			log.Warn("supabase unavailable, admin dashboard will report it", sl.Err(err))
			stores.Unavailable["supabase"] = err
		default:
			stores.All = append(stores.All, pg)
			intl = pg
			if r == region.INTL {
				if migrate {
					err = migrations.Run(pg.DB, cfg.MigrationsPath)
				} else {
					err = waitForDB(ctx, pg)
				}
				if err != nil {
					_ = stores.Close()
					return nil, fmt.Errorf("%s: %w", op, err)
				}
			}
		}
	}

	if cfg.EnvID != "" {
		cb := cloudbase.New(cloudbase.NewClient(cfg.CloudBase.BaseURL, cfg.EnvID, cfg.CloudBase.AccessToken, cfg.CloudBase.Timeout))
		stores.All = append(stores.All, cb)
		cn = cb
	}

	stores.Active, err = storage.Select(r, cn, intl)
	if err != nil {
		_ = stores.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return stores, nil
}

// Broker открытое соединение с RabbitMQ с объявленными очередями RandomLife.
type Broker struct {
	Conn      *amqp.Connection
	Channel   *amqp.Channel
	Publisher *rabbitmq.Publisher
}

// ConnectBroker подключается к RabbitMQ и объявляет exchange и очереди.
func ConnectBroker(url string) (*Broker, error) {
	const op = "app.ConnectBroker"

	conn, err := rabbitmq.Connect(url, rabbitRetries, rabbitDelay)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.Queues())
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Broker{
		Conn:      conn,
		Channel:   ch,
		Publisher: rabbitmq.NewPublisher(ch, rabbitmq.Exchange),
	}, nil
}

// Close закрывает канал и соединение.
func (b *Broker) Close(log *slog.Logger) {
	if err := b.Channel.Close(); err != nil {
		log.Error("failed to close channel", sl.Err(err))
	}
	if err := b.Conn.Close(); err != nil {
		log.Error("failed to close connection", sl.Err(err))
	}
}
