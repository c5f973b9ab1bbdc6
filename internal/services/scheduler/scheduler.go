// Package scheduler периодически ставит в очередь напоминания о подписках,
// которые скоро заканчиваются.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/randomlife/internal/lib/sl"
	"github.com/magabrotheeeer/randomlife/internal/models"
	"github.com/magabrotheeeer/randomlife/internal/rabbitmq"
	"github.com/magabrotheeeer/randomlife/internal/region"
)

// Repository ищет подписки с окончанием в [from, to).
type Repository interface {
	FindExpiringSubscriptions(ctx context.Context, from, to time.Time) ([]*models.ExpiringSubscription, error)
}

// Publisher ставит исходящие письма в очередь.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Service публикует сообщения EmailExpiryReminder.
type Service struct {
	repo      Repository
	publisher Publisher
	region    region.Region
	interval  time.Duration
	lookahead time.Duration
	log       *slog.Logger
	now       func() time.Time
}

// New создает Service, который каждые interval ищет подписки,
// заканчивающиеся в пределах lookahead.
func New(repo Repository, publisher Publisher, r region.Region, interval, lookahead time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		region:    r,
		interval:  interval,
		lookahead: lookahead,
		log:       log,
		now:       time.Now,
	}
}

// Run сразу делает один проход, затем на каждом тике, пока ctx не отменен.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil {
			s.log.Error("expiry scan failed", sl.Err(err))
		}
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce ставит по одному напоминанию на истекающую подписку и возвращает
// число опубликованных. Ошибка публикации логируется и не прерывает проход.
func (s *Service) RunOnce(ctx context.Context) (int, error) {
	const op = "services.scheduler.RunOnce"

	from := s.now()
	expiring, err := s.repo.FindExpiringSubscriptions(ctx, from, from.Add(s.lookahead))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("found expiring subscriptions", slog.Int("count", len(expiring)))

	sent := 0
	for _, sub := range expiring {
		if sub.Email == "" {
			continue
		}
		msg := models.EmailMessage{
			Kind:    models.EmailExpiryReminder,
			To:      sub.Email,
			Name:    sub.Name,
			Locale:  s.region.Locale(),
			Plan:    sub.Plan,
			EndDate: sub.EndDate,
		}
		if err := s.publisher.Publish(ctx, rabbitmq.RoutingEmails, msg); err != nil {
			s.log.Error("failed to queue reminder", slog.String("user_id", sub.UserID), sl.Err(err))
			continue
		}
		sent++
	}
	return sent, nil
}
