// Package subscription применяет купленные планы к пользователям и отдает
// фактический статус подписки.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/randomlife/internal/lib/sl"
	"github.com/magabrotheeeer/randomlife/internal/models"
	"github.com/magabrotheeeer/randomlife/internal/storage"
)

// ErrUnknownPlan возвращается для планов вне таблицы планов.
var ErrUnknownPlan = errors.New("unknown subscription plan")

// Repository хранилище, нужное сервису.
type Repository interface {
	GetSubscription(ctx context.Context, userID string) (*models.Subscription, error)
	UpsertSubscription(ctx context.Context, sub models.Subscription) error
	UpdateUserTier(ctx context.Context, id string, tier models.Tier, subscriptionStatus string) error
}

// Cache хранит вычисленные статусы.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// Status фактическое состояние подписки, которое видит пользователь.
type Status struct {
	Status   string          `json:"status"`
	Tier     models.Tier     `json:"tier"`
	Plan     models.PlanType `json:"plan,omitempty"`
	EndDate  *time.Time      `json:"end_date,omitempty"`
	DaysLeft int             `json:"days_left"`
}

// Active проверяет, есть ли у пользователя сейчас pro-доступ.
func (s *Status) Active() bool {
	return s.Status == models.SubscriptionActive
}

// Days возвращает длительность плана в днях.
func Days(plan models.PlanType) (int, error) {
	switch plan {
	case models.PlanMonthly:
		return 30, nil
	case models.PlanYearly:
		return 365, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPlan, plan)
	}
}

// Extend возвращает новую дату окончания после покупки плана. Активная
// незакончившаяся подписка продлевается от даты окончания, остальные
// начинаются с текущего момента.
func Extend(current *models.Subscription, plan models.PlanType, now time.Time) (time.Time, error) {
	days, err := Days(plan)
	if err != nil {
		return time.Time{}, err
	}
	if current != nil && current.Status == models.SubscriptionActive && current.EndDate.After(now) {
		return current.EndDate.AddDate(0, 0, days), nil
	}
	return now.AddDate(0, 0, days), nil
}

// Service реализует правила подписки.
type Service struct {
	repo  Repository
	cache Cache
	ttl   time.Duration
	log   *slog.Logger
	now   func() time.Time
}

// New создает Service. Статусы кэшируются на ttl.
func New(repo Repository, cache Cache, ttl time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
		log:   log,
		now:   time.Now,
	}
}

func statusKey(userID string) string {
	return "subscription:status:" + userID
}

// Status возвращает статус userID из кэша или вычисляет заново.
func (s *Service) Status(ctx context.Context, userID string) (*Status, error) {
	const op = "services.subscription.Status"

	key := statusKey(userID)
	var cached Status
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn("failed to read status from cache", slog.String("key", key), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	sub, err := s.repo.GetSubscription(ctx, userID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	st := s.evaluate(sub)

	if err := s.cache.Set(ctx, key, st, s.ttl); err != nil {
		s.log.Warn("failed to cache status", slog.String("key", key), sl.Err(err))
	}
	return st, nil
}

// IsPro проверяет, есть ли у userID активная подписка.
func (s *Service) IsPro(ctx context.Context, userID string) (bool, error) {
	st, err := s.Status(ctx, userID)
	if err != nil {
		return false, err
	}
	return st.Active(), nil
}

func (s *Service) evaluate(sub *models.Subscription) *Status {
	if sub == nil {
		return &Status{Status: models.SubscriptionNone, Tier: models.TierFree}
	}
	now := s.now()
	end := sub.EndDate
	st := &Status{Plan: sub.Plan, EndDate: &end}
	if end.After(now) {
		st.Status = models.SubscriptionActive
		st.Tier = models.TierPro
		st.DaysLeft = int(end.Sub(now).Hours()/24) + 1
		return st
	}
	st.Status = models.SubscriptionExpired
	st.Tier = models.TierFree
	return st
}

// Apply продлевает подписку userID на план и переводит пользователя в pro.
func (s *Service) Apply(ctx context.Context, userID string, plan models.PlanType) (*models.Subscription, error) {
	const op = "services.subscription.Apply"

	current, err := s.repo.GetSubscription(ctx, userID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	now := s.now()
	end, err := Extend(current, plan, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	start := now
	if current != nil && current.Status == models.SubscriptionActive && current.EndDate.After(now) {
		start = current.StartDate
	}
	sub := models.Subscription{
		UserID:    userID,
		Plan:      plan,
		Tier:      models.TierPro,
		Status:    models.SubscriptionActive,
		StartDate: start,
		EndDate:   end,
		UpdatedAt: now,
	}
	if err := s.repo.UpsertSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.UpdateUserTier(ctx, userID, models.TierPro, models.SubscriptionActive); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, userID)

	s.log.Info("subscription extended",
		slog.String("user_id", userID),
		slog.String("plan", string(plan)),
		slog.Time("end_date", end))
	return &sub, nil
}

// EnsureApplied применяет план, если подписка, оплаченная в paidAt, еще
// не отражена в сохраненной дате окончания. Используется ручным sync.
func (s *Service) EnsureApplied(ctx context.Context, userID string, plan models.PlanType, paidAt time.Time) (*models.Subscription, bool, error) {
	const op = "services.subscription.EnsureApplied"

	days, err := Days(plan)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	current, err := s.repo.GetSubscription(ctx, userID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	if current != nil && current.Status == models.SubscriptionActive &&
		!current.EndDate.Before(paidAt.AddDate(0, 0, days)) {
		return current, false, nil
	}
	sub, err := s.Apply(ctx, userID, plan)
	if err != nil {
		return nil, false, err
	}
	return sub, true, nil
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	if err := s.cache.Invalidate(ctx, statusKey(userID)); err != nil {
		s.log.Warn("failed to invalidate status cache", slog.String("user_id", userID), sl.Err(err))
	}
}
