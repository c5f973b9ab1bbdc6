// Package storage описывает контракт доступа к данным, не зависящий от региона,
// и диспетчер, который выбирает региональный адаптер для текущего развертывания.
//
// Adapter реализуют два адаптера: postgresql (Supabase, INTL) и cloudbase
// (документная база CloudBase, CN). Сервисы зависят от узких интерфейсов,
// приложение подставляет тот адаптер, который вернул Select.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/randomlife/internal/models"
	"github.com/magabrotheeeer/randomlife/internal/region"
)

var (
	// ErrNotFound возвращается, если запись не найдена.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists возвращается при конфликте уникального ключа.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrAdapterMissing возвращает Select, если для региона не настроен адаптер.
	ErrAdapterMissing = errors.New("storage adapter is not configured")
)

// UserStore управляет аккаунтами пользователей.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (string, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByWechatOpenID(ctx context.Context, openID string) (*models.User, error)
	UpdateUserProfile(ctx context.Context, id string, upd models.ProfileUpdate) error
	UpdateUserTier(ctx context.Context, id string, tier models.Tier, subscriptionStatus string) error
}

// RecommendationStore управляет историей рекомендаций.
type RecommendationStore interface {
	SaveRecommendation(ctx context.Context, rec models.RecommendationHistory) (string, error)
	GetRecommendation(ctx context.Context, userID, id string) (*models.RecommendationHistory, error)
	GetRecommendationHistory(ctx context.Context, userID string, filter models.HistoryFilter) ([]*models.RecommendationHistory, error)
	RecordClick(ctx context.Context, userID, id string) error
	SetRecommendationSaved(ctx context.Context, userID, id string, saved bool) error
	DeleteRecommendation(ctx context.Context, userID, id string) error
}

// PreferenceStore управляет весами тегов по категориям.
type PreferenceStore interface {
	GetUserPreference(ctx context.Context, userID string, category models.Category) (*models.UserPreference, error)
	UpsertUserPreference(ctx context.Context, pref models.UserPreference) error
}

// PaymentStore управляет платежами.
type PaymentStore interface {
	CreatePayment(ctx context.Context, p models.Payment) (string, error)
	GetPayment(ctx context.Context, id string) (*models.Payment, error)
	GetPaymentByProviderOrder(ctx context.Context, provider, providerOrderID string) (*models.Payment, error)
	FindRecentPayment(ctx context.Context, q models.RecentPaymentQuery) (*models.Payment, error)
	// UpdatePaymentStatus переводит платеж из статуса from в to и
	// возвращает false, если платеж уже не в статусе from.
	UpdatePaymentStatus(ctx context.Context, id string, from, to models.PaymentStatus, transactionID string) (bool, error)
	ListPayments(ctx context.Context, userID string, page models.Page) ([]*models.Payment, error)
}

// SubscriptionStore управляет подпиской пользователя.
type SubscriptionStore interface {
	GetSubscription(ctx context.Context, userID string) (*models.Subscription, error)
	UpsertSubscription(ctx context.Context, sub models.Subscription) error
	FindExpiringSubscriptions(ctx context.Context, from, to time.Time) ([]*models.ExpiringSubscription, error)
}

// FeedbackStore сохраняет отзывы пользователей.
type FeedbackStore interface {
	SaveFeedback(ctx context.Context, fb models.Feedback) (string, error)
}

// AdminStore обслуживает админку.
type AdminStore interface {
	ListUsers(ctx context.Context, page models.Page) ([]*models.User, error)
	ListAllPayments(ctx context.Context, page models.Page) ([]*models.Payment, error)
	ListAllRecommendations(ctx context.Context, page models.Page) ([]*models.RecommendationHistory, error)
	Stats(ctx context.Context) (*models.SourceStats, error)
}

// Adapter полный набор операций одного регионального бэкенда.
type Adapter interface {
	UserStore
	RecommendationStore
	PreferenceStore
	PaymentStore
	SubscriptionStore
	FeedbackStore
	AdminStore

	Name() string
	Region() region.Region
	Ping(ctx context.Context) error
	Close() error
}

// Select возвращает адаптер для региона r. Фолбэка на другой регион нет.
func Select(r region.Region, cn, intl Adapter) (Adapter, error) {
	const op = "storage.Select"
	var a Adapter
	switch r {
	case region.CN:
		a = cn
	case region.INTL:
		a = intl
	default:
		return nil, fmt.Errorf("%s: %w", op, region.ErrUnknownRegion)
	}
	if a == nil {
		return nil, fmt.Errorf("%s: %s: %w", op, r, ErrAdapterMissing)
	}
	return a, nil
}

// ClampPage применяет общие для всех адаптеров размер страницы по умолчанию и максимум.
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
