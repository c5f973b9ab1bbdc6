// Package payment проводит оплату через региональных платежных провайдеров
// и применяет результат к подпискам.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/randomlife/internal/lib/sl"
	"github.com/magabrotheeeer/randomlife/internal/metrics"
	"github.com/magabrotheeeer/randomlife/internal/models"
	"github.com/magabrotheeeer/randomlife/internal/paymentprovider"
	"github.com/magabrotheeeer/randomlife/internal/region"
	"github.com/magabrotheeeer/randomlife/internal/storage"
)

// DuplicateWindow сколько времени pending-оплата переиспользуется для такого же запроса.
const DuplicateWindow = 60 * time.Second

var (
	// ErrProviderNotAllowed возвращается для провайдеров вне региона развертывания.
	ErrProviderNotAllowed = errors.New("payment provider is not available in this region")
	// ErrInvalidPlan возвращается для планов без цены.
	ErrInvalidPlan = errors.New("invalid plan")
	// ErrAmountMismatch возвращается, если в уведомлении другая сумма.
	ErrAmountMismatch = errors.New("notified amount does not match the payment")
	// ErrNotCompleted возвращает Sync для незавершенных платежей.
	ErrNotCompleted = errors.New("payment is not completed")
)

// Repository хранилище, нужное сервису.
type Repository interface {
	CreatePayment(ctx context.Context, p models.Payment) (string, error)
	GetPayment(ctx context.Context, id string) (*models.Payment, error)
	GetPaymentByProviderOrder(ctx context.Context, provider, providerOrderID string) (*models.Payment, error)
	FindRecentPayment(ctx context.Context, q models.RecentPaymentQuery) (*models.Payment, error)
	UpdatePaymentStatus(ctx context.Context, id string, from, to models.PaymentStatus, transactionID string) (bool, error)
	ListPayments(ctx context.Context, userID string, page models.Page) ([]*models.Payment, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// Providers находит настроенных платежных провайдеров.
type Providers interface {
	Get(name string) (paymentprovider.Provider, error)
}

// Subscriptions применяет оплаченные планы.
type Subscriptions interface {
	Apply(ctx context.Context, userID string, plan models.PlanType) (*models.Subscription, error)
	EnsureApplied(ctx context.Context, userID string, plan models.PlanType, paidAt time.Time) (*models.Subscription, bool, error)
}

// Publisher ставит в очередь письма с чеком.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Price стоимость плана в минорных единицах.
type Price struct {
	Amount   int64
	Currency string
}

var prices = map[region.Region]map[models.PlanType]Price{
	region.CN: {
		models.PlanMonthly: {Amount: 990, Currency: "CNY"},
		models.PlanYearly:  {Amount: 9900, Currency: "CNY"},
	},
	region.INTL: {
		models.PlanMonthly: {Amount: 499, Currency: "USD"},
		models.PlanYearly:  {Amount: 4999, Currency: "USD"},
	},
}

// PriceFor ищет цену плана plan в регионе r.
func PriceFor(r region.Region, plan models.PlanType) (Price, error) {
	p, ok := prices[r][plan]
	if !ok {
		return Price{}, fmt.Errorf("%w: %q", ErrInvalidPlan, plan)
	}
	return p, nil
}

// Checkout запрос на покупку плана.
type Checkout struct {
	UserID   string
	Email    string
	Provider string
	Plan     models.PlanType
}

// Service реализует оплату и подтверждение платежей.
type Service struct {
	repo          Repository
	providers     Providers
	subscriptions Subscriptions
	publisher     Publisher
	metrics       *metrics.Metrics
	region        region.Region
	publicURL     string
	log           *slog.Logger
	now           func() time.Time
}

// Deps зависимости Service.
type Deps struct {
	Repo          Repository
	Providers     Providers
	Subscriptions Subscriptions
	Publisher     Publisher
	Metrics       *metrics.Metrics
}

// New создает Service для региона развертывания. publicURL внешний
// базовый адрес для return и notify URL.
func New(deps Deps, r region.Region, publicURL string, log *slog.Logger) *Service {
	return &Service{
		repo:          deps.Repo,
		providers:     deps.Providers,
		subscriptions: deps.Subscriptions,
		publisher:     deps.Publisher,
		metrics:       deps.Metrics,
		region:        r,
		publicURL:     strings.TrimRight(publicURL, "/"),
		log:           log,
		now:           time.Now,
	}
}

// Region возвращает регион развертывания сервиса.
func (s *Service) Region() region.Region {
	return s.region
}

// CreateCheckout создает заказ у провайдера и сохраняет его как pending.
// Если такой же pending-заказ был создан за последние DuplicateWindow,
// возвращается он, а новый заказ не создается.
func (s *Service) CreateCheckout(ctx context.Context, req Checkout) (*models.Payment, error) {
	const op = "services.payment.CreateCheckout"

	if !s.region.AllowsProvider(req.Provider) {
		return nil, fmt.Errorf("%s: %w: %s in %s", op, ErrProviderNotAllowed, req.Provider, s.region)
	}
	price, err := PriceFor(s.region, req.Plan)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log := s.log.With(slog.String("op", op), slog.String("user_id", req.UserID), slog.String("provider", req.Provider))

	now := s.now()
	recent, err := s.repo.FindRecentPayment(ctx, models.RecentPaymentQuery{
		UserID:   req.UserID,
		Provider: req.Provider,
		Plan:     req.Plan,
		Amount:   price.Amount,
		Since:    now.Add(-DuplicateWindow),
	})
	switch {
	case err == nil:
		log.Info("reusing recent checkout", slog.String("payment_id", recent.ID))
		return recent, nil
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	provider, err := s.providers.Get(req.Provider)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	id := uuid.NewString()
	order, err := provider.CreateOrder(ctx, paymentprovider.OrderRequest{
		OrderID:     id,
		UserID:      req.UserID,
		Email:       req.Email,
		Plan:        req.Plan,
		Amount:      price.Amount,
		Currency:    price.Currency,
		Description: description(s.region, req.Plan),
		ReturnURL:   s.publicURL + "/payment/success?payment_id=" + url.QueryEscape(id),
		CancelURL:   s.publicURL + "/payment/cancel?payment_id=" + url.QueryEscape(id),
		NotifyURL:   s.publicURL + "/api/payments/webhook/" + req.Provider,
	})
	if err != nil {
		s.metrics.Payment(req.Provider, "error")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	meta := make(map[string]string, len(order.Metadata)+2)
	for k, v := range order.Metadata {
		meta[k] = v
	}
	if order.CheckoutURL != "" {
		meta["checkout_url"] = order.CheckoutURL
	}
	if order.CodeURL != "" {
		meta["code_url"] = order.CodeURL
	}

	p := models.Payment{
		ID:              id,
		UserID:          req.UserID,
		Provider:        req.Provider,
		ProviderOrderID: order.ProviderOrderID,
		Plan:            req.Plan,
		Amount:          price.Amount,
		Currency:        price.Currency,
		Status:          models.PaymentPending,
		Metadata:        meta,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if p.ID, err = s.repo.CreatePayment(ctx, p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.metrics.Payment(req.Provider, string(models.PaymentPending))
	log.Info("checkout created", slog.String("payment_id", p.ID), slog.String("provider_order_id", p.ProviderOrderID))
	return &p, nil
}

func description(r region.Region, plan models.PlanType) string {
	if r == region.CN {
		if plan == models.PlanYearly {
			return "RandomLife 专业版 年度会员"
		}
		return "RandomLife 专业版 月度会员"
	}
	if plan == models.PlanYearly {
		return "RandomLife Pro (yearly)"
	}
	return "RandomLife Pro (monthly)"
}

// List возвращает историю платежей userID.
func (s *Service) List(ctx context.Context, userID string, page models.Page) ([]*models.Payment, error) {
	const op = "services.payment.List"

	list, err := s.repo.ListPayments(ctx, userID, page)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// owned загружает платеж userID. Платежи других пользователей считаются отсутствующими.
func (s *Service) owned(ctx context.Context, userID, paymentID string) (*models.Payment, error) {
	p, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, storage.ErrNotFound
	}
	return p, nil
}

// Get возвращает платеж userID. Pending-платежи сначала обновляются у
// провайдера, ошибки провайдера не меняют сохраненное состояние.
func (s *Service) Get(ctx context.Context, userID, paymentID string) (*models.Payment, error) {
	const op = "services.payment.Get"

	p, err := s.owned(ctx, userID, paymentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if p.Status != models.PaymentPending {
		return p, nil
	}
	refreshed, err := s.Refresh(ctx, p)
	if err != nil {
		s.log.Warn("failed to refresh pending payment", slog.String("payment_id", p.ID), sl.Err(err))
		return p, nil
	}
	return refreshed, nil
}

// Refresh опрашивает провайдера по p и применяет полученный статус.
func (s *Service) Refresh(ctx context.Context, p *models.Payment) (*models.Payment, error) {
	const op = "services.payment.Refresh"

	provider, err := s.providers.Get(p.Provider)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	st, err := provider.QueryOrder(ctx, p.ProviderOrderID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	updated, err := s.transition(ctx, p, st.Status, st.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

// Sync повторно применяет подписку завершенного платежа. Это ручной
// повтор для оплат, у которых не обновилась подписка.
func (s *Service) Sync(ctx context.Context, userID, paymentID string) (*models.Subscription, error) {
	const op = "services.payment.Sync"

	p, err := s.owned(ctx, userID, paymentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if p.Status != models.PaymentCompleted {
		return nil, fmt.Errorf("%s: %w: %s", op, ErrNotCompleted, p.Status)
	}
	paidAt := p.UpdatedAt
	if p.CompletedAt != nil {
		paidAt = *p.CompletedAt
	}
	sub, applied, err := s.subscriptions.EnsureApplied(ctx, userID, p.Plan, paidAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("payment synced", slog.String("payment_id", p.ID), slog.Bool("applied", applied))
	return sub, nil
}
