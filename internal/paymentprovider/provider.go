// Package paymentprovider приводит четыре платежных сервиса к одному
// интерфейсу: Stripe и PayPal для INTL, WeChat Pay и Alipay для CN.
package paymentprovider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/magabrotheeeer/randomlife/internal/models"
)

// Имена провайдеров.
const (
	Stripe = "stripe"
	PayPal = "paypal"
	WeChat = "wechat"
	Alipay = "alipay"
)

var (
	// ErrUnknownProvider возвращается для ненастроенных провайдеров.
	ErrUnknownProvider = errors.New("unknown payment provider")
	// ErrInvalidSignature возвращается, если уведомление не прошло проверку.
	ErrInvalidSignature = errors.New("invalid notification signature")
	// ErrIgnoredEvent возвращается для уведомлений без смены состояния.
	ErrIgnoredEvent = errors.New("notification does not change payment state")
)

// OrderRequest описывает оплату. OrderID локальный id платежа,
// провайдер возвращает его в уведомлениях.
type OrderRequest struct {
	OrderID     string
	UserID      string
	Email       string
	Plan        models.PlanType
	Amount      int64
	Currency    string
	Description string
	ReturnURL   string
	CancelURL   string
	NotifyURL   string
}

// Order созданный у провайдера заказ.
type Order struct {
	ProviderOrderID string
	// CheckoutURL адрес редиректа для hosted checkout.
	CheckoutURL string
	// CodeURL содержимое QR-кода WeChat native pay.
	CodeURL  string
	Metadata map[string]string
}

// OrderStatus состояние заказа на стороне провайдера.
type OrderStatus struct {
	ProviderOrderID string
	TransactionID   string
	Status          models.PaymentStatus
}

// Notification проверенное асинхронное платежное событие. Платеж
// определяется по ProviderOrderID или OrderID.
type Notification struct {
	Provider        string
	ProviderOrderID string
	OrderID         string
	TransactionID   string
	Status          models.PaymentStatus
	// Amount в минорных единицах, ноль, если в событии суммы нет.
	Amount int64
}

// Provider реализуется каждым платежным адаптером.
type Provider interface {
	Name() string
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	QueryOrder(ctx context.Context, providerOrderID string) (*OrderStatus, error)
	VerifyPayment(ctx context.Context, r *http.Request) (*Notification, error)
}

// Acknowledger реализуют провайдеры, которые ждут определенный ответ на вебхук.
type Acknowledger interface {
	Ack(w http.ResponseWriter)
}

// Registry сопоставляет имена провайдеров настроенным провайдерам.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry создает Registry. Nil-провайдеры пропускаются.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Name()] = p
		}
	}
	return r
}

// Get возвращает провайдера, зарегистрированного под name.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}

// Names перечисляет настроенных провайдеров.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// formatMajor печатает минорные единицы десятичной строкой, 990 -> "9.90".
func formatMajor(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

// parseMajor обратная к formatMajor.
func parseMajor(s string) (int64, error) {
	var whole, frac int64
	var fracStr string
	for i, c := range s {
		if c == '.' {
			fracStr = s[i+1:]
			break
		}
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
		whole = whole*10 + int64(c-'0')
	}
	if len(fracStr) > 2 {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	for len(fracStr) < 2 {
		fracStr += "0"
	}
	for _, c := range fracStr {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
		frac = frac*10 + int64(c-'0')
	}
	return whole*100 + frac, nil
}
