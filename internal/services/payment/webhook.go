package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/magabrotheeeer/randomlife/internal/lib/sl"
	"github.com/magabrotheeeer/randomlife/internal/models"
	"github.com/magabrotheeeer/randomlife/internal/paymentprovider"
	"github.com/magabrotheeeer/randomlife/internal/rabbitmq"
)

// HandleWebhook проверяет уведомление провайдера и применяет его.
// Провайдер возвращается, чтобы вызывающий отправил ожидаемый им ответ.
// Проверенные события без смены состояния молча принимаются.
func (s *Service) HandleWebhook(ctx context.Context, providerName string, r *http.Request) (paymentprovider.Provider, error) {
	const op = "services.payment.HandleWebhook"

	if !s.region.AllowsProvider(providerName) {
		return nil, fmt.Errorf("%s: %w: %s", op, ErrProviderNotAllowed, providerName)
	}
	provider, err := s.providers.Get(providerName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	n, err := provider.VerifyPayment(ctx, r)
	if errors.Is(err, paymentprovider.ErrIgnoredEvent) {
		s.log.Debug("ignoring provider event", slog.String("provider", providerName), sl.Err(err))
		return provider, nil
	}
	if err != nil {
		return provider, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.Confirm(ctx, n); err != nil {
		return provider, fmt.Errorf("%s: %w", op, err)
	}
	return provider, nil
}

// Confirm применяет проверенное уведомление к соответствующему платежу.
func (s *Service) Confirm(ctx context.Context, n *paymentprovider.Notification) (*models.Payment, error) {
	const op = "services.payment.Confirm"

	var (
		p   *models.Payment
		err error
	)
	if n.ProviderOrderID != "" {
		p, err = s.repo.GetPaymentByProviderOrder(ctx, n.Provider, n.ProviderOrderID)
	} else {
		p, err = s.repo.GetPayment(ctx, n.OrderID)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if n.Amount != 0 && n.Amount != p.Amount {
		s.log.Warn("notification amount mismatch",
			slog.String("payment_id", p.ID),
			slog.Int64("expected", p.Amount),
			slog.Int64("got", n.Amount))
		return nil, fmt.Errorf("%s: %w", op, ErrAmountMismatch)
	}
	updated, err := s.transition(ctx, p, n.Status, n.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

func allowed(from, to models.PaymentStatus) bool {
	switch from {
	case models.PaymentPending:
		return to == models.PaymentCompleted || to == models.PaymentFailed
	case models.PaymentCompleted:
		return to == models.PaymentRefunded
	default:
		return false
	}
}

// transition переводит p в status. Повторные, параллельные и пришедшие не по
// порядку уведомления ничего не меняют. Ошибки подписки после оплаты логируются и остаются для Sync.
func (s *Service) transition(ctx context.Context, p *models.Payment, status models.PaymentStatus, transactionID string) (*models.Payment, error) {
	log := s.log.With(slog.String("payment_id", p.ID), slog.String("provider", p.Provider))

	if !allowed(p.Status, status) {
		if p.Status != status && status != models.PaymentPending {
			log.Warn("ignoring payment transition", slog.String("from", string(p.Status)), slog.String("to", string(status)))
		}
		return p, nil
	}

	moved, err := s.repo.UpdatePaymentStatus(ctx, p.ID, p.Status, status, transactionID)
	if err != nil {
		return nil, err
	}
	if !moved {
		// другое уведомление или опрос статуса успели раньше
		log.Debug("payment already transitioned", slog.String("from", string(p.Status)), slog.String("to", string(status)))
		return s.repo.GetPayment(ctx, p.ID)
	}
	now := s.now()
	p.Status = status
	p.UpdatedAt = now
	if transactionID != "" {
		p.TransactionID = transactionID
	}
	s.metrics.Payment(p.Provider, string(status))
	log.Info("payment status changed", slog.String("status", string(status)))

	if status == models.PaymentCompleted {
		p.CompletedAt = &now
		s.activate(ctx, log, p)
	}
	return p, nil
}

func (s *Service) activate(ctx context.Context, log *slog.Logger, p *models.Payment) {
	sub, err := s.subscriptions.Apply(ctx, p.UserID, p.Plan)
	if err != nil {
		log.Error("payment completed but subscription was not applied", sl.Err(err))
		return
	}
	if s.publisher == nil {
		return
	}

	user, err := s.repo.GetUser(ctx, p.UserID)
	if err != nil {
		log.Warn("failed to load user for receipt", sl.Err(err))
		return
	}
	if user.Email == "" {
		return
	}
	err = s.publisher.Publish(ctx, rabbitmq.RoutingEmails, models.EmailMessage{
		Kind:     models.EmailPaymentReceipt,
		To:       user.Email,
		Name:     user.Name,
		Locale:   s.region.Locale(),
		Plan:     p.Plan,
		Amount:   p.Amount,
		Currency: p.Currency,
		EndDate:  sub.EndDate,
	})
	if err != nil {
		log.Warn("failed to queue receipt", sl.Err(err))
	}
}
