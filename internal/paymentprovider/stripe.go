package paymentprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/magabrotheeeer/randomlife/internal/config"
	"github.com/magabrotheeeer/randomlife/internal/models"
)

const maxWebhookBytes = int64(65536)

// StripeProvider создает разовые Checkout Sessions.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
}

// NewStripe создает провайдера на стандартных backend'ах Stripe.
func NewStripe(cfg config.Stripe) *StripeProvider {
	return NewStripeWithBackends(cfg, nil)
}

// NewStripeWithBackends позволяет направить клиент на другой API-хост.
func NewStripeWithBackends(cfg config.Stripe, backends *stripe.Backends) *StripeProvider {
	return &StripeProvider{
		api:           client.New(cfg.SecretKey, backends),
		webhookSecret: cfg.WebhookSecret,
	}
}

func (p *StripeProvider) Name() string { return Stripe }

func (p *StripeProvider) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	const op = "paymentprovider.Stripe.CreateOrder"

	successURL := req.ReturnURL
	if strings.Contains(successURL, "?") {
		successURL += "&session_id={CHECKOUT_SESSION_ID}"
	} else {
		successURL += "?session_id={CHECKOUT_SESSION_ID}"
	}
	meta := map[string]string{
		"order_id": req.OrderID,
		"user_id":  req.UserID,
		"plan":     string(req.Plan),
	}
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(req.OrderID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(req.Currency)),
					UnitAmount: stripe.Int64(req.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: meta,
		},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	params.Metadata = meta
	params.Context = ctx

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Order{
		ProviderOrderID: sess.ID,
		CheckoutURL:     sess.URL,
		Metadata:        map[string]string{"checkout_url": sess.URL},
	}, nil
}

func (p *StripeProvider) QueryOrder(ctx context.Context, providerOrderID string) (*OrderStatus, error) {
	const op = "paymentprovider.Stripe.QueryOrder"
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := p.api.CheckoutSessions.Get(providerOrderID, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &OrderStatus{
		ProviderOrderID: sess.ID,
		TransactionID:   paymentIntentID(sess),
		Status:          sessionStatus(sess),
	}, nil
}

func (p *StripeProvider) VerifyPayment(_ context.Context, r *http.Request) (*Notification, error) {
	const op = "paymentprovider.Stripe.VerifyPayment"

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	event, err := webhook.ConstructEventWithOptions(
		body,
		r.Header.Get("Stripe-Signature"),
		p.webhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidSignature, err)
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded",
		"checkout.session.async_payment_failed", "checkout.session.expired":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("%s: decode session: %w", op, err)
		}
		status := sessionStatus(&sess)
		if event.Type == "checkout.session.async_payment_failed" {
			status = models.PaymentFailed
		}
		if status == models.PaymentPending {
			return nil, fmt.Errorf("%s: %s: %w", op, event.Type, ErrIgnoredEvent)
		}
		return &Notification{
			Provider:        Stripe,
			ProviderOrderID: sess.ID,
			OrderID:         sess.ClientReferenceID,
			TransactionID:   paymentIntentID(&sess),
			Status:          status,
			Amount:          sess.AmountTotal,
		}, nil
	case "charge.refunded":
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return nil, fmt.Errorf("%s: decode charge: %w", op, err)
		}
		if !ch.Refunded || ch.Metadata["order_id"] == "" {
			return nil, fmt.Errorf("%s: partial or foreign refund: %w", op, ErrIgnoredEvent)
		}
		return &Notification{
			Provider:      Stripe,
			OrderID:       ch.Metadata["order_id"],
			TransactionID: chargePaymentIntent(&ch),
			Status:        models.PaymentRefunded,
		}, nil
	default:
		return nil, fmt.Errorf("%s: %s: %w", op, event.Type, ErrIgnoredEvent)
	}
}

func sessionStatus(sess *stripe.CheckoutSession) models.PaymentStatus {
	switch {
	case sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid:
		return models.PaymentCompleted
	case sess.Status == stripe.CheckoutSessionStatusExpired:
		return models.PaymentFailed
	default:
		return models.PaymentPending
	}
}

func paymentIntentID(sess *stripe.CheckoutSession) string {
	if sess.PaymentIntent == nil {
		return ""
	}
	return sess.PaymentIntent.ID
}

func chargePaymentIntent(ch *stripe.Charge) string {
	if ch.PaymentIntent == nil {
		return ch.ID
	}
	return ch.PaymentIntent.ID
}
