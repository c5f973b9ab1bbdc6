package paymentprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/magabrotheeeer/randomlife/internal/config"
	"github.com/magabrotheeeer/randomlife/internal/models"
)

// PayPalProvider работает с REST API Orders v2 по токену client credentials.
type PayPalProvider struct {
	apiURL     string
	webhookID  string
	httpClient *http.Client
}

// NewPayPal создает провайдера. Токены получает и обновляет x/oauth2.
func NewPayPal(cfg config.PayPal, timeout time.Duration) *PayPalProvider {
	base := strings.TrimRight(cfg.BaseURL, "/")
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     base + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: timeout})
	httpClient := cc.Client(tokenCtx)
	httpClient.Timeout = timeout
	return &PayPalProvider{
		apiURL:     base,
		webhookID:  cfg.WebhookID,
		httpClient: httpClient,
	}
}

type paypalLink struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type paypalOrder struct {
	ID            string       `json:"id"`
	Status        string       `json:"status"`
	Links         []paypalLink `json:"links"`
	PurchaseUnits []struct {
		ReferenceID string `json:"reference_id"`
		CustomID    string `json:"custom_id"`
		Payments    struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

type paypalError struct {
	Status  int
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (e *paypalError) Error() string {
	return fmt.Sprintf("paypal: %d %s: %s", e.Status, e.Name, e.Message)
}

func (p *PayPalProvider) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, p.apiURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (p *PayPalProvider) do(req *http.Request, out any) error {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		apiErr := &paypalError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (p *PayPalProvider) Name() string { return PayPal }

func (p *PayPalProvider) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	const op = "paymentprovider.PayPal.CreateOrder"

	body := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"reference_id": req.OrderID,
			"custom_id":    req.OrderID,
			"description":  req.Description,
			"amount": map[string]string{
				"currency_code": strings.ToUpper(req.Currency),
				"value":         formatMajor(req.Amount),
			},
		}},
		"application_context": map[string]string{
			"brand_name":  "RandomLife",
			"user_action": "PAY_NOW",
			"return_url":  req.ReturnURL,
			"cancel_url":  req.CancelURL,
		},
	}
	httpReq, err := p.newRequest(ctx, http.MethodPost, "/v2/checkout/orders", body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	httpReq.Header.Set("PayPal-Request-Id", req.OrderID)

	var order paypalOrder
	if err := p.do(httpReq, &order); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	approve := ""
	for _, l := range order.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			approve = l.Href
			break
		}
	}
	if approve == "" {
		return nil, fmt.Errorf("%s: order %s has no approval link", op, order.ID)
	}
	return &Order{
		ProviderOrderID: order.ID,
		CheckoutURL:     approve,
		Metadata:        map[string]string{"checkout_url": approve},
	}, nil
}

// QueryOrder читает заказ и списывает деньги, когда покупатель подтвердил оплату.
func (p *PayPalProvider) QueryOrder(ctx context.Context, providerOrderID string) (*OrderStatus, error) {
	const op = "paymentprovider.PayPal.QueryOrder"

	req, err := p.newRequest(ctx, http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(providerOrderID), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var order paypalOrder
	if err := p.do(req, &order); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if order.Status == "APPROVED" {
		captured, err := p.capture(ctx, providerOrderID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		order = *captured
	}
	return &OrderStatus{
		ProviderOrderID: order.ID,
		TransactionID:   captureID(&order),
		Status:          paypalStatus(order.Status),
	}, nil
}

func (p *PayPalProvider) capture(ctx context.Context, orderID string) (*paypalOrder, error) {
	req, err := p.newRequest(ctx, http.MethodPost, "/v2/checkout/orders/"+url.PathEscape(orderID)+"/capture", struct{}{})
	if err != nil {
		return nil, err
	}
	req.Header.Set("PayPal-Request-Id", "capture-"+orderID)
	var order paypalOrder
	if err := p.do(req, &order); err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	return &order, nil
}

type paypalEvent struct {
	EventType string          `json:"event_type"`
	Resource  json.RawMessage `json:"resource"`
}

type paypalResource struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	CustomID          string `json:"custom_id"`
	SupplementaryData struct {
		RelatedIDs struct {
			OrderID string `json:"order_id"`
		} `json:"related_ids"`
	} `json:"supplementary_data"`
	Amount struct {
		Value string `json:"value"`
	} `json:"amount"`
}

func (p *PayPalProvider) VerifyPayment(ctx context.Context, r *http.Request) (*Notification, error) {
	const op = "paymentprovider.PayPal.VerifyPayment"

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := p.verifySignature(ctx, r.Header, body); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var ev paypalEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("%s: decode event: %w", op, err)
	}
	var res paypalResource
	if err := json.Unmarshal(ev.Resource, &res); err != nil {
		return nil, fmt.Errorf("%s: decode resource: %w", op, err)
	}

	n := &Notification{Provider: PayPal, OrderID: res.CustomID}
	switch ev.EventType {
	case "CHECKOUT.ORDER.APPROVED":
		st, err := p.QueryOrder(ctx, res.ID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if st.Status == models.PaymentPending {
			return nil, fmt.Errorf("%s: %w", op, ErrIgnoredEvent)
		}
		n.ProviderOrderID = st.ProviderOrderID
		n.TransactionID = st.TransactionID
		n.Status = st.Status
	case "PAYMENT.CAPTURE.COMPLETED":
		n.ProviderOrderID = res.SupplementaryData.RelatedIDs.OrderID
		n.TransactionID = res.ID
		n.Status = models.PaymentCompleted
		if amount, err := parseMajor(res.Amount.Value); err == nil {
			n.Amount = amount
		}
	case "PAYMENT.CAPTURE.DENIED", "PAYMENT.CAPTURE.DECLINED":
		n.ProviderOrderID = res.SupplementaryData.RelatedIDs.OrderID
		n.TransactionID = res.ID
		n.Status = models.PaymentFailed
	case "PAYMENT.CAPTURE.REFUNDED":
		n.Status = models.PaymentRefunded
	default:
		return nil, fmt.Errorf("%s: %s: %w", op, ev.EventType, ErrIgnoredEvent)
	}
	if n.ProviderOrderID == "" && n.OrderID == "" {
		return nil, fmt.Errorf("%s: %s without order reference: %w", op, ev.EventType, ErrIgnoredEvent)
	}
	return n, nil
}

// verifySignature просит PayPal проверить заголовки передачи.
func (p *PayPalProvider) verifySignature(ctx context.Context, h http.Header, body []byte) error {
	if p.webhookID == "" {
		return fmt.Errorf("%w: webhook id is not configured", ErrInvalidSignature)
	}
	payload := map[string]any{
		"auth_algo":         h.Get("PAYPAL-AUTH-ALGO"),
		"cert_url":          h.Get("PAYPAL-CERT-URL"),
		"transmission_id":   h.Get("PAYPAL-TRANSMISSION-ID"),
		"transmission_sig":  h.Get("PAYPAL-TRANSMISSION-SIG"),
		"transmission_time": h.Get("PAYPAL-TRANSMISSION-TIME"),
		"webhook_id":        p.webhookID,
		"webhook_event":     json.RawMessage(body),
	}
	req, err := p.newRequest(ctx, http.MethodPost, "/v1/notifications/verify-webhook-signature", payload)
	if err != nil {
		return err
	}
	var res struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := p.do(req, &res); err != nil {
		var apiErr *paypalError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
		}
		return err
	}
	if res.VerificationStatus != "SUCCESS" {
		return fmt.Errorf("%w: status %s", ErrInvalidSignature, res.VerificationStatus)
	}
	return nil
}

func paypalStatus(status string) models.PaymentStatus {
	switch status {
	case "COMPLETED":
		return models.PaymentCompleted
	case "VOIDED":
		return models.PaymentFailed
	default:
		return models.PaymentPending
	}
}

func captureID(order *paypalOrder) string {
	for _, pu := range order.PurchaseUnits {
		for _, c := range pu.Payments.Captures {
			if c.ID != "" {
				return c.ID
			}
		}
	}
	return ""
}
