package paymentprovider

import (
	"context"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/smartwalle/alipay/v3"

	"github.com/magabrotheeeer/randomlife/internal/config"
	"github.com/magabrotheeeer/randomlife/internal/models"
)

const (
	alipayCodeSuccess   = "10000"
	alipayTradeNotExist = "ACQ.TRADE_NOT_EXIST"
)

var shanghai = time.FixedZone("CST", 8*60*60)

// AlipayProvider обертка над клиентом SDK open platform. Запросы подписываются
// ключом приложения, ответы проверяются публичным ключом Alipay.
type AlipayProvider struct {
	appID  string
	client *alipay.Client
}

// NewAlipay создает клиент SDK. Ключи принимаются в PEM или голом base64.
// Непустой Gateway переопределяет адрес шлюза окружения по умолчанию.
func NewAlipay(cfg config.Alipay, timeout time.Duration) (*AlipayProvider, error) {
	const op = "paymentprovider.NewAlipay"

	opts := []alipay.OptionFunc{
		alipay.WithTimeLocation(shanghai),
		alipay.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if cfg.Gateway != "" {
		if cfg.Production {
			opts = append(opts, alipay.WithProductionGateway(cfg.Gateway))
		} else {
			opts = append(opts, alipay.WithSandboxGateway(cfg.Gateway))
		}
	}

	client, err := alipay.New(cfg.AppID, bareKey(cfg.PrivateKey), cfg.Production, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: app private key: %w", op, err)
	}
	if err := client.LoadAliPayPublicKey(bareKey(cfg.AlipayPublicKey)); err != nil {
		return nil, fmt.Errorf("%s: alipay public key: %w", op, err)
	}
	return &AlipayProvider{appID: cfg.AppID, client: client}, nil
}

func (p *AlipayProvider) Name() string { return Alipay }

func (p *AlipayProvider) CreateOrder(_ context.Context, req OrderRequest) (*Order, error) {
	const op = "paymentprovider.Alipay.CreateOrder"

	tradeNo := outTradeNo(req.OrderID)
	var pay alipay.TradePagePay
	pay.NotifyURL = req.NotifyURL
	pay.ReturnURL = req.ReturnURL
	pay.Subject = req.Description
	pay.OutTradeNo = tradeNo
	pay.TotalAmount = formatMajor(req.Amount)
	pay.ProductCode = "FAST_INSTANT_TRADE_PAY"

	u, err := p.client.TradePagePay(pay)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	checkout := u.String()
	return &Order{
		ProviderOrderID: tradeNo,
		CheckoutURL:     checkout,
		Metadata:        map[string]string{"checkout_url": checkout},
	}, nil
}

func (p *AlipayProvider) QueryOrder(ctx context.Context, providerOrderID string) (*OrderStatus, error) {
	const op = "paymentprovider.Alipay.QueryOrder"

	rsp, err := p.client.TradeQuery(ctx, alipay.TradeQuery{OutTradeNo: providerOrderID})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if string(rsp.Code) != alipayCodeSuccess {
		if rsp.SubCode == alipayTradeNotExist {
			return &OrderStatus{ProviderOrderID: providerOrderID, Status: models.PaymentPending}, nil
		}
		return nil, fmt.Errorf("%s: %s %s %s", op, rsp.Code, rsp.SubCode, rsp.Msg)
	}
	return &OrderStatus{
		ProviderOrderID: providerOrderID,
		TransactionID:   rsp.TradeNo,
		Status:          alipayTradeStatus(string(rsp.TradeStatus)),
	}, nil
}

func (p *AlipayProvider) VerifyPayment(ctx context.Context, r *http.Request) (*Notification, error) {
	const op = "paymentprovider.Alipay.VerifyPayment"

	r.Body = http.MaxBytesReader(nil, r.Body, maxWebhookBytes)
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	form := r.PostForm
	notification, err := p.client.DecodeNotification(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidSignature, err)
	}
	if notification.AppId != p.appID {
		return nil, fmt.Errorf("%s: %w: app_id mismatch", op, ErrInvalidSignature)
	}

	n := &Notification{
		Provider:        Alipay,
		ProviderOrderID: notification.OutTradeNo,
		TransactionID:   notification.TradeNo,
		Status:          alipayTradeStatus(string(notification.TradeStatus)),
	}
	if form.Get("refund_fee") != "" && form.Get("gmt_refund") != "" {
		n.Status = models.PaymentRefunded
	} else if amount, err := parseMajor(notification.TotalAmount); err == nil {
		n.Amount = amount
	}
	if n.Status == models.PaymentPending {
		return nil, fmt.Errorf("%s: %s: %w", op, notification.TradeStatus, ErrIgnoredEvent)
	}
	return n, nil
}

// Ack пишет текстовый ответ, который ждет Alipay.
func (p *AlipayProvider) Ack(w http.ResponseWriter) {
	alipay.ACKNotification(w)
}

func alipayTradeStatus(status string) models.PaymentStatus {
	switch status {
	case "TRADE_SUCCESS", "TRADE_FINISHED":
		return models.PaymentCompleted
	case "TRADE_CLOSED":
		return models.PaymentFailed
	default:
		return models.PaymentPending
	}
}

// bareKey снимает PEM-обертку, SDK ждет только base64-тело.
func bareKey(key string) string {
	key = strings.TrimSpace(key)
	if !strings.HasPrefix(key, "-----BEGIN") {
		return key
	}
	block, _ := pem.Decode([]byte(key))
	if block == nil {
		return key
	}
	return base64.StdEncoding.EncodeToString(block.Bytes)
}
