package paymentprovider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/wechatpay-apiv3/wechatpay-go/core"
	"github.com/wechatpay-apiv3/wechatpay-go/core/auth/verifiers"
	"github.com/wechatpay-apiv3/wechatpay-go/core/downloader"
	"github.com/wechatpay-apiv3/wechatpay-go/core/notify"
	"github.com/wechatpay-apiv3/wechatpay-go/core/option"
	"github.com/wechatpay-apiv3/wechatpay-go/services/payments"
	"github.com/wechatpay-apiv3/wechatpay-go/services/payments/native"
	"github.com/wechatpay-apiv3/wechatpay-go/utils"

	"github.com/magabrotheeeer/randomlife/internal/config"
	"github.com/magabrotheeeer/randomlife/internal/models"
)

// nativeAPI часть native.NativeApiService, которую вызывает провайдер.
type nativeAPI interface {
	Prepay(ctx context.Context, req native.PrepayRequest) (*native.PrepayResponse, *core.APIResult, error)
	QueryOrderByOutTradeNo(ctx context.Context, req native.QueryOrderByOutTradeNoRequest) (*payments.Transaction, *core.APIResult, error)
}

// notifyParser расшифровывает и проверяет тела callback'ов.
type notifyParser interface {
	ParseNotifyRequest(ctx context.Context, request *http.Request, content interface{}) (*notify.Request, error)
}

// wechatResource покрывает payload'ы callback'ов оплаты и возврата.
type wechatResource struct {
	OutTradeNo    string `json:"out_trade_no"`
	TransactionID string `json:"transaction_id"`
	TradeState    string `json:"trade_state"`
	RefundStatus  string `json:"refund_status"`
	Amount        struct {
		Total int64 `json:"total"`
	} `json:"amount"`
}

// WeChatProvider создает заказы API v3 Native (QR-код).
type WeChatProvider struct {
	appID  string
	mchID  string
	api    nativeAPI
	notify notifyParser
}

// NewWeChat загружает ключ мерчанта и запускает загрузчик сертификатов
// платформы, которыми проверяются callback'и.
func NewWeChat(ctx context.Context, cfg config.WeChatPay) (*WeChatProvider, error) {
	const op = "paymentprovider.NewWeChat"

	privateKey, err := utils.LoadPrivateKeyWithPath(cfg.MchPrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("%s: load merchant key: %w", op, err)
	}
	client, err := core.NewClient(ctx,
		option.WithWechatPayAutoAuthCipher(cfg.MchID, cfg.MchCertificateSerial, privateKey, cfg.MchAPIv3Key),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	visitor := downloader.MgrInstance().GetCertificateVisitor(cfg.MchID)
	handler := notify.NewNotifyHandler(cfg.MchAPIv3Key, verifiers.NewSHA256WithRSAVerifier(visitor))

	return newWeChat(cfg, &native.NativeApiService{Client: client}, handler), nil
}

func newWeChat(cfg config.WeChatPay, api nativeAPI, parser notifyParser) *WeChatProvider {
	return &WeChatProvider{
		appID:  cfg.AppID,
		mchID:  cfg.MchID,
		api:    api,
		notify: parser,
	}
}

// outTradeNo превращает uuid платежа в 32-символьный номер заказа мерчанта.
func outTradeNo(orderID string) string {
	return strings.ReplaceAll(orderID, "-", "")
}

func (p *WeChatProvider) Name() string { return WeChat }

func (p *WeChatProvider) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	const op = "paymentprovider.WeChat.CreateOrder"

	tradeNo := outTradeNo(req.OrderID)
	resp, _, err := p.api.Prepay(ctx, native.PrepayRequest{
		Appid:       core.String(p.appID),
		Mchid:       core.String(p.mchID),
		Description: core.String(req.Description),
		OutTradeNo:  core.String(tradeNo),
		Attach:      core.String(req.OrderID),
		NotifyUrl:   core.String(req.NotifyURL),
		Amount: &native.Amount{
			Total:    core.Int64(req.Amount),
			Currency: core.String("CNY"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp == nil || resp.CodeUrl == nil {
		return nil, fmt.Errorf("%s: prepay returned no code_url", op)
	}
	return &Order{
		ProviderOrderID: tradeNo,
		CodeURL:         *resp.CodeUrl,
		Metadata:        map[string]string{"code_url": *resp.CodeUrl},
	}, nil
}

func (p *WeChatProvider) QueryOrder(ctx context.Context, providerOrderID string) (*OrderStatus, error) {
	const op = "paymentprovider.WeChat.QueryOrder"

	tx, _, err := p.api.QueryOrderByOutTradeNo(ctx, native.QueryOrderByOutTradeNoRequest{
		OutTradeNo: core.String(providerOrderID),
		Mchid:      core.String(p.mchID),
	})
	if err != nil {
		var apiErr *core.APIError
		if errors.As(err, &apiErr) && apiErr.Code == "ORDER_NOT_EXIST" {
			return &OrderStatus{ProviderOrderID: providerOrderID, Status: models.PaymentPending}, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &OrderStatus{
		ProviderOrderID: providerOrderID,
		TransactionID:   deref(tx.TransactionId),
		Status:          wechatTradeState(deref(tx.TradeState)),
	}, nil
}

func (p *WeChatProvider) VerifyPayment(ctx context.Context, r *http.Request) (*Notification, error) {
	const op = "paymentprovider.WeChat.VerifyPayment"

	var res wechatResource
	req, err := p.notify.ParseNotifyRequest(ctx, r, &res)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidSignature, err)
	}

	n := &Notification{
		Provider:        WeChat,
		ProviderOrderID: res.OutTradeNo,
		TransactionID:   res.TransactionID,
		Amount:          res.Amount.Total,
	}
	switch {
	case strings.HasPrefix(req.EventType, "TRANSACTION."):
		n.Status = wechatTradeState(res.TradeState)
	case req.EventType == "REFUND.SUCCESS" && res.RefundStatus == "SUCCESS":
		n.Status = models.PaymentRefunded
		n.Amount = 0
	default:
		return nil, fmt.Errorf("%s: %s: %w", op, req.EventType, ErrIgnoredEvent)
	}
	if n.Status == models.PaymentPending {
		return nil, fmt.Errorf("%s: trade state %s: %w", op, res.TradeState, ErrIgnoredEvent)
	}
	return n, nil
}

// Ack пишет ответ, который WeChat Pay ждет от обработанного callback'а.
func (p *WeChatProvider) Ack(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"code":"SUCCESS","message":"成功"}`))
}

func wechatTradeState(state string) models.PaymentStatus {
	switch state {
	case "SUCCESS":
		return models.PaymentCompleted
	case "REFUND":
		return models.PaymentRefunded
	case "CLOSED", "REVOKED", "PAYERROR":
		return models.PaymentFailed
	default:
		return models.PaymentPending
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
