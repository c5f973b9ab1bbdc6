package paymentprovider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wechatpay-apiv3/wechatpay-go/core"
	"github.com/wechatpay-apiv3/wechatpay-go/core/notify"
	"github.com/wechatpay-apiv3/wechatpay-go/services/payments"
	"github.com/wechatpay-apiv3/wechatpay-go/services/payments/native"

	"github.com/magabrotheeeer/randomlife/internal/config"
	"github.com/magabrotheeeer/randomlife/internal/models"
)

type MockNativeAPI struct {
	mock.Mock
}

func (m *MockNativeAPI) Prepay(ctx context.Context, req native.PrepayRequest) (*native.PrepayResponse, *core.APIResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*native.PrepayResponse), nil, args.Error(2)
}

func (m *MockNativeAPI) QueryOrderByOutTradeNo(ctx context.Context, req native.QueryOrderByOutTradeNoRequest) (*payments.Transaction, *core.APIResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*payments.Transaction), nil, args.Error(2)
}

type MockNotifyParser struct {
	mock.Mock
}

func (m *MockNotifyParser) ParseNotifyRequest(ctx context.Context, request *http.Request, content interface{}) (*notify.Request, error) {
	args := m.Called(ctx, request, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notify.Request), args.Error(1)
}

var testWeChatCfg = config.WeChatPay{AppID: "wxd678efh567hg6787", MchID: "1230000109"}

func TestWeChat_CreateOrder(t *testing.T) {
	api := new(MockNativeAPI)
	p := newWeChat(testWeChatCfg, api, new(MockNotifyParser))

	api.On("Prepay", mock.Anything, mock.MatchedBy(func(req native.PrepayRequest) bool {
		return *req.OutTradeNo == "6f1c2d3e4a5b46c7a8b9c0d1e2f3a4b5" &&
			*req.Amount.Total == 990 &&
			*req.Mchid == "1230000109" &&
			*req.NotifyUrl == "https://api.randomlife.cn/api/payments/webhook/wechat"
	})).Return(&native.PrepayResponse{CodeUrl: core.String("weixin://wxpay/bizpayurl?pr=p4lpSuKzz")}, nil, nil).Once()

	order, err := p.CreateOrder(context.Background(), OrderRequest{
		OrderID:     "6f1c2d3e-4a5b-46c7-a8b9-c0d1e2f3a4b5",
		Amount:      990,
		Currency:    "CNY",
		Description: "RandomLife 会员 月度",
		NotifyURL:   "https://api.randomlife.cn/api/payments/webhook/wechat",
	})
	require.NoError(t, err)
	assert.Equal(t, "6f1c2d3e4a5b46c7a8b9c0d1e2f3a4b5", order.ProviderOrderID)
	assert.Equal(t, "weixin://wxpay/bizpayurl?pr=p4lpSuKzz", order.CodeURL)
	assert.Equal(t, order.CodeURL, order.Metadata["code_url"])
	api.AssertExpectations(t)

	api.On("Prepay", mock.Anything, mock.Anything).Return(nil, nil, errors.New("SYSTEMERROR")).Once()
	_, err = p.CreateOrder(context.Background(), OrderRequest{OrderID: "x"})
	assert.Error(t, err)
}

func TestWeChat_QueryOrder(t *testing.T) {
	tests := []struct {
		name    string
		tx      *payments.Transaction
		err     error
		want    models.PaymentStatus
		wantTx  string
		wantErr bool
	}{
		{name: "paid", tx: &payments.Transaction{TradeState: core.String("SUCCESS"), TransactionId: core.String("4200001")}, want: models.PaymentCompleted, wantTx: "4200001"},
		{name: "not paid", tx: &payments.Transaction{TradeState: core.String("NOTPAY")}, want: models.PaymentPending},
		{name: "closed", tx: &payments.Transaction{TradeState: core.String("CLOSED")}, want: models.PaymentFailed},
		{name: "refunded", tx: &payments.Transaction{TradeState: core.String("REFUND")}, want: models.PaymentRefunded},
		{name: "unknown order", err: &core.APIError{StatusCode: 404, Code: "ORDER_NOT_EXIST"}, want: models.PaymentPending},
		{name: "api failure", err: &core.APIError{StatusCode: 500, Code: "SYSTEM_ERROR"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(MockNativeAPI)
			api.On("QueryOrderByOutTradeNo", mock.Anything, mock.Anything).Return(tt.tx, nil, tt.err)
			p := newWeChat(testWeChatCfg, api, new(MockNotifyParser))

			st, err := p.QueryOrder(context.Background(), "RL1")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, st.Status)
			assert.Equal(t, tt.wantTx, st.TransactionID)
		})
	}
}

func TestWeChat_VerifyPayment(t *testing.T) {
	tests := []struct {
		name       string
		eventType  string
		resource   string
		parseErr   error
		wantErr    error
		wantStatus models.PaymentStatus
	}{
		{
			name:       "paid",
			eventType:  "TRANSACTION.SUCCESS",
			resource:   `{"out_trade_no":"RL1","transaction_id":"4200001","trade_state":"SUCCESS","amount":{"total":990}}`,
			wantStatus: models.PaymentCompleted,
		},
		{
			name:       "refund",
			eventType:  "REFUND.SUCCESS",
			resource:   `{"out_trade_no":"RL1","transaction_id":"4200001","refund_status":"SUCCESS"}`,
			wantStatus: models.PaymentRefunded,
		},
		{
			name:      "refund abnormal",
			eventType: "REFUND.ABNORMAL",
			resource:  `{"out_trade_no":"RL1","refund_status":"ABNORMAL"}`,
			wantErr:   ErrIgnoredEvent,
		},
		{
			name:     "bad signature",
			parseErr: errors.New("verify signature failed"),
			wantErr:  ErrInvalidSignature,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := new(MockNotifyParser)
			call := parser.On("ParseNotifyRequest", mock.Anything, mock.Anything, mock.Anything)
			if tt.parseErr != nil {
				call.Return(nil, tt.parseErr)
			} else {
				call.Run(func(args mock.Arguments) {
					require.NoError(t, json.Unmarshal([]byte(tt.resource), args.Get(2)))
				}).Return(&notify.Request{EventType: tt.eventType}, nil)
			}
			p := newWeChat(testWeChatCfg, new(MockNativeAPI), parser)

			req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook/wechat", strings.NewReader("{}"))
			n, err := p.VerifyPayment(context.Background(), req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, n.Status)
			assert.Equal(t, "RL1", n.ProviderOrderID)
			assert.Equal(t, "4200001", n.TransactionID)
		})
	}
}

func TestWeChat_Ack(t *testing.T) {
	rec := httptest.NewRecorder()
	newWeChat(testWeChatCfg, nil, nil).Ack(rec)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"code":"SUCCESS","message":"成功"}`, rec.Body.String())
}
