package sender

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/randomlife/internal/lib/smtp"
	"github.com/magabrotheeeer/randomlife/internal/models"
)

type MockTransport struct{ mock.Mock }

func (m *MockTransport) Connect() (smtp.Client, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(smtp.Client), args.Error(1)
}

func (m *MockTransport) From() string {
	return m.Called().String(0)
}

type MockSMTPClient struct{ mock.Mock }

func (m *MockSMTPClient) Mail(from string) error { return m.Called(from).Error(0) }
func (m *MockSMTPClient) Rcpt(to string) error   { return m.Called(to).Error(0) }
func (m *MockSMTPClient) Quit() error            { return m.Called().Error(0) }
func (m *MockSMTPClient) Close() error           { return m.Called().Error(0) }

func (m *MockSMTPClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.WriteCloser), args.Error(1)
}

type bufferWriter struct {
	bytes.Buffer
	closed bool
}

func (b *bufferWriter) Close() error {
	b.closed = true
	return nil
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

var endDate = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

func TestRender(t *testing.T) {
	tests := []struct {
		name        string
		msg         models.EmailMessage
		wantSubject string
		wantBody    []string
		wantErr     bool
	}{
		{
			name: "receipt en",
			msg: models.EmailMessage{Kind: models.EmailPaymentReceipt, Name: "Ada", Locale: "en",
				Plan: models.PlanYearly, Amount: 4999, Currency: "USD", EndDate: endDate},
			wantSubject: "Your RandomLife Pro receipt",
			wantBody:    []string{"Hi Ada", "$49.99", "yearly", "2025-04-01"},
		},
		{
			name: "receipt zh",
			msg: models.EmailMessage{Kind: models.EmailPaymentReceipt, Locale: "zh",
				Plan: models.PlanMonthly, Amount: 990, Currency: "CNY", EndDate: endDate},
			wantSubject: "RandomLife 支付成功",
			wantBody:    []string{"用户", "¥9.90", "月度会员"},
		},
		{
			name:        "reminder en",
			msg:         models.EmailMessage{Kind: models.EmailExpiryReminder, Locale: "en", Plan: models.PlanMonthly, EndDate: endDate},
			wantSubject: "Your RandomLife Pro subscription ends soon",
			wantBody:    []string{"Hi there", "ends on 2025-04-01"},
		},
		{
			name:    "unknown kind",
			msg:     models.EmailMessage{Kind: "newsletter"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, body, err := Render(tt.msg)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownKind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSubject, subject)
			for _, want := range tt.wantBody {
				assert.Contains(t, body, want)
			}
		})
	}
}

func TestService_HandleMessage(t *testing.T) {
	receipt := []byte(`{"kind":"payment_receipt","to":"ada@example.com","name":"Ada","locale":"en","plan":"monthly","amount":499,"currency":"USD","end_date":"2025-04-01T00:00:00Z"}`)

	tests := []struct {
		name        string
		body        []byte
		setupMocks  func(tr *MockTransport, c *MockSMTPClient, w *bufferWriter)
		wantErr     bool
		wantRequeue bool
	}{
		{
			name: "sent",
			body: receipt,
			setupMocks: func(tr *MockTransport, c *MockSMTPClient, w *bufferWriter) {
				tr.On("From").Return("RandomLife <noreply@randomlife.app>")
				tr.On("Connect").Return(c, nil).Once()
				c.On("Mail", "noreply@randomlife.app").Return(nil).Once()
				c.On("Rcpt", "ada@example.com").Return(nil).Once()
				c.On("Data").Return(w, nil).Once()
				c.On("Quit").Return(nil).Once()
				c.On("Close").Return(nil).Once()
			},
		},
		{
			name:       "invalid json is dropped",
			body:       []byte(`invalid json`),
			setupMocks: func(*MockTransport, *MockSMTPClient, *bufferWriter) {},
			wantErr:    true,
		},
		{
			name:       "unknown kind is dropped",
			body:       []byte(`{"kind":"newsletter","to":"ada@example.com"}`),
			setupMocks: func(*MockTransport, *MockSMTPClient, *bufferWriter) {},
			wantErr:    true,
		},
		{
			name: "smtp down is requeued",
			body: receipt,
			setupMocks: func(tr *MockTransport, _ *MockSMTPClient, _ *bufferWriter) {
				tr.On("From").Return("noreply@randomlife.app")
				tr.On("Connect").Return(nil, errors.New("connection refused")).Once()
			},
			wantErr:     true,
			wantRequeue: true,
		},
		{
			name: "rejected recipient is requeued",
			body: receipt,
			setupMocks: func(tr *MockTransport, c *MockSMTPClient, _ *bufferWriter) {
				tr.On("From").Return("noreply@randomlife.app")
				tr.On("Connect").Return(c, nil).Once()
				c.On("Mail", "noreply@randomlife.app").Return(nil).Once()
				c.On("Rcpt", "ada@example.com").Return(errors.New("550 mailbox unavailable")).Once()
				c.On("Close").Return(nil).Once()
			},
			wantErr:     true,
			wantRequeue: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, c, w := new(MockTransport), new(MockSMTPClient), &bufferWriter{}
			tt.setupMocks(tr, c, w)

			requeue, err := New(tr, newNoopLogger()).HandleMessage(context.Background(), tt.body)
			assert.Equal(t, tt.wantRequeue, requeue)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, w.closed)
			assert.Contains(t, w.String(), "To: <ada@example.com>")
			assert.Contains(t, w.String(), "Subject: Your RandomLife Pro receipt")
			tr.AssertExpectations(t)
			c.AssertExpectations(t)
		})
	}
}
