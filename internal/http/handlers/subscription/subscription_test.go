package subscription

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/randomlife/internal/auth"
	"github.com/magabrotheeeer/randomlife/internal/models"
	subservice "github.com/magabrotheeeer/randomlife/internal/services/subscription"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Status(ctx context.Context, userID string) (*subservice.Status, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subservice.Status), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestHandler_ServeHTTP(t *testing.T) {
	end := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "active",
			setupMock: func(m *MockService) {
				m.On("Status", mock.Anything, "u1").Return(&subservice.Status{
					Status: models.SubscriptionActive, Tier: models.TierPro, Plan: models.PlanMonthly, EndDate: &end, DaysLeft: 12,
				}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"success":true,"data":{"status":"active","tier":"pro","plan":"monthly","end_date":"2025-04-01T00:00:00Z","days_left":12}}`,
		},
		{
			name: "none",
			setupMock: func(m *MockService) {
				m.On("Status", mock.Anything, "u1").Return(&subservice.Status{Status: models.SubscriptionNone, Tier: models.TierFree}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"success":true,"data":{"status":"none","tier":"free","days_left":0}}`,
		},
		{
			name: "error",
			setupMock: func(m *MockService) {
				m.On("Status", mock.Anything, "u1").Return(nil, errors.New("boom")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"success":false,"error":"internal error"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodGet, "/api/subscription", nil)
			req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: "u1"}))
			rec := httptest.NewRecorder()
			New(newNoopLogger(), svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.JSONEq(t, tt.expectedBody, rec.Body.String())
			svc.AssertExpectations(t)
		})
	}
}
