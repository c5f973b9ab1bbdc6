package generate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/randomlife/internal/auth"
	"github.com/magabrotheeeer/randomlife/internal/enhancer"
	"github.com/magabrotheeeer/randomlife/internal/models"
	"github.com/magabrotheeeer/randomlife/internal/services/recommendation"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Generate(ctx context.Context, req recommendation.Request) (*recommendation.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recommendation.Result), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestHandler_ServeHTTP(t *testing.T) {
	result := &recommendation.Result{
		Items:     []models.Recommendation{{Title: "Nashville hot chicken", Platform: "DoorDash"}},
		Source:    "ai",
		Remaining: 9,
	}

	tests := []struct {
		name           string
		url            string
		userID         string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "signed in android",
			url:    "/api/recommend?category=Food&client=android&count=6",
			userID: "u1",
			setupMock: func(m *MockService) {
				m.On("Generate", mock.Anything, recommendation.Request{
					UserID: "u1", Category: models.CategoryFood, Locale: "en", Client: enhancer.ClientAndroid, Count: 6,
				}).Return(result, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "anonymous defaults",
			url:  "/api/recommend?category=travel&client=toaster&locale=zh-CN",
			setupMock: func(m *MockService) {
				m.On("Generate", mock.Anything, recommendation.Request{
					Category: models.CategoryTravel, Locale: "zh", Client: enhancer.ClientWeb,
				}).Return(result, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "unknown category",
			url:  "/api/recommend?category=gardening",
			setupMock: func(m *MockService) {
				m.On("Generate", mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("op: %w", recommendation.ErrInvalidCategory)).Once()
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"success":false,"error":"unknown category"}`,
		},
		{
			name:   "quota exhausted",
			url:    "/api/recommend?category=food",
			userID: "u1",
			setupMock: func(m *MockService) {
				m.On("Generate", mock.Anything, mock.Anything).Return(nil, recommendation.ErrQuotaExceeded).Once()
			},
			expectedStatus: http.StatusTooManyRequests,
			expectedBody:   `{"success":false,"error":"daily recommendation limit reached, upgrade to pro for unlimited recommendations"}`,
		},
		{
			name: "unexpected error",
			url:  "/api/recommend?category=food",
			setupMock: func(m *MockService) {
				m.On("Generate", mock.Anything, mock.Anything).Return(nil, errors.New("boom")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"success":false,"error":"internal error"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.userID != "" {
				req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: tt.userID}))
			}
			rec := httptest.NewRecorder()
			New(newNoopLogger(), svc, "en").ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, rec.Body.String())
			} else {
				assert.Contains(t, rec.Body.String(), `"remaining":9`)
			}
			svc.AssertExpectations(t)
		})
	}
}
