package me

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/randomlife/internal/auth"
	"github.com/magabrotheeeer/randomlife/internal/models"
	"github.com/magabrotheeeer/randomlife/internal/storage"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Me(ctx context.Context, id auth.Identity) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestHandler_ServeHTTP(t *testing.T) {
	caller := auth.Identity{UserID: "u1", Email: "ann@example.com", Provider: "google"}

	tests := []struct {
		name           string
		identity       *auth.Identity
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:     "found",
			identity: &caller,
			setupMock: func(m *MockService) {
				m.On("Me", mock.Anything, caller).Return(&models.User{ID: "u1", Email: "ann@example.com", Tier: models.TierFree}, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "no identity",
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"success":false,"error":"unauthorized"}`,
		},
		{
			name:     "cn user deleted",
			identity: &caller,
			setupMock: func(m *MockService) {
				m.On("Me", mock.Anything, caller).Return(nil, storage.ErrNotFound).Once()
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"success":false,"error":"user not found"}`,
		},
		{
			name:     "storage error",
			identity: &caller,
			setupMock: func(m *MockService) {
				m.On("Me", mock.Anything, caller).Return(nil, errors.New("boom")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"success":false,"error":"internal error"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tt.identity != nil {
				req = req.WithContext(auth.WithIdentity(req.Context(), *tt.identity))
			}
			rec := httptest.NewRecorder()
			New(newNoopLogger(), svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, rec.Body.String())
			} else {
				assert.Contains(t, rec.Body.String(), `"id":"u1"`)
			}
			svc.AssertExpectations(t)
		})
	}
}
