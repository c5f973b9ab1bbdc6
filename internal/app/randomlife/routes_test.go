package randomlife

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/randomlife/internal/auth"
	"github.com/magabrotheeeer/randomlife/internal/config"
	"github.com/magabrotheeeer/randomlife/internal/http/middlewarectx"
	"github.com/magabrotheeeer/randomlife/internal/paymentprovider"
	"github.com/magabrotheeeer/randomlife/internal/region"
	paymentservice "github.com/magabrotheeeer/randomlife/internal/services/payment"
)

type stubDB struct{}

func (stubDB) Name() string                   { return "supabase" }
func (stubDB) Ping(ctx context.Context) error { return nil }

type stubVerifier map[string]auth.Identity

func (v stubVerifier) Identify(token string) (auth.Identity, error) {
	id, ok := v[token]
	if !ok {
		return auth.Identity{}, errors.New("invalid token")
	}
	return id, nil
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newRouter(burst int) http.Handler {
	r := chi.NewRouter()
	RegisterRoutes(r, newNoopLogger(), Deps{
		Region: region.INTL,
		DB:     stubDB{},
		Verifier: stubVerifier{
			"user-token": {UserID: "u1", Email: "ada@example.com"},
		},
		Admins:  config.Admin{Emails: []string{"ops@randomlife.app"}},
		Limiter: middlewarectx.NewIPLimiter(100, burst, time.Minute),
		Payments: paymentservice.New(paymentservice.Deps{
			Providers: paymentprovider.NewRegistry(),
		}, region.INTL, "https://api.randomlife.app", newNoopLogger()),
	})
	return r
}

func TestRegisterRoutes(t *testing.T) {
	router := newRouter(50)

	tests := []struct {
		name           string
		method         string
		path           string
		token          string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "health",
			method:         http.MethodGet,
			path:           "/api/health",
			expectedStatus: http.StatusOK,
			expectedBody:   `"adapter":"supabase"`,
		},
		{
			name:           "me requires a token",
			method:         http.MethodGet,
			path:           "/api/auth/me",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "payments require a valid token",
			method:         http.MethodGet,
			path:           "/api/payments",
			token:          "forged",
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "invalid or expired token",
		},
		{
			name:           "admin rejects regular users",
			method:         http.MethodGet,
			path:           "/api/admin/stats",
			token:          "user-token",
			expectedStatus: http.StatusForbidden,
			expectedBody:   "admin access required",
		},
		{
			name:           "unknown route",
			method:         http.MethodGet,
			path:           "/api/nope",
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "metrics",
			method:         http.MethodGet,
			path:           "/metrics",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "openapi document",
			method:         http.MethodGet,
			path:           "/docs/doc.json",
			expectedStatus: http.StatusOK,
			expectedBody:   "RandomLife API",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedBody != "" {
				assert.Contains(t, rec.Body.String(), tt.expectedBody)
			}
		})
	}
}

func TestRegisterRoutes_RateLimit(t *testing.T) {
	router := newRouter(1)

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	metrics := httptest.NewRecorder()
	router.ServeHTTP(metrics, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, metrics.Code, "metrics are not rate limited")
}

func TestRegisterRoutes_HealthAndWebhookBypassRateLimit(t *testing.T) {
	router := newRouter(1)

	// исчерпываем бакет адреса
	drain := httptest.NewRecorder()
	router.ServeHTTP(drain, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	limited := httptest.NewRecorder()
	router.ServeHTTP(limited, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)

	for i := 0; i < 3; i++ {
		health := httptest.NewRecorder()
		router.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		assert.Equal(t, http.StatusOK, health.Code)

		webhook := httptest.NewRecorder()
		router.ServeHTTP(webhook, httptest.NewRequest(http.MethodPost, "/api/payments/webhook/stripe", nil))
		assert.Equal(t, http.StatusNotFound, webhook.Code, "unconfigured provider, not 429")
	}
}
