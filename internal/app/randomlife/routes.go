package randomlife

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/randomlife/internal/auth"
	"github.com/magabrotheeeer/randomlife/internal/http/handlers/admin"
	"github.com/magabrotheeeer/randomlife/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/randomlife/internal/http/handlers/auth/me"
	"github.com/magabrotheeeer/randomlife/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/randomlife/internal/http/handlers/auth/wechat"
	"github.com/magabrotheeeer/randomlife/internal/http/handlers/feedback"
	"github.com/magabrotheeeer/randomlife/internal/http/handlers/health"
	"github.com/magabrotheeeer/randomlife/internal/http/handlers/onboarding"
	"github.com/magabrotheeeer/randomlife/internal/http/handlers/payment/paymentcreate"
	"github.com/magabrotheeeer/randomlife/internal/http/handlers/payment/paymentlist"
	"github.com/magabrotheeeer/randomlife/internal/http/handlers/payment/paymentread"
	"github.com/magabrotheeeer/randomlife/internal/http/handlers/payment/paymentsync"
	"github.com/magabrotheeeer/randomlife/internal/http/handlers/payment/paymentwebhook"
	"github.com/magabrotheeeer/randomlife/internal/http/handlers/profile"
	"github.com/magabrotheeeer/randomlife/internal/http/handlers/recommend/click"
	"github.com/magabrotheeeer/randomlife/internal/http/handlers/recommend/generate"
	"github.com/magabrotheeeer/randomlife/internal/http/handlers/recommend/history"
	"github.com/magabrotheeeer/randomlife/internal/http/handlers/recommend/remove"
	"github.com/magabrotheeeer/randomlife/internal/http/handlers/recommend/save"
	"github.com/magabrotheeeer/randomlife/internal/http/handlers/subscription"
	"github.com/magabrotheeeer/randomlife/internal/http/middlewarectx"
	"github.com/magabrotheeeer/randomlife/internal/region"
	adminservice "github.com/magabrotheeeer/randomlife/internal/services/admin"
	authservice "github.com/magabrotheeeer/randomlife/internal/services/auth"
	paymentservice "github.com/magabrotheeeer/randomlife/internal/services/payment"
	"github.com/magabrotheeeer/randomlife/internal/services/recommendation"
	subservice "github.com/magabrotheeeer/randomlife/internal/services/subscription"

	// Регистрирует OpenAPI-описание, отдаваемое на /docs.
	_ "github.com/magabrotheeeer/randomlife/docs"
)

// Deps все, что нужно роутеру.
type Deps struct {
	Region          region.Region
	DB              health.Pinger
	Feedback        feedback.Store
	Verifier        auth.Verifier
	Admins          middlewarectx.AdminList
	Limiter         *middlewarectx.IPLimiter
	Auth            *authservice.Service
	Recommendations *recommendation.Service
	Subscriptions   *subservice.Service
	Payments        *paymentservice.Service
	Admin           *adminservice.Service
}

// RegisterRoutes монтирует API на r.
func RegisterRoutes(r chi.Router, logger *slog.Logger, d Deps) {
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Route("/api", func(r chi.Router) {
		// мониторинг и платежные провайдеры не ограничиваются по IP
		r.Get("/health", health.New(logger, d.DB, d.Region).ServeHTTP)
		r.Post("/payments/webhook/{provider}", paymentwebhook.New(logger, d.Payments).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(d.Limiter, logger))

			// вход для CN, в INTL сервис отвечает 409
			r.Post("/auth/wechat", wechat.New(logger, d.Auth).ServeHTTP)
			r.Post("/auth/register", register.New(logger, d.Auth).ServeHTTP)
			r.Post("/auth/login", login.New(logger, d.Auth).ServeHTTP)

			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.OptionalAuth(d.Verifier, logger))
				r.Get("/recommend", generate.New(logger, d.Recommendations, d.Region.Locale()).ServeHTTP)
				r.Post("/feedback", feedback.New(logger, d.Feedback).ServeHTTP)
			})

			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.Authenticate(d.Verifier, logger))

				r.Get("/auth/me", me.New(logger, d.Auth).ServeHTTP)
				r.Put("/profile", profile.New(logger, d.Auth).ServeHTTP)
				r.Post("/onboarding", onboarding.New(logger, d.Auth).ServeHTTP)

				r.Get("/recommend/history", history.New(logger, d.Recommendations).ServeHTTP)
				r.Post("/recommend/{id}/click", click.New(logger, d.Recommendations).ServeHTTP)
				r.Put("/recommend/{id}/save", save.New(logger, d.Recommendations).ServeHTTP)
				r.Delete("/recommend/{id}", remove.New(logger, d.Recommendations).ServeHTTP)

				r.Get("/subscription", subscription.New(logger, d.Subscriptions).ServeHTTP)

				r.Post("/payments", paymentcreate.New(logger, d.Payments).ServeHTTP)
				r.Get("/payments", paymentlist.New(logger, d.Payments).ServeHTTP)
				r.Get("/payments/{id}", paymentread.New(logger, d.Payments).ServeHTTP)
				r.Post("/payments/{id}/sync", paymentsync.New(logger, d.Payments).ServeHTTP)

				r.Route("/admin", func(r chi.Router) {
					r.Use(middlewarectx.RequireAdmin(d.Admins, logger))
					h := admin.New(logger, d.Admin)
					r.Get("/users", h.Users)
					r.Get("/payments", h.Payments)
					r.Get("/recommendations", h.Recommendations)
					r.Get("/stats", h.Stats)
				})
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
