// Package middlewarectx содержит HTTP middleware, которые определяют
// вызывающего и защищают маршруты: bearer-аутентификация, проверка админа
// и ограничение запросов по IP.
package middlewarectx

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/randomlife/internal/auth"
	"github.com/magabrotheeeer/randomlife/internal/http/response"
	"github.com/magabrotheeeer/randomlife/internal/lib/sl"
	"github.com/magabrotheeeer/randomlife/internal/models"
)

// AdminList проверяет, принадлежит ли email администратору из конфига.
type AdminList interface {
	IsAdminEmail(email string) bool
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

// Authenticate отклоняет запросы без валидного bearer-токена и кладет
// auth.Identity вызывающего в контекст запроса.
func Authenticate(verifier auth.Verifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.Authenticate"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token, ok := bearerToken(r)
			if !ok {
				log.Warn("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}
			id, err := verifier.Identify(token)
			if err != nil {
				log.Warn("invalid or expired token", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// OptionalAuth добавляет identity при валидном токене и пропускает
// анонимные запросы. Невалидный токен считается анонимом.
func OptionalAuth(verifier auth.Verifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			id, err := verifier.Identify(token)
			if err != nil {
				log.Debug("ignoring invalid optional token",
					slog.String("request_id", middleware.GetReqID(r.Context())), sl.Err(err))
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// RequireAdmin должен идти после Authenticate. Пропускает пользователей
// с ролью admin или с email из списка администраторов.
func RequireAdmin(admins AdminList, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.IdentityFrom(r.Context())
			if !ok {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("unauthorized"))
				return
			}
			if id.Role != models.RoleAdmin && !admins.IsAdminEmail(id.Email) {
				log.Warn("admin access denied",
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("user_id", id.UserID))
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
