// Package subscription отдает фактический статус подписки пользователя.
package subscription

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/randomlife/internal/auth"
	"github.com/magabrotheeeer/randomlife/internal/http/response"
	"github.com/magabrotheeeer/randomlife/internal/lib/sl"
	subservice "github.com/magabrotheeeer/randomlife/internal/services/subscription"
)

// Service вычисляет статус.
type Service interface {
	Status(ctx context.Context, userID string) (*subservice.Status, error)
}

// Handler обслуживает GET /api/subscription.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Статус подписки
// @Tags Subscription
// @Produce json
// @Success 200 {object} response.Response{data=subservice.Status}
// @Failure 401 {object} response.ErrorResponse "Требуется авторизация"
// @Router /subscription [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	status, err := h.service.Status(r.Context(), id.UserID)
	if err != nil {
		log.Error("failed to get subscription status", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}
	render.JSON(w, r, response.OK(status))
}
