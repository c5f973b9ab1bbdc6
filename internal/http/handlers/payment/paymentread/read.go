// Package paymentread возвращает один платеж пользователя и опрашивает
// провайдера, пока платеж в pending.
package paymentread

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/randomlife/internal/auth"
	"github.com/magabrotheeeer/randomlife/internal/http/response"
	"github.com/magabrotheeeer/randomlife/internal/lib/sl"
	"github.com/magabrotheeeer/randomlife/internal/models"
	"github.com/magabrotheeeer/randomlife/internal/storage"
)

// Service читает платежи.
type Service interface {
	Get(ctx context.Context, userID, paymentID string) (*models.Payment, error)
}

// Handler обслуживает GET /api/payments/{id}.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Получить платеж
// @Description Pending-платежи перед ответом обновляются у провайдера.
// @Tags Payments
// @Produce json
// @Param id path string true "Payment id"
// @Success 200 {object} response.Response{data=models.Payment}
// @Failure 401 {object} response.ErrorResponse "Требуется авторизация"
// @Failure 404 {object} response.ErrorResponse "Не найдено"
// @Router /payments/{id} [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.read"
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
	paymentID := chi.URLParam(r, "id")

	p, err := h.service.Get(r.Context(), id.UserID, paymentID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("payment not found"))
		return
	case err != nil:
		log.Error("failed to read payment", slog.String("payment_id", paymentID), sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}
	render.JSON(w, r, response.OK(p))
}
