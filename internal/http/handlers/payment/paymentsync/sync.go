// Package paymentsync повторно применяет подписку завершенного платежа.
package paymentsync

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
	"github.com/magabrotheeeer/randomlife/internal/services/payment"
	"github.com/magabrotheeeer/randomlife/internal/storage"
)

// Service синхронизирует платежи.
type Service interface {
	Sync(ctx context.Context, userID, paymentID string) (*models.Subscription, error)
}

// Handler обслуживает POST /api/payments/{id}/sync.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Синхронизировать платеж
// @Description Проверяет, что подписка, купленная завершенным платежом, применена. Повторный вызов безопасен.
// @Tags Payments
// @Produce json
// @Param id path string true "Payment id"
// @Success 200 {object} response.Response{data=models.Subscription}
// @Failure 401 {object} response.ErrorResponse "Требуется авторизация"
// @Failure 404 {object} response.ErrorResponse "Не найдено"
// @Failure 409 {object} response.ErrorResponse "Платеж еще не завершен"
// @Router /payments/{id}/sync [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.sync"
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

	sub, err := h.service.Sync(r.Context(), id.UserID, paymentID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("payment not found"))
		return
	case errors.Is(err, payment.ErrNotCompleted):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, response.Error("payment is not completed"))
		return
	case err != nil:
		log.Error("failed to sync payment", slog.String("payment_id", paymentID), sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("payment synced", slog.String("payment_id", paymentID))
	render.JSON(w, r, response.OK(sub))
}
