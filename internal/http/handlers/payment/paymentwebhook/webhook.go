// Package paymentwebhook принимает асинхронные уведомления об оплате.
package paymentwebhook

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/randomlife/internal/http/response"
	"github.com/magabrotheeeer/randomlife/internal/lib/sl"
	"github.com/magabrotheeeer/randomlife/internal/paymentprovider"
	"github.com/magabrotheeeer/randomlife/internal/services/payment"
	"github.com/magabrotheeeer/randomlife/internal/storage"
)

// Service применяет уведомления провайдеров.
type Service interface {
	HandleWebhook(ctx context.Context, providerName string, r *http.Request) (paymentprovider.Provider, error)
}

// Handler обслуживает POST /api/payments/webhook/{provider}.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Вебхук платежного провайдера
// @Description Проверяет и применяет уведомление провайдера. При ошибке отвечает не 2xx, чтобы провайдер повторил.
// @Tags Payments
// @Accept json
// @Produce json
// @Param provider path string true "Provider" Enums(stripe, paypal, wechat, alipay)
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 404 {object} response.ErrorResponse "Не найдено"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /payments/webhook/{provider} [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"
	name := chi.URLParam(r, "provider")
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("provider", name),
	)

	provider, err := h.service.HandleWebhook(r.Context(), name, r)
	switch {
	case errors.Is(err, payment.ErrProviderNotAllowed), errors.Is(err, paymentprovider.ErrUnknownProvider):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("unknown payment provider"))
		return
	case errors.Is(err, paymentprovider.ErrInvalidSignature):
		log.Warn("rejected notification", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid signature"))
		return
	case errors.Is(err, payment.ErrAmountMismatch):
		log.Error("notification amount mismatch", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("amount mismatch"))
		return
	case errors.Is(err, storage.ErrNotFound):
		log.Warn("notification for unknown payment", sl.Err(err))
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("payment not found"))
		return
	case err != nil:
		log.Error("failed to handle notification", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	if ack, ok := provider.(paymentprovider.Acknowledger); ok {
		ack.Ack(w)
		return
	}
	render.JSON(w, r, response.OK(nil))
}
