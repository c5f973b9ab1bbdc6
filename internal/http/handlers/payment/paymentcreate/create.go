// Package paymentcreate начинает оплату у одного из платежных провайдеров региона.
package paymentcreate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/randomlife/internal/auth"
	"github.com/magabrotheeeer/randomlife/internal/http/response"
	"github.com/magabrotheeeer/randomlife/internal/lib/sl"
	"github.com/magabrotheeeer/randomlife/internal/models"
	"github.com/magabrotheeeer/randomlife/internal/paymentprovider"
	"github.com/magabrotheeeer/randomlife/internal/services/payment"
)

// Request выбирает провайдера и план.
type Request struct {
	Provider string `json:"provider" validate:"required,oneof=stripe paypal wechat alipay"`
	Plan     string `json:"plan" validate:"required,oneof=monthly yearly"`
}

// Service создает оплаты.
type Service interface {
	CreateCheckout(ctx context.Context, req payment.Checkout) (*models.Payment, error)
}

// Handler обслуживает POST /api/payments.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать оплату
// @Description Возвращает pending-платеж. metadata.checkout_url адрес hosted checkout, metadata.code_url содержимое QR-кода WeChat.
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body Request true "Provider and plan"
// @Success 201 {object} response.Response{data=models.Payment}
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 401 {object} response.ErrorResponse "Требуется авторизация"
// @Failure 409 {object} response.ErrorResponse "Провайдер недоступен в этом регионе"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /payments [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.create"
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

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	p, err := h.service.CreateCheckout(r.Context(), payment.Checkout{
		UserID:   id.UserID,
		Email:    id.Email,
		Provider: req.Provider,
		Plan:     models.PlanType(req.Plan),
	})
	switch {
	case errors.Is(err, payment.ErrProviderNotAllowed), errors.Is(err, paymentprovider.ErrUnknownProvider):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, response.Error("payment provider is not available in this region"))
		return
	case errors.Is(err, payment.ErrInvalidPlan):
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error("unknown plan"))
		return
	case err != nil:
		log.Error("failed to create checkout", slog.String("provider", req.Provider), sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("payment provider error"))
		return
	}

	log.Info("checkout created", slog.String("payment_id", p.ID), slog.String("provider", p.Provider))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OK(p))
}
