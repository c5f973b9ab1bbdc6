// Package paymentlist возвращает историю платежей пользователя.
package paymentlist

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/randomlife/internal/auth"
	"github.com/magabrotheeeer/randomlife/internal/http/query"
	"github.com/magabrotheeeer/randomlife/internal/http/response"
	"github.com/magabrotheeeer/randomlife/internal/lib/sl"
	"github.com/magabrotheeeer/randomlife/internal/models"
)

// Service отдает списки платежей.
type Service interface {
	List(ctx context.Context, userID string, page models.Page) ([]*models.Payment, error)
}

// Handler обслуживает GET /api/payments.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список платежей
// @Tags Payments
// @Produce json
// @Param limit query int false "Page size, default 20, max 100"
// @Param offset query int false "Page offset"
// @Success 200 {object} response.Response{data=[]models.Payment}
// @Failure 401 {object} response.ErrorResponse "Требуется авторизация"
// @Router /payments [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.list"
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

	list, err := h.service.List(r.Context(), id.UserID, query.Page(r))
	if err != nil {
		log.Error("failed to list payments", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}
	if list == nil {
		list = []*models.Payment{}
	}
	render.JSON(w, r, response.OK(list))
}
