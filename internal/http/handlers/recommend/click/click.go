// Package click записывает, что пользователь открыл рекомендацию.
package click

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
	"github.com/magabrotheeeer/randomlife/internal/storage"
)

// Service записывает клики.
type Service interface {
	Click(ctx context.Context, userID, id string) error
}

// Handler обслуживает POST /api/recommend/{id}/click.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Записать клик
// @Description Отмечает клик и обучает предпочтения пользователя по тегам элемента.
// @Tags Recommendations
// @Produce json
// @Param id path string true "History item id"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse "Требуется авторизация"
// @Failure 404 {object} response.ErrorResponse "Не найдено"
// @Router /recommend/{id}/click [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.recommend.click"
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
	itemID := chi.URLParam(r, "id")

	err := h.service.Click(r.Context(), id.UserID, itemID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("recommendation not found"))
		return
	case err != nil:
		log.Error("failed to record click", slog.String("id", itemID), sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}
	render.JSON(w, r, response.OK(nil))
}
