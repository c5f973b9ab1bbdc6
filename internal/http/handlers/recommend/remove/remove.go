// Package remove удаляет рекомендацию из истории пользователя.
package remove

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

// Service удаляет элементы истории.
type Service interface {
	Delete(ctx context.Context, userID, id string) error
}

// Handler обслуживает DELETE /api/recommend/{id}.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Удалить рекомендацию
// @Tags Recommendations
// @Produce json
// @Param id path string true "History item id"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse "Требуется авторизация"
// @Failure 404 {object} response.ErrorResponse "Не найдено"
// @Router /recommend/{id} [delete]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.recommend.remove"
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

	err := h.service.Delete(r.Context(), id.UserID, itemID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("recommendation not found"))
		return
	case err != nil:
		log.Error("failed to delete recommendation", slog.String("id", itemID), sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}
	log.Info("recommendation deleted", slog.String("id", itemID))
	render.JSON(w, r, response.OK(nil))
}
