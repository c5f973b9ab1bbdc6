// Package save добавляет рекомендацию в закладки или убирает ее оттуда.
package save

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/randomlife/internal/auth"
	"github.com/magabrotheeeer/randomlife/internal/http/response"
	"github.com/magabrotheeeer/randomlife/internal/lib/sl"
	"github.com/magabrotheeeer/randomlife/internal/storage"
)

// Request задает флаг saved.
type Request struct {
	Saved *bool `json:"saved" validate:"required"`
}

// Service меняет флаг saved.
type Service interface {
	Save(ctx context.Context, userID, id string, saved bool) error
}

// Handler обслуживает PUT /api/recommend/{id}/save.
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
// @Summary Сохранить рекомендацию
// @Tags Recommendations
// @Accept json
// @Produce json
// @Param id path string true "History item id"
// @Param request body Request true "Saved flag"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 404 {object} response.ErrorResponse "Не найдено"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /recommend/{id}/save [put]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.recommend.save"
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
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}
	itemID := chi.URLParam(r, "id")

	err := h.service.Save(r.Context(), id.UserID, itemID, *req.Saved)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("recommendation not found"))
		return
	case err != nil:
		log.Error("failed to save recommendation", slog.String("id", itemID), sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}
	render.JSON(w, r, response.OK(map[string]any{"id": itemID, "saved": *req.Saved}))
}
