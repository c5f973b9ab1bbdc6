// Package feedback сохраняет оценки пользователей и анонимных посетителей.
package feedback

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/randomlife/internal/auth"
	"github.com/magabrotheeeer/randomlife/internal/http/response"
	"github.com/magabrotheeeer/randomlife/internal/lib/sl"
	"github.com/magabrotheeeer/randomlife/internal/models"
)

// Request форма отзыва.
type Request struct {
	Category string `json:"category" validate:"omitempty,max=30"`
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Content  string `json:"content" validate:"max=2000"`
}

// Store сохраняет отзывы.
type Store interface {
	SaveFeedback(ctx context.Context, fb models.Feedback) (string, error)
}

// Handler обслуживает POST /api/feedback.
type Handler struct {
	log      *slog.Logger
	store    Store
	validate *validator.Validate
}

// New создает Handler.
func New(log *slog.Logger, store Store) *Handler {
	return &Handler{
		log:      log,
		store:    store,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Оставить отзыв
// @Tags Feedback
// @Accept json
// @Produce json
// @Param request body Request true "Feedback"
// @Success 201 {object} response.Response{data=models.Feedback}
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /feedback [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.feedback"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

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

	fb := models.Feedback{
		Category:  strings.ToLower(req.Category),
		Rating:    req.Rating,
		Content:   strings.TrimSpace(req.Content),
		CreatedAt: time.Now().UTC(),
	}
	if id, ok := auth.IdentityFrom(r.Context()); ok {
		fb.UserID = id.UserID
	}

	id, err := h.store.SaveFeedback(r.Context(), fb)
	if err != nil {
		log.Error("failed to save feedback", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}
	fb.ID = id

	log.Info("feedback received", slog.String("id", id), slog.Int("rating", fb.Rating))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OK(fb))
}
