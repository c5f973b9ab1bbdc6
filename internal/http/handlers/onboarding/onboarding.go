// Package onboarding сохраняет интересы, выбранные при первом запуске.
package onboarding

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/randomlife/internal/auth"
	"github.com/magabrotheeeer/randomlife/internal/http/response"
	"github.com/magabrotheeeer/randomlife/internal/lib/sl"
	"github.com/magabrotheeeer/randomlife/internal/models"
)

// Request сопоставляет каждой категории выбранные для нее теги интересов.
type Request struct {
	Interests map[string][]string `json:"interests" validate:"required,min=1,dive,max=20,dive,required,max=30"`
}

// Service заполняет предпочтения и отмечает онбординг пройденным.
type Service interface {
	CompleteOnboarding(ctx context.Context, userID string, interests map[models.Category][]string) (*models.User, error)
}

// Handler обслуживает POST /api/onboarding.
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
// @Summary Завершить онбординг
// @Tags Profile
// @Accept json
// @Produce json
// @Param request body Request true "Interests per category"
// @Success 200 {object} response.Response{data=models.User}
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 401 {object} response.ErrorResponse "Требуется авторизация"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /onboarding [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.onboarding"
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

	interests := make(map[models.Category][]string, len(req.Interests))
	for name, tags := range req.Interests {
		category := models.Category(name)
		if !category.Valid() {
			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error(fmt.Sprintf("unknown category %q", name)))
			return
		}
		interests[category] = tags
	}

	user, err := h.service.CompleteOnboarding(r.Context(), id.UserID, interests)
	if err != nil {
		log.Error("failed to complete onboarding", slog.String("user_id", id.UserID), sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("onboarding completed", slog.String("user_id", id.UserID), slog.Int("categories", len(interests)))
	render.JSON(w, r, response.OK(user))
}
