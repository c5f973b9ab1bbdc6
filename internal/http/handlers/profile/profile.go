// Package profile меняет редактируемые поля профиля.
package profile

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
	"github.com/magabrotheeeer/randomlife/internal/storage"
)

// Request перечисляет поля для изменения. Пропущенные поля не меняются.
type Request struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=50"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url"`
}

// Service обновляет профили.
type Service interface {
	UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.User, error)
}

// Handler обслуживает PUT /api/profile.
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
// @Summary Обновить профиль
// @Tags Profile
// @Accept json
// @Produce json
// @Param request body Request true "Fields to change"
// @Success 200 {object} response.Response{data=models.User}
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 401 {object} response.ErrorResponse "Требуется авторизация"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /profile [put]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.profile"
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
	if req.Name == nil && req.AvatarURL == nil {
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error("nothing to update"))
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), id.UserID, models.ProfileUpdate{
		Name:      req.Name,
		AvatarURL: req.AvatarURL,
	})
	switch {
	case errors.Is(err, storage.ErrNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("user not found"))
		return
	case err != nil:
		log.Error("failed to update profile", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("profile updated", slog.String("user_id", id.UserID))
	render.JSON(w, r, response.OK(user))
}
