// Package register обрабатывает регистрацию по email в CN.
package register

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/randomlife/internal/http/response"
	"github.com/magabrotheeeer/randomlife/internal/lib/sl"
	authservice "github.com/magabrotheeeer/randomlife/internal/services/auth"
	"github.com/magabrotheeeer/randomlife/internal/storage"
)

// Request форма регистрации.
type Request struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"max=50"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// Service создает аккаунты.
type Service interface {
	Register(ctx context.Context, email, name, rawPassword string) (*authservice.Session, error)
}

// Handler обслуживает POST /api/auth/register.
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
// @Summary Регистрация
// @Description Создает email-аккаунт и возвращает токен приложения. Только CN.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body Request true "Account"
// @Success 201 {object} response.Response{data=authservice.Session}
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 409 {object} response.ErrorResponse "Email уже занят или вход недоступен в регионе"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /auth/register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"
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

	session, err := h.service.Register(r.Context(), req.Email, req.Name, req.Password)
	switch {
	case errors.Is(err, storage.ErrAlreadyExists):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, response.Error("email is already registered"))
		return
	case errors.Is(err, authservice.ErrRegionMismatch):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, response.Error("email sign-up is handled by supabase in this region"))
		return
	case err != nil:
		log.Error("failed to register user", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("user registered", slog.String("user_id", session.User.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OK(session))
}
