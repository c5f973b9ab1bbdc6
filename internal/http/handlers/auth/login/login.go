// Package login обрабатывает вход по email в CN.
package login

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
)

// Request форма входа.
type Request struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Service проверяет учетные данные.
type Service interface {
	Login(ctx context.Context, email, rawPassword string) (*authservice.Session, error)
}

// Handler обслуживает POST /api/auth/login.
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
// @Summary Авторизация пользователя
// @Description Проверяет email и пароль и возвращает токен приложения. Только CN.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body Request true "Credentials"
// @Success 200 {object} response.Response{data=authservice.Session}
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 401 {object} response.ErrorResponse "Требуется авторизация"
// @Failure 409 {object} response.ErrorResponse "Недоступно в этом регионе"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /auth/login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"
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

	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, authservice.ErrInvalidCredentials):
		log.Warn("invalid credentials")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid email or password"))
		return
	case errors.Is(err, authservice.ErrRegionMismatch):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, response.Error("email sign-in is handled by supabase in this region"))
		return
	case err != nil:
		log.Error("login failed", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("user logged in", slog.String("user_id", session.User.ID))
	render.JSON(w, r, response.OK(session))
}
