// Package wechat обрабатывает вход через WeChat OAuth в CN.
package wechat

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
	authservice "github.com/magabrotheeeer/randomlife/internal/services/auth"
)

// Request содержит код авторизации от WeChat SDK.
type Request struct {
	Code string `json:"code" validate:"required"`
}

// Service обменивает код на сессию приложения.
type Service interface {
	WeChatLogin(ctx context.Context, code string) (*authservice.Session, error)
}

// Handler обслуживает POST /api/auth/wechat.
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
// @Summary Вход через WeChat
// @Description Обменивает OAuth-код WeChat на токен приложения. Только CN.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body Request true "OAuth code"
// @Success 200 {object} response.Response{data=authservice.Session}
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 401 {object} response.ErrorResponse "Требуется авторизация"
// @Failure 409 {object} response.ErrorResponse "Недоступно в этом регионе"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /auth/wechat [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.wechat"
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

	session, err := h.service.WeChatLogin(r.Context(), req.Code)
	switch {
	case errors.Is(err, authservice.ErrRegionMismatch):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, response.Error("wechat login is only available in the CN region"))
		return
	case errors.Is(err, auth.ErrWeChatCode):
		log.Warn("wechat rejected code", sl.Err(err))
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid wechat authorization code"))
		return
	case err != nil:
		log.Error("wechat login failed", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("wechat login", slog.String("user_id", session.User.ID))
	render.JSON(w, r, response.OK(session))
}
