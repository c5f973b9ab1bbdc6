// Package me возвращает профиль авторизованного пользователя.
package me

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/randomlife/internal/auth"
	"github.com/magabrotheeeer/randomlife/internal/http/response"
	"github.com/magabrotheeeer/randomlife/internal/lib/sl"
	"github.com/magabrotheeeer/randomlife/internal/models"
	"github.com/magabrotheeeer/randomlife/internal/storage"
)

// Service находит пользователя, в INTL создает его при первом обращении.
type Service interface {
	Me(ctx context.Context, id auth.Identity) (*models.User, error)
}

// Handler обслуживает GET /api/auth/me.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Текущий пользователь
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Response{data=models.User}
// @Failure 401 {object} response.ErrorResponse "Требуется авторизация"
// @Failure 404 {object} response.ErrorResponse "Не найдено"
// @Router /auth/me [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.me"
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

	user, err := h.service.Me(r.Context(), id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("user not found"))
		return
	case err != nil:
		log.Error("failed to load user", slog.String("user_id", id.UserID), sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}
	render.JSON(w, r, response.OK(user))
}
