// Package admin обслуживает общую админку обоих регионов. Списки объединяют
// оба региональных хранилища, упавшее хранилище показывается рядом со
// строками второго.
package admin

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/randomlife/internal/http/query"
	"github.com/magabrotheeeer/randomlife/internal/http/response"
	"github.com/magabrotheeeer/randomlife/internal/models"
	adminsvc "github.com/magabrotheeeer/randomlife/internal/services/admin"
)

// Service объединяет региональные хранилища.
type Service interface {
	Users(ctx context.Context, page models.Page) adminsvc.Listing[*models.User]
	Payments(ctx context.Context, page models.Page) adminsvc.Listing[*models.Payment]
	Recommendations(ctx context.Context, page models.Page) adminsvc.Listing[*models.RecommendationHistory]
	Stats(ctx context.Context) *adminsvc.Stats
}

// Handler группирует эндпоинты админки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

func (h *Handler) logFor(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

func warnPartial(log *slog.Logger, errs []adminsvc.SourceError) {
	for _, e := range errs {
		log.Warn("admin source failed", slog.String("source", e.Source), slog.String("error", e.Error))
	}
}

// Users godoc
// @Summary Пользователи обоих регионов
// @Tags Admin
// @Produce json
// @Param limit query int false "Page size per region"
// @Param offset query int false "Offset per region"
// @Success 200 {object} response.Response{data=admin.UserListing}
// @Failure 401 {object} response.ErrorResponse "Требуется авторизация"
// @Failure 403 {object} response.ErrorResponse "Нет прав администратора"
// @Router /admin/users [get]
// @Security BearerAuth
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	l := h.service.Users(r.Context(), query.Page(r))
	warnPartial(h.logFor(r, "handlers.admin.users"), l.Errors)
	render.JSON(w, r, response.OK(l))
}

// Payments godoc
// @Summary Платежи обоих регионов
// @Tags Admin
// @Produce json
// @Param limit query int false "Page size per region"
// @Param offset query int false "Offset per region"
// @Success 200 {object} response.Response{data=admin.PaymentListing}
// @Failure 401 {object} response.ErrorResponse "Требуется авторизация"
// @Failure 403 {object} response.ErrorResponse "Нет прав администратора"
// @Router /admin/payments [get]
// @Security BearerAuth
func (h *Handler) Payments(w http.ResponseWriter, r *http.Request) {
	l := h.service.Payments(r.Context(), query.Page(r))
	warnPartial(h.logFor(r, "handlers.admin.payments"), l.Errors)
	render.JSON(w, r, response.OK(l))
}

// Recommendations godoc
// @Summary Рекомендации обоих регионов
// @Tags Admin
// @Produce json
// @Param limit query int false "Page size per region"
// @Param offset query int false "Offset per region"
// @Success 200 {object} response.Response{data=admin.RecommendationListing}
// @Failure 401 {object} response.ErrorResponse "Требуется авторизация"
// @Failure 403 {object} response.ErrorResponse "Нет прав администратора"
// @Router /admin/recommendations [get]
// @Security BearerAuth
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	l := h.service.Recommendations(r.Context(), query.Page(r))
	warnPartial(h.logFor(r, "handlers.admin.recommendations"), l.Errors)
	render.JSON(w, r, response.OK(l))
}

// Stats godoc
// @Summary Счетчики админки по регионам
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Response{data=admin.StatsDoc}
// @Failure 401 {object} response.ErrorResponse "Требуется авторизация"
// @Failure 403 {object} response.ErrorResponse "Нет прав администратора"
// @Router /admin/stats [get]
// @Security BearerAuth
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	s := h.service.Stats(r.Context())
	warnPartial(h.logFor(r, "handlers.admin.stats"), s.Errors)
	render.JSON(w, r, response.OK(s))
}

// Swagger не умеет описывать generic-типы, эти алиасы называют конкретные
// списки для документации.
type (
	UserListing           = adminsvc.Listing[*models.User]
	PaymentListing        = adminsvc.Listing[*models.Payment]
	RecommendationListing = adminsvc.Listing[*models.RecommendationHistory]
	StatsDoc              = adminsvc.Stats
)
