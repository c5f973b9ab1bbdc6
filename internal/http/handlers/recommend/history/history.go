// Package history отдает рекомендации, показанные пользователю.
package history

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/randomlife/internal/auth"
	"github.com/magabrotheeeer/randomlife/internal/http/query"
	"github.com/magabrotheeeer/randomlife/internal/http/response"
	"github.com/magabrotheeeer/randomlife/internal/lib/sl"
	"github.com/magabrotheeeer/randomlife/internal/models"
	"github.com/magabrotheeeer/randomlife/internal/services/recommendation"
)

// Service читает историю.
type Service interface {
	History(ctx context.Context, userID string, filter models.HistoryFilter) ([]*models.RecommendationHistory, error)
}

// Handler обслуживает GET /api/recommend/history.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary История рекомендаций
// @Tags Recommendations
// @Produce json
// @Param category query string false "Only this category"
// @Param saved query bool false "Only saved items"
// @Param limit query int false "Page size, default 20, max 100"
// @Param offset query int false "Page offset"
// @Success 200 {object} response.Response{data=[]models.RecommendationHistory}
// @Failure 401 {object} response.ErrorResponse "Требуется авторизация"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /recommend/history [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.recommend.history"
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

	page := query.Page(r)
	filter := models.HistoryFilter{
		Category:  models.Category(strings.ToLower(r.URL.Query().Get("category"))),
		SavedOnly: query.Bool(r, "saved"),
		Limit:     page.Limit,
		Offset:    page.Offset,
	}

	items, err := h.service.History(r.Context(), id.UserID, filter)
	switch {
	case errors.Is(err, recommendation.ErrInvalidCategory):
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error("unknown category"))
		return
	case err != nil:
		log.Error("failed to list history", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}
	if items == nil {
		items = []*models.RecommendationHistory{}
	}
	render.JSON(w, r, response.OK(items))
}
