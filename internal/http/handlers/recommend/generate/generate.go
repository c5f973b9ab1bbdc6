// Package generate отдает новую пачку рекомендаций.
package generate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/randomlife/internal/auth"
	"github.com/magabrotheeeer/randomlife/internal/enhancer"
	"github.com/magabrotheeeer/randomlife/internal/http/query"
	"github.com/magabrotheeeer/randomlife/internal/http/response"
	"github.com/magabrotheeeer/randomlife/internal/lib/sl"
	"github.com/magabrotheeeer/randomlife/internal/models"
	"github.com/magabrotheeeer/randomlife/internal/services/recommendation"
)

// Service генерирует рекомендации.
type Service interface {
	Generate(ctx context.Context, req recommendation.Request) (*recommendation.Result, error)
}

// Handler обслуживает GET /api/recommend.
type Handler struct {
	log           *slog.Logger
	service       Service
	defaultLocale string
}

// New создает Handler. defaultLocale используется, если запрос локаль не указал.
func New(log *slog.Logger, service Service, defaultLocale string) *Handler {
	return &Handler{
		log:           log,
		service:       service,
		defaultLocale: defaultLocale,
	}
}

func (h *Handler) locale(r *http.Request) string {
	switch l := strings.ToLower(r.URL.Query().Get("locale")); {
	case strings.HasPrefix(l, "zh"):
		return "zh"
	case strings.HasPrefix(l, "en"):
		return "en"
	default:
		return h.defaultLocale
	}
}

func client(r *http.Request) string {
	switch c := strings.ToLower(r.URL.Query().Get("client")); c {
	case enhancer.ClientAndroid, enhancer.ClientIOS:
		return c
	default:
		return enhancer.ClientWeb
	}
}

// ServeHTTP godoc
// @Summary Сгенерировать рекомендации
// @Description Анонимы ограничены по IP, бесплатные пользователи дневной квотой.
// @Tags Recommendations
// @Produce json
// @Param category query string true "entertainment, shopping, food, travel or fitness"
// @Param count query int false "Items to return, 1 to 10"
// @Param client query string false "web, android or ios"
// @Param locale query string false "zh or en"
// @Success 200 {object} response.Response{data=recommendation.Result}
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 429 {object} response.ErrorResponse "Превышен лимит запросов"
// @Router /recommend [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.recommend.generate"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	req := recommendation.Request{
		Category: models.Category(strings.ToLower(r.URL.Query().Get("category"))),
		Locale:   h.locale(r),
		Client:   client(r),
		Count:    query.Int(r, "count", 0),
	}
	if id, ok := auth.IdentityFrom(r.Context()); ok {
		req.UserID = id.UserID
	}

	res, err := h.service.Generate(r.Context(), req)
	switch {
	case errors.Is(err, recommendation.ErrInvalidCategory):
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error("unknown category"))
		return
	case errors.Is(err, recommendation.ErrQuotaExceeded):
		render.Status(r, http.StatusTooManyRequests)
		render.JSON(w, r, response.Error("daily recommendation limit reached, upgrade to pro for unlimited recommendations"))
		return
	case err != nil:
		log.Error("failed to generate recommendations", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("recommendations generated",
		slog.String("category", string(req.Category)),
		slog.String("source", res.Source),
		slog.Int("count", len(res.Items)))
	render.JSON(w, r, response.OK(res))
}
