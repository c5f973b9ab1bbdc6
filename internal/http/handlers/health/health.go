// Package health сообщает, живы ли API и адаптер хранилища.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/randomlife/internal/http/response"
	"github.com/magabrotheeeer/randomlife/internal/lib/sl"
	"github.com/magabrotheeeer/randomlife/internal/region"
)

// Pinger активный адаптер хранилища.
type Pinger interface {
	Name() string
	Ping(ctx context.Context) error
}

// Status тело ответа health check.
type Status struct {
	Status  string        `json:"status"`
	Region  region.Region `json:"region"`
	Adapter string        `json:"adapter"`
	Time    time.Time     `json:"time"`
}

// Handler обслуживает GET /api/health.
type Handler struct {
	log    *slog.Logger
	db     Pinger
	region region.Region
}

// New создает Handler.
func New(log *slog.Logger, db Pinger, r region.Region) *Handler {
	return &Handler{log: log, db: db, region: r}
}

// ServeHTTP godoc
// @Summary Проверка состояния
// @Tags Health
// @Produce json
// @Success 200 {object} response.Response{data=Status}
// @Failure 503 {object} response.ErrorResponse "Хранилище недоступно"
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.log.Error("storage ping failed", slog.String("adapter", h.db.Name()), sl.Err(err))
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("storage unavailable"))
		return
	}
	render.JSON(w, r, response.OK(Status{
		Status:  "ok",
		Region:  h.region,
		Adapter: h.db.Name(),
		Time:    time.Now().UTC(),
	}))
}
