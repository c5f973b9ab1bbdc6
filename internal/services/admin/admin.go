// Package admin объединяет оба региональных бэкенда для админки.
// Источники опрашиваются параллельно, упавший источник показывается рядом
// с результатами остальных, запрос при этом не падает.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/sourcegraph/conc/iter"

	"github.com/magabrotheeeer/randomlife/internal/lib/sl"
	"github.com/magabrotheeeer/randomlife/internal/metrics"
	"github.com/magabrotheeeer/randomlife/internal/models"
)

const statsKey = "admin:stats"

// Source один региональный бэкенд.
type Source interface {
	Name() string
	ListUsers(ctx context.Context, page models.Page) ([]*models.User, error)
	ListAllPayments(ctx context.Context, page models.Page) ([]*models.Payment, error)
	ListAllRecommendations(ctx context.Context, page models.Page) ([]*models.RecommendationHistory, error)
	Stats(ctx context.Context) (*models.SourceStats, error)
}

type unavailable struct {
	name string
	err  error
}

// Unavailable источник для бэкенда, который не удалось открыть. Любой
// запрос к нему возвращает err, чтобы админка продолжала о нем сообщать.
func Unavailable(name string, err error) Source {
	return unavailable{name: name, err: fmt.Errorf("%s unavailable: %w", name, err)}
}

func (u unavailable) Name() string { return u.name }

func (u unavailable) ListUsers(context.Context, models.Page) ([]*models.User, error) {
	return nil, u.err
}

func (u unavailable) ListAllPayments(context.Context, models.Page) ([]*models.Payment, error) {
	return nil, u.err
}

func (u unavailable) ListAllRecommendations(context.Context, models.Page) ([]*models.RecommendationHistory, error) {
	return nil, u.err
}

func (u unavailable) Stats(context.Context) (*models.SourceStats, error) {
	return nil, u.err
}

// Cache хранит собранную статистику.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// SourceError описывает упавший источник.
type SourceError struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// Entry запись с пометкой бэкенда, из которого она пришла.
type Entry[T any] struct {
	Source string `json:"source"`
	Item   T      `json:"item"`
}

// Listing объединенный список, новые сначала. Каждый источник пагинируется
// отдельно, поэтому страница может содержать по странице от каждого источника.
type Listing[T any] struct {
	Items  []Entry[T]    `json:"items"`
	Errors []SourceError `json:"errors"`
}

// Stats сводка админки по источникам.
type Stats struct {
	Sources     map[string]*models.SourceStats `json:"sources"`
	Errors      []SourceError                  `json:"errors"`
	GeneratedAt time.Time                      `json:"generated_at"`
}

// Service выполняет параллельные запросы к источникам.
type Service struct {
	sources  []Source
	cache    Cache
	statsTTL time.Duration
	metrics  *metrics.Metrics
	log      *slog.Logger
	now      func() time.Time
}

// New создает Service по sources. Nil-источники пропускаются.
func New(sources []Source, cache Cache, statsTTL time.Duration, m *metrics.Metrics, log *slog.Logger) *Service {
	active := make([]Source, 0, len(sources))
	for _, s := range sources {
		if s != nil {
			active = append(active, s)
		}
	}
	return &Service{
		sources:  active,
		cache:    cache,
		statsTTL: statsTTL,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

type result[T any] struct {
	source string
	items  []T
	err    error
}

func fanOut[T any](ctx context.Context, s *Service, op string, fetch func(context.Context, Source) ([]T, error), createdAt func(T) time.Time) Listing[T] {
	results := iter.Map(s.sources, func(src *Source) result[T] {
		items, err := fetch(ctx, *src)
		return result[T]{source: (*src).Name(), items: items, err: err}
	})

	out := Listing[T]{Items: []Entry[T]{}, Errors: []SourceError{}}
	for _, r := range results {
		if r.err != nil {
			s.log.Error("admin source failed", slog.String("op", op), slog.String("source", r.source), sl.Err(r.err))
			s.metrics.AdminError(r.source)
			out.Errors = append(out.Errors, SourceError{Source: r.source, Error: r.err.Error()})
			continue
		}
		for _, it := range r.items {
			out.Items = append(out.Items, Entry[T]{Source: r.source, Item: it})
		}
	}
	sort.SliceStable(out.Items, func(i, j int) bool {
		return createdAt(out.Items[i].Item).After(createdAt(out.Items[j].Item))
	})
	return out
}

// Users отдает пользователей всех бэкендов.
func (s *Service) Users(ctx context.Context, page models.Page) Listing[*models.User] {
	return fanOut(ctx, s, "services.admin.Users",
		func(ctx context.Context, src Source) ([]*models.User, error) { return src.ListUsers(ctx, page) },
		func(u *models.User) time.Time { return u.CreatedAt })
}

// Payments отдает платежи всех бэкендов.
func (s *Service) Payments(ctx context.Context, page models.Page) Listing[*models.Payment] {
	return fanOut(ctx, s, "services.admin.Payments",
		func(ctx context.Context, src Source) ([]*models.Payment, error) { return src.ListAllPayments(ctx, page) },
		func(p *models.Payment) time.Time { return p.CreatedAt })
}

// Recommendations объединенная лента рекомендаций.
func (s *Service) Recommendations(ctx context.Context, page models.Page) Listing[*models.RecommendationHistory] {
	return fanOut(ctx, s, "services.admin.Recommendations",
		func(ctx context.Context, src Source) ([]*models.RecommendationHistory, error) {
			return src.ListAllRecommendations(ctx, page)
		},
		func(r *models.RecommendationHistory) time.Time { return r.CreatedAt })
}

// Stats возвращает сводку по источникам, кэшируется на заданный TTL.
// Результаты с упавшими источниками не кэшируются.
func (s *Service) Stats(ctx context.Context) *Stats {
	const op = "services.admin.Stats"

	var cached Stats
	found, err := s.cache.Get(ctx, statsKey, &cached)
	if err != nil {
		s.log.Warn("failed to read stats cache", sl.Err(err))
	}
	if found {
		return &cached
	}

	results := iter.Map(s.sources, func(src *Source) result[*models.SourceStats] {
		st, err := (*src).Stats(ctx)
		return result[*models.SourceStats]{source: (*src).Name(), items: []*models.SourceStats{st}, err: err}
	})

	out := &Stats{Sources: map[string]*models.SourceStats{}, Errors: []SourceError{}, GeneratedAt: s.now()}
	for _, r := range results {
		if r.err != nil {
			s.log.Error("admin source failed", slog.String("op", op), slog.String("source", r.source), sl.Err(r.err))
			s.metrics.AdminError(r.source)
			out.Errors = append(out.Errors, SourceError{Source: r.source, Error: r.err.Error()})
			continue
		}
		out.Sources[r.source] = r.items[0]
	}
	if len(out.Errors) == 0 {
		if err := s.cache.Set(ctx, statsKey, out, s.statsTTL); err != nil {
			s.log.Warn("failed to cache stats", sl.Err(err))
		}
	}
	return out
}
