// Package recommendation генерирует рекомендации и ведет историю
// каждого пользователя.
package recommendation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/randomlife/internal/ai"
	"github.com/magabrotheeeer/randomlife/internal/enhancer"
	"github.com/magabrotheeeer/randomlife/internal/lib/sl"
	"github.com/magabrotheeeer/randomlife/internal/metrics"
	"github.com/magabrotheeeer/randomlife/internal/models"
)

const (
	defaultCount   = 3
	maxCount       = 10
	preferenceTags = 5
	recentWindow   = 20
	quotaWindow    = 24 * time.Hour
)

var (
	// ErrInvalidCategory возвращается для категорий вне models.Categories.
	ErrInvalidCategory = errors.New("invalid category")
	// ErrQuotaExceeded возвращается, когда бесплатный пользователь исчерпал дневные генерации.
	ErrQuotaExceeded = errors.New("daily recommendation quota exceeded")
)

// Repository хранилище истории.
type Repository interface {
	SaveRecommendation(ctx context.Context, rec models.RecommendationHistory) (string, error)
	GetRecommendation(ctx context.Context, userID, id string) (*models.RecommendationHistory, error)
	GetRecommendationHistory(ctx context.Context, userID string, filter models.HistoryFilter) ([]*models.RecommendationHistory, error)
	RecordClick(ctx context.Context, userID, id string) error
	SetRecommendationSaved(ctx context.Context, userID, id string, saved bool) error
	DeleteRecommendation(ctx context.Context, userID, id string) error
}

// Generator выдает сырые рекомендации, обычно это AI-модель.
type Generator interface {
	Recommend(ctx context.Context, req ai.Request) ([]models.Recommendation, error)
}

// Preferences читает и обучает веса тегов.
type Preferences interface {
	Top(ctx context.Context, userID string, category models.Category, n int) ([]string, error)
	Enqueue(ctx context.Context, ev models.PreferenceEvent)
}

// Entitlements отличает pro-пользователей.
type Entitlements interface {
	IsPro(ctx context.Context, userID string) (bool, error)
}

// Counter считает использование квоты.
type Counter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Request один запрос генерации. UserID пуст для анонимов.
type Request struct {
	UserID   string
	Category models.Category
	Locale   string
	Client   string
	Count    int
}

// Result сгенерированная пачка.
type Result struct {
	Items  []models.Recommendation `json:"items"`
	Source string                  `json:"source"`
	// Remaining сколько бесплатных генераций осталось сегодня, -1 без ограничений.
	Remaining int `json:"remaining"`
}

// Service управляет генерацией и историей.
type Service struct {
	repo         Repository
	generator    Generator
	prefs        Preferences
	entitlements Entitlements
	counter      Counter
	metrics      *metrics.Metrics
	dailyQuota   int
	log          *slog.Logger
	now          func() time.Time
}

// Deps зависимости Service.
type Deps struct {
	Repo         Repository
	Generator    Generator
	Preferences  Preferences
	Entitlements Entitlements
	Counter      Counter
	Metrics      *metrics.Metrics
}

// New создает Service. С nil Generator отдается только запасной пул.
func New(deps Deps, dailyQuota int, log *slog.Logger) *Service {
	return &Service{
		repo:         deps.Repo,
		generator:    deps.Generator,
		prefs:        deps.Preferences,
		entitlements: deps.Entitlements,
		counter:      deps.Counter,
		metrics:      deps.Metrics,
		dailyQuota:   dailyQuota,
		log:          log,
		now:          time.Now,
	}
}

func clampCount(n int) int {
	if n <= 0 {
		return defaultCount
	}
	if n > maxCount {
		return maxCount
	}
	return n
}

// Generate выдает пачку по req, при сбое модели отдает
// заготовленный пул.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	const op = "services.recommendation.Generate"

	if !req.Category.Valid() {
		return nil, fmt.Errorf("%s: %w: %q", op, ErrInvalidCategory, req.Category)
	}
	if req.Client == "" {
		req.Client = enhancer.ClientWeb
	}
	req.Count = clampCount(req.Count)
	log := s.log.With(slog.String("op", op), slog.String("category", string(req.Category)))

	remaining, err := s.consumeQuota(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var tags, recent []string
	if req.UserID != "" {
		tags, recent = s.personalize(ctx, log, req)
	}

	source := metrics.SourceAI
	var items []models.Recommendation
	if s.generator != nil {
		items, err = s.generator.Recommend(ctx, ai.Request{
			Category:      req.Category,
			Locale:        req.Locale,
			Count:         req.Count,
			PreferredTags: tags,
			RecentTitles:  recent,
		})
		if err != nil {
			log.Warn("ai generation failed, serving fallback", sl.Err(err))
		}
	}
	if len(items) == 0 {
		source = metrics.SourceFallback
	}

	fallback := enhancer.FallbackPool(req.Category, req.Locale)
	items = enhancer.EnforceDiversity(items, recent, fallback, req.Count)
	items = enhancer.Enhance(items, enhancer.Options{
		Category: req.Category,
		Locale:   req.Locale,
		Client:   req.Client,
		Count:    req.Count,
	})

	if req.UserID != "" {
		s.saveHistory(ctx, log, req.UserID, items, source)
	}
	s.metrics.Recommendation(string(req.Category), source, len(items))

	return &Result{Items: items, Source: source, Remaining: remaining}, nil
}

// consumeQuota засчитывает генерацию бесплатным пользователям. При сбое
// счетчика запрос пропускается.
func (s *Service) consumeQuota(ctx context.Context, userID string) (int, error) {
	if userID == "" || s.counter == nil || s.dailyQuota <= 0 {
		return -1, nil
	}
	if s.entitlements != nil {
		pro, err := s.entitlements.IsPro(ctx, userID)
		if err != nil {
			s.log.Warn("failed to resolve tier, treating as free", slog.String("user_id", userID), sl.Err(err))
		}
		if pro {
			return -1, nil
		}
	}

	key := fmt.Sprintf("quota:recommend:%s:%s", userID, s.now().UTC().Format("2006-01-02"))
	used, err := s.counter.Incr(ctx, key, quotaWindow)
	if err != nil {
		s.log.Warn("failed to count quota", slog.String("key", key), sl.Err(err))
		return -1, nil
	}
	if used > int64(s.dailyQuota) {
		s.metrics.QuotaRejected()
		return 0, ErrQuotaExceeded
	}
	return s.dailyQuota - int(used), nil
}

func (s *Service) personalize(ctx context.Context, log *slog.Logger, req Request) ([]string, []string) {
	var tags []string
	if s.prefs != nil {
		var err error
		tags, err = s.prefs.Top(ctx, req.UserID, req.Category, preferenceTags)
		if err != nil {
			log.Warn("failed to load preferences", sl.Err(err))
		}
	}

	history, err := s.repo.GetRecommendationHistory(ctx, req.UserID, models.HistoryFilter{
		Category: req.Category,
		Limit:    recentWindow,
	})
	if err != nil {
		log.Warn("failed to load recent history", sl.Err(err))
		return tags, nil
	}
	recent := make([]string, 0, len(history))
	for _, h := range history {
		recent = append(recent, h.Title)
	}
	return tags, recent
}

func (s *Service) saveHistory(ctx context.Context, log *slog.Logger, userID string, items []models.Recommendation, source string) {
	for i := range items {
		it := &items[i]
		id, err := s.repo.SaveRecommendation(ctx, models.RecommendationHistory{
			UserID:      userID,
			Category:    it.Category,
			Title:       it.Title,
			Description: it.Description,
			Link:        it.Link,
			Platform:    it.Platform,
			SearchQuery: it.SearchQuery,
			Tags:        it.Tags,
			Metadata:    map[string]string{"source": source},
		})
		if err != nil {
			log.Error("failed to save recommendation", slog.String("title", it.Title), sl.Err(err))
			continue
		}
		it.ID = id
	}
}

// History отдает рекомендации, показанные userID.
func (s *Service) History(ctx context.Context, userID string, filter models.HistoryFilter) ([]*models.RecommendationHistory, error) {
	const op = "services.recommendation.History"

	if filter.Category != "" && !filter.Category.Valid() {
		return nil, fmt.Errorf("%s: %w: %q", op, ErrInvalidCategory, filter.Category)
	}
	items, err := s.repo.GetRecommendationHistory(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return items, nil
}

// Click записывает клик и в фоне обучается на тегах элемента.
func (s *Service) Click(ctx context.Context, userID, id string) error {
	const op = "services.recommendation.Click"

	rec, err := s.repo.GetRecommendation(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.RecordClick(ctx, userID, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if s.prefs != nil && len(rec.Tags) > 0 {
		s.prefs.Enqueue(ctx, models.PreferenceEvent{UserID: userID, Category: rec.Category, Tags: rec.Tags})
	}
	return nil
}

// Save помечает элемент истории сохраненным или снимает отметку.
func (s *Service) Save(ctx context.Context, userID, id string, saved bool) error {
	const op = "services.recommendation.Save"

	if err := s.repo.SetRecommendationSaved(ctx, userID, id, saved); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Delete удаляет элемент истории.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	const op = "services.recommendation.Delete"

	if err := s.repo.DeleteRecommendation(ctx, userID, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
