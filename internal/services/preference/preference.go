// Package preference хранит веса тегов по категориям, выученные по
// действиям пользователя.
package preference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/magabrotheeeer/randomlife/internal/lib/sl"
	"github.com/magabrotheeeer/randomlife/internal/models"
	"github.com/magabrotheeeer/randomlife/internal/rabbitmq"
	"github.com/magabrotheeeer/randomlife/internal/storage"
)

// MaxTags ограничивает число тегов одной категории.
const MaxTags = 50

const learnTimeout = 10 * time.Second

// ErrInvalidCategory возвращается для категорий вне models.Categories.
var ErrInvalidCategory = errors.New("invalid category")

// Repository хранилище, нужное сервису.
type Repository interface {
	GetUserPreference(ctx context.Context, userID string, category models.Category) (*models.UserPreference, error)
	UpsertUserPreference(ctx context.Context, pref models.UserPreference) error
}

// Publisher ставит события обучения в очередь.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Service обучает и отдает предпочтения пользователя.
type Service struct {
	repo      Repository
	publisher Publisher
	log       *slog.Logger
	now       func() time.Time
	wg        sync.WaitGroup
}

// New создает Service. С nil publisher Enqueue учится в горутине.
func New(repo Repository, publisher Publisher, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// apply добавляет по единице на тег, оставляет MaxTags самых частых тегов
// и пересчитывает веса.
func apply(pref *models.UserPreference, tags []string) {
	if pref.Counts == nil {
		pref.Counts = map[string]int{}
	}
	for _, t := range tags {
		pref.Counts[t]++
	}

	if len(pref.Counts) > MaxTags {
		names := rank(pref.Counts)
		for _, name := range names[MaxTags:] {
			delete(pref.Counts, name)
		}
	}

	total := 0
	for _, c := range pref.Counts {
		total += c
	}
	pref.Weights = make(map[string]float64, len(pref.Counts))
	if total == 0 {
		return
	}
	for name, c := range pref.Counts {
		pref.Weights[name] = float64(c) / float64(total)
	}
}

// rank сортирует теги по убыванию счетчика, при равенстве по имени.
func rank[V int | float64](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if m[names[i]] != m[names[j]] {
			return m[names[i]] > m[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// Learn учитывает взаимодействие userID с тегами tags в категории.
// Каждый тег события добавляет не больше единицы.
func (s *Service) Learn(ctx context.Context, userID string, category models.Category, tags []string) error {
	const op = "services.preference.Learn"

	if !category.Valid() {
		return fmt.Errorf("%s: %w: %q", op, ErrInvalidCategory, category)
	}
	// повтор тега внутри одного события засчитывается один раз
	tags = dedupe(tags)
	if userID == "" || len(tags) == 0 {
		return nil
	}

	pref, err := s.repo.GetUserPreference(ctx, userID, category)
	if errors.Is(err, storage.ErrNotFound) {
		pref = &models.UserPreference{UserID: userID, Category: category}
	} else if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	apply(pref, tags)
	pref.UpdatedAt = s.now()
	if err := s.repo.UpsertUserPreference(ctx, *pref); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Seed сохраняет интересы из онбординга, по единице на тег.
func (s *Service) Seed(ctx context.Context, userID string, interests map[models.Category][]string) error {
	const op = "services.preference.Seed"

	for category := range interests {
		if !category.Valid() {
			return fmt.Errorf("%s: %w: %q", op, ErrInvalidCategory, category)
		}
	}
	for _, category := range models.Categories {
		tags, ok := interests[category]
		if !ok {
			continue
		}
		if err := s.Learn(ctx, userID, category, tags); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

func dedupe(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range normalizeTags(tags) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Top возвращает до n тегов категории с наибольшим весом.
func (s *Service) Top(ctx context.Context, userID string, category models.Category, n int) ([]string, error) {
	const op = "services.preference.Top"

	pref, err := s.repo.GetUserPreference(ctx, userID, category)
	if errors.Is(err, storage.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	names := rank(pref.Weights)
	if n > 0 && len(names) > n {
		names = names[:n]
	}
	return names, nil
}

// Enqueue планирует обучение по ev, не блокируя вызывающего. Ошибки
// логируются и отбрасываются.
func (s *Service) Enqueue(ctx context.Context, ev models.PreferenceEvent) {
	log := s.log.With(slog.String("user_id", ev.UserID), slog.String("category", string(ev.Category)))

	if s.publisher != nil {
		err := s.publisher.Publish(ctx, rabbitmq.RoutingPreferences, ev)
		if err == nil {
			return
		}
		log.Warn("failed to publish preference event, learning in process", sl.Err(err))
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), learnTimeout)
		defer cancel()
		if err := s.Learn(lctx, ev.UserID, ev.Category, ev.Tags); err != nil {
			log.Error("failed to learn preferences", sl.Err(err))
		}
	}()
}

// Wait ждет завершения горутин обучения внутри процесса.
func (s *Service) Wait() {
	s.wg.Wait()
}

// HandleEvent потребитель очереди событий предпочтений. События не возвращаются в очередь.
func (s *Service) HandleEvent(ctx context.Context, body []byte) (bool, error) {
	var ev models.PreferenceEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return false, fmt.Errorf("decode preference event: %w", err)
	}
	if err := s.Learn(ctx, ev.UserID, ev.Category, ev.Tags); err != nil {
		return false, err
	}
	return false, nil
}
