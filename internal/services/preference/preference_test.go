package preference

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/randomlife/internal/models"
	"github.com/magabrotheeeer/randomlife/internal/rabbitmq"
	"github.com/magabrotheeeer/randomlife/internal/storage"
)

type memoryRepo struct {
	mu    sync.Mutex
	prefs map[string]models.UserPreference
	err   error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{prefs: map[string]models.UserPreference{}}
}

func (r *memoryRepo) GetUserPreference(_ context.Context, userID string, category models.Category) (*models.UserPreference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	p, ok := r.prefs[userID+"/"+string(category)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	counts := make(map[string]int, len(p.Counts))
	for k, v := range p.Counts {
		counts[k] = v
	}
	p.Counts = counts
	return &p, nil
}

func (r *memoryRepo) UpsertUserPreference(_ context.Context, pref models.UserPreference) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefs[pref.UserID+"/"+string(pref.Category)] = pref
	return nil
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, message any) error {
	return m.Called(ctx, routingKey, message).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestService_Learn(t *testing.T) {
	repo := newMemoryRepo()
	s := New(repo, nil, newNoopLogger())
	ctx := context.Background()

	require.NoError(t, s.Learn(ctx, "u1", models.CategoryFood, []string{"Spicy", " noodles ", ""}))
	require.NoError(t, s.Learn(ctx, "u1", models.CategoryFood, []string{"spicy"}))

	pref, err := repo.GetUserPreference(ctx, "u1", models.CategoryFood)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"spicy": 2, "noodles": 1}, pref.Counts)
	assert.InDelta(t, 2.0/3.0, pref.Weights["spicy"], 1e-9)
	assert.InDelta(t, 1.0/3.0, pref.Weights["noodles"], 1e-9)

	assert.ErrorIs(t, s.Learn(ctx, "u1", "cooking", []string{"x"}), ErrInvalidCategory)
	assert.NoError(t, s.Learn(ctx, "", models.CategoryFood, []string{"x"}), "anonymous users are ignored")
}

func TestService_Learn_RepeatedTagCountsOnce(t *testing.T) {
	repo := newMemoryRepo()
	s := New(repo, nil, newNoopLogger())
	ctx := context.Background()

	require.NoError(t, s.Learn(ctx, "u1", models.CategoryEntertainment, []string{"noir", "Noir", " noir", "heist"}))

	pref, err := repo.GetUserPreference(ctx, "u1", models.CategoryEntertainment)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"noir": 1, "heist": 1}, pref.Counts)
	assert.InDelta(t, 0.5, pref.Weights["noir"], 1e-9)
}

func TestApply_CapsTags(t *testing.T) {
	pref := &models.UserPreference{Counts: map[string]int{}}
	for i := 0; i < MaxTags; i++ {
		pref.Counts[fmt.Sprintf("tag%02d", i)] = 2
	}
	pref.Counts["rare"] = 1

	apply(pref, []string{"fresh", "fresh", "fresh"})

	assert.Len(t, pref.Counts, MaxTags)
	assert.NotContains(t, pref.Counts, "rare")
	assert.Equal(t, 3, pref.Counts["fresh"])

	sum := 0.0
	for _, w := range pref.Weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Len(t, pref.Weights, MaxTags)
}

func TestService_Top(t *testing.T) {
	repo := newMemoryRepo()
	s := New(repo, nil, newNoopLogger())
	ctx := context.Background()

	got, err := s.Top(ctx, "u1", models.CategoryTravel, 3)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.Learn(ctx, "u1", models.CategoryTravel, []string{"beach", "museum", "hiking", "beach"}))
	got, err = s.Top(ctx, "u1", models.CategoryTravel, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"beach", "hiking"}, got, "ties are broken by name")

	repo.err = errors.New("db down")
	_, err = s.Top(ctx, "u1", models.CategoryTravel, 2)
	assert.Error(t, err)
}

func TestService_Seed(t *testing.T) {
	repo := newMemoryRepo()
	s := New(repo, nil, newNoopLogger())
	ctx := context.Background()

	err := s.Seed(ctx, "u1", map[models.Category][]string{
		models.CategoryFitness: {"yoga", "Yoga", "running"},
		models.CategoryFood:    {"sushi"},
	})
	require.NoError(t, err)

	fitness, err := repo.GetUserPreference(ctx, "u1", models.CategoryFitness)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"yoga": 1, "running": 1}, fitness.Counts)

	err = s.Seed(ctx, "u1", map[models.Category][]string{"gardening": {"roses"}})
	assert.ErrorIs(t, err, ErrInvalidCategory)
}

func TestService_Enqueue(t *testing.T) {
	ev := models.PreferenceEvent{UserID: "u1", Category: models.CategoryShopping, Tags: []string{"headphones"}}

	t.Run("published", func(t *testing.T) {
		repo := newMemoryRepo()
		pub := new(PublisherMock)
		pub.On("Publish", mock.Anything, rabbitmq.RoutingPreferences, ev).Return(nil).Once()
		s := New(repo, pub, newNoopLogger())

		s.Enqueue(context.Background(), ev)
		s.Wait()

		pub.AssertExpectations(t)
		_, err := repo.GetUserPreference(context.Background(), "u1", models.CategoryShopping)
		assert.ErrorIs(t, err, storage.ErrNotFound, "the worker learns published events")
	})

	t.Run("publish failure learns in process", func(t *testing.T) {
		repo := newMemoryRepo()
		pub := new(PublisherMock)
		pub.On("Publish", mock.Anything, rabbitmq.RoutingPreferences, ev).Return(errors.New("channel closed")).Once()
		s := New(repo, pub, newNoopLogger())

		s.Enqueue(context.Background(), ev)
		s.Wait()

		pref, err := repo.GetUserPreference(context.Background(), "u1", models.CategoryShopping)
		require.NoError(t, err)
		assert.Equal(t, 1, pref.Counts["headphones"])
	})

	t.Run("no broker", func(t *testing.T) {
		repo := newMemoryRepo()
		s := New(repo, nil, newNoopLogger())

		ctx, cancel := context.WithCancel(context.Background())
		s.Enqueue(ctx, ev)
		cancel()
		s.Wait()

		pref, err := repo.GetUserPreference(context.Background(), "u1", models.CategoryShopping)
		require.NoError(t, err)
		assert.Equal(t, 1, pref.Counts["headphones"])
	})
}

func TestService_HandleEvent(t *testing.T) {
	repo := newMemoryRepo()
	s := New(repo, nil, newNoopLogger())

	requeue, err := s.HandleEvent(context.Background(), []byte(`{"user_id":"u1","category":"food","tags":["ramen"]}`))
	require.NoError(t, err)
	assert.False(t, requeue)

	requeue, err = s.HandleEvent(context.Background(), []byte(`not json`))
	assert.Error(t, err)
	assert.False(t, requeue)

	repo.err = errors.New("db down")
	requeue, err = s.HandleEvent(context.Background(), []byte(`{"user_id":"u1","category":"food","tags":["ramen"]}`))
	assert.Error(t, err)
	assert.False(t, requeue)
}
