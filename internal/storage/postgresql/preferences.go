package postgresql

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/magabrotheeeer/randomlife/internal/models"
)

func (s *Storage) GetUserPreference(ctx context.Context, userID string, category models.Category) (*models.UserPreference, error) {
	const op = "storage.postgresql.GetUserPreference"

	var (
		counts  []byte
		weights []byte
	)
	pref := models.UserPreference{UserID: userID, Category: category}
	err := s.DB.QueryRowContext(ctx, `
		SELECT counts, weights, updated_at FROM user_preferences
		WHERE user_id = $1 AND category = $2`, userID, string(category),
	).Scan(&counts, &weights, &pref.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	if err := json.Unmarshal(counts, &pref.Counts); err != nil {
		return nil, fmt.Errorf("%s: decode counts: %w", op, err)
	}
	if err := json.Unmarshal(weights, &pref.Weights); err != nil {
		return nil, fmt.Errorf("%s: decode weights: %w", op, err)
	}
	return &pref, nil
}

// UpsertUserPreference заменяет сохраненные карты для (user, category).
func (s *Storage) UpsertUserPreference(ctx context.Context, pref models.UserPreference) error {
	const op = "storage.postgresql.UpsertUserPreference"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	counts, err := jsonParam(pref.Counts)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	weights, err := jsonParam(pref.Weights)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO user_preferences (user_id, category, counts, weights, updated_at)
		VALUES ($1, $2, $3::jsonb, $4::jsonb, NOW())
		ON CONFLICT (user_id, category) DO UPDATE
		SET counts = EXCLUDED.counts, weights = EXCLUDED.weights, updated_at = NOW()`,
		pref.UserID, string(pref.Category), counts, weights)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return nil
}
