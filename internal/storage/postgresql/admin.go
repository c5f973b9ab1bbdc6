package postgresql

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/randomlife/internal/models"
	"github.com/magabrotheeeer/randomlife/internal/storage"
)

func (s *Storage) SaveFeedback(ctx context.Context, fb models.Feedback) (string, error) {
	const op = "storage.postgresql.SaveFeedback"

	var id string
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO feedback (user_id, category, rating, content)
		VALUES (NULLIF($1, '')::uuid, $2, $3, $4)
		RETURNING id`, fb.UserID, fb.Category, fb.Rating, fb.Content,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return id, nil
}

func (s *Storage) ListUsers(ctx context.Context, page models.Page) ([]*models.User, error) {
	const op = "storage.postgresql.ListUsers"

	limit, offset := storage.ClampPage(page.Limit, page.Offset)
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func (s *Storage) ListAllPayments(ctx context.Context, page models.Page) ([]*models.Payment, error) {
	const op = "storage.postgresql.ListAllPayments"

	limit, offset := storage.ClampPage(page.Limit, page.Offset)
	return s.queryPayments(ctx, op,
		`SELECT `+paymentColumns+` FROM payments ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
}

func (s *Storage) ListAllRecommendations(ctx context.Context, page models.Page) ([]*models.RecommendationHistory, error) {
	const op = "storage.postgresql.ListAllRecommendations"

	limit, offset := storage.ClampPage(page.Limit, page.Offset)
	return s.queryHistory(ctx, op,
		`SELECT `+historyColumns+` FROM recommendation_history ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
}

// Stats собирает сводку по пользователям, выручке и активности.
func (s *Storage) Stats(ctx context.Context) (*models.SourceStats, error) {
	const op = "storage.postgresql.Stats"

	stats := &models.SourceStats{RevenueByCurrency: map[string]int64{}}
	err := s.DB.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM users WHERE tier = 'pro'),
			(SELECT COUNT(*) FROM payments WHERE status = 'completed'),
			(SELECT COUNT(*) FROM recommendation_history),
			(SELECT COUNT(*) FROM recommendation_history WHERE clicked)`,
	).Scan(&stats.Users, &stats.ProUsers, &stats.CompletedPayments, &stats.Recommendations, &stats.ClickedRecommended)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT currency, COALESCE(SUM(amount), 0) FROM payments
		WHERE status = 'completed' GROUP BY currency`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()
	for rows.Next() {
		var (
			currency string
			sum      int64
		)
		if err := rows.Scan(&currency, &sum); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		stats.RevenueByCurrency[currency] = sum
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return stats, nil
}
