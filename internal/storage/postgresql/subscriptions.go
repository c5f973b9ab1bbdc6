package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/randomlife/internal/models"
)

func (s *Storage) GetSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	const op = "storage.postgresql.GetSubscription"

	var (
		sub  models.Subscription
		plan string
		tier string
	)
	err := s.DB.QueryRowContext(ctx, `
		SELECT user_id, plan, tier, status, start_date, end_date, updated_at
		FROM subscriptions WHERE user_id = $1`, userID,
	).Scan(&sub.UserID, &plan, &tier, &sub.Status, &sub.StartDate, &sub.EndDate, &sub.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	sub.Plan = models.PlanType(plan)
	sub.Tier = models.Tier(tier)
	return &sub, nil
}

// UpsertSubscription держит одну строку на пользователя.
func (s *Storage) UpsertSubscription(ctx context.Context, sub models.Subscription) error {
	const op = "storage.postgresql.UpsertSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO subscriptions (user_id, plan, tier, status, start_date, end_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			plan = EXCLUDED.plan,
			tier = EXCLUDED.tier,
			status = EXCLUDED.status,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			updated_at = NOW()`,
		sub.UserID, string(sub.Plan), string(sub.Tier), sub.Status, sub.StartDate, sub.EndDate)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return nil
}

// FindExpiringSubscriptions возвращает активные подписки с окончанием в [from, to).
func (s *Storage) FindExpiringSubscriptions(ctx context.Context, from, to time.Time) ([]*models.ExpiringSubscription, error) {
	const op = "storage.postgresql.FindExpiringSubscriptions"

	rows, err := s.DB.QueryContext(ctx, `
		SELECT s.user_id, COALESCE(u.email, ''), u.name, s.plan, s.end_date
		FROM subscriptions s
		JOIN users u ON u.id = s.user_id
		WHERE s.status = 'active' AND s.end_date >= $1 AND s.end_date < $2
		ORDER BY s.end_date`, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.ExpiringSubscription
	for rows.Next() {
		var (
			e    models.ExpiringSubscription
			plan string
		)
		if err := rows.Scan(&e.UserID, &e.Email, &e.Name, &plan, &e.EndDate); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		e.Plan = models.PlanType(plan)
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
