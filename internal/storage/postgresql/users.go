package postgresql

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/randomlife/internal/models"
)

const userColumns = `id, COALESCE(email, ''), name, avatar_url, region, tier, subscription_status,
	role, provider, COALESCE(wechat_openid, ''), password_hash, onboarding_completed, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var tier string
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.AvatarURL, &u.Region, &tier, &u.SubscriptionStatus,
		&u.Role, &u.Provider, &u.WechatOpenID, &u.PasswordHash, &u.OnboardingCompleted, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Tier = models.Tier(tier)
	return &u, nil
}

// CreateUser добавляет пользователя. Пользователи Supabase сохраняют id из
// auth.users, поэтому непустой ID используется как есть.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.postgresql.CreateUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if user.Tier == "" {
		user.Tier = models.TierFree
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.SubscriptionStatus == "" {
		user.SubscriptionStatus = models.SubscriptionNone
	}

	query := `INSERT INTO users (id, email, name, avatar_url, region, tier, subscription_status,
			role, provider, wechat_openid, password_hash, onboarding_completed)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), NULLIF($2, ''), $3, $4, $5, $6, $7,
			$8, $9, NULLIF($10, ''), $11, $12)
		RETURNING id`
	var id string
	err := s.DB.QueryRowContext(ctx, query,
		user.ID, user.Email, user.Name, user.AvatarURL, user.Region, string(user.Tier), user.SubscriptionStatus,
		user.Role, user.Provider, user.WechatOpenID, user.PasswordHash, user.OnboardingCompleted,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return id, nil
}

func (s *Storage) GetUser(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.postgresql.GetUser"

	u, err := scanUser(s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return u, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.postgresql.GetUserByEmail"

	u, err := scanUser(s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return u, nil
}

func (s *Storage) GetUserByWechatOpenID(ctx context.Context, openID string) (*models.User, error) {
	const op = "storage.postgresql.GetUserByWechatOpenID"

	u, err := scanUser(s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE wechat_openid = $1`, openID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return u, nil
}

// UpdateUserProfile применяет непустые поля upd.
func (s *Storage) UpdateUserProfile(ctx context.Context, id string, upd models.ProfileUpdate) error {
	const op = "storage.postgresql.UpdateUserProfile"

	res, err := s.DB.ExecContext(ctx, `
		UPDATE users SET
			name = COALESCE($2, name),
			avatar_url = COALESCE($3, avatar_url),
			onboarding_completed = COALESCE($4, onboarding_completed),
			updated_at = NOW()
		WHERE id = $1`,
		id, upd.Name, upd.AvatarURL, upd.OnboardingCompleted)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return checkAffected(op, res)
}

func (s *Storage) UpdateUserTier(ctx context.Context, id string, tier models.Tier, subscriptionStatus string) error {
	const op = "storage.postgresql.UpdateUserTier"

	res, err := s.DB.ExecContext(ctx, `
		UPDATE users SET tier = $2, subscription_status = $3, updated_at = NOW()
		WHERE id = $1`, id, string(tier), subscriptionStatus)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return checkAffected(op, res)
}
