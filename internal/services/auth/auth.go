// Package auth определяет пользователей обоих развертываний: identity Supabase
// в INTL, аккаунты WeChat и email с токенами приложения в CN.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/randomlife/internal/auth"
	"github.com/magabrotheeeer/randomlife/internal/lib/jwt"
	"github.com/magabrotheeeer/randomlife/internal/lib/password"
	"github.com/magabrotheeeer/randomlife/internal/models"
	"github.com/magabrotheeeer/randomlife/internal/region"
	"github.com/magabrotheeeer/randomlife/internal/storage"
)

var (
	// ErrInvalidCredentials возвращается и для неизвестного email, и для неверного пароля.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRegionMismatch возвращается для способов входа другого развертывания.
	ErrRegionMismatch = errors.New("sign-in method is not available in this region")
)

// Repository хранилище пользователей.
type Repository interface {
	CreateUser(ctx context.Context, user models.User) (string, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByWechatOpenID(ctx context.Context, openID string) (*models.User, error)
	UpdateUserProfile(ctx context.Context, id string, upd models.ProfileUpdate) error
}

// WeChatExchanger превращает OAuth-код в профиль WeChat.
type WeChatExchanger interface {
	Exchange(ctx context.Context, code string) (*auth.WeChatUser, error)
}

// Seeder сохраняет интересы из онбординга.
type Seeder interface {
	Seed(ctx context.Context, userID string, interests map[models.Category][]string) error
}

// Session результат входа в CN.
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Service реализует вход и управление профилем.
type Service struct {
	users  Repository
	tokens jwt.Maker
	wechat WeChatExchanger
	seeder Seeder
	region region.Region
	log    *slog.Logger
}

// New создает Service. tokens и wechat используются только в CN.
func New(users Repository, tokens jwt.Maker, wechat WeChatExchanger, seeder Seeder, r region.Region, log *slog.Logger) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		wechat: wechat,
		seeder: seeder,
		region: r,
		log:    log,
	}
}

// Me возвращает пользователя для id. В INTL строка создается при первом
// обращении из профиля Supabase.
func (s *Service) Me(ctx context.Context, id auth.Identity) (*models.User, error) {
	const op = "services.auth.Me"

	user, err := s.users.GetUser(ctx, id.UserID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, storage.ErrNotFound) || s.region != region.INTL {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.users.CreateUser(ctx, models.User{
		ID:        id.UserID,
		Email:     strings.ToLower(id.Email),
		Name:      id.Name,
		AvatarURL: id.AvatarURL,
		Region:    string(region.INTL),
		Tier:      models.TierFree,
		Role:      models.RoleUser,
		Provider:  id.Provider,
	})
	if err != nil && !errors.Is(err, storage.ErrAlreadyExists) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err == nil {
		s.log.Info("user created from supabase identity", slog.String("user_id", id.UserID), slog.String("provider", id.Provider))
	}

	user, err = s.users.GetUser(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

func (s *Service) requireCN(op string) error {
	if s.region != region.CN {
		return fmt.Errorf("%s: %w", op, ErrRegionMismatch)
	}
	return nil
}

func (s *Service) session(user *models.User) (*Session, error) {
	token, err := s.tokens.GenerateToken(user.ID, user.Email, user.Role, string(s.region))
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user}, nil
}

// WeChatLogin обменивает OAuth-код, при первом входе создает пользователя.
func (s *Service) WeChatLogin(ctx context.Context, code string) (*Session, error) {
	const op = "services.auth.WeChatLogin"

	if err := s.requireCN(op); err != nil {
		return nil, err
	}
	profile, err := s.wechat.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.users.GetUserByWechatOpenID(ctx, profile.OpenID)
	if errors.Is(err, storage.ErrNotFound) {
		name := profile.Nickname
		if name == "" {
			name = "微信用户"
		}
		var id string
		id, err = s.users.CreateUser(ctx, models.User{
			Name:         name,
			AvatarURL:    profile.HeadImgURL,
			Region:       string(region.CN),
			Tier:         models.TierFree,
			Role:         models.RoleUser,
			Provider:     "wechat",
			WechatOpenID: profile.OpenID,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		s.log.Info("user created from wechat", slog.String("user_id", id))
		user, err = s.users.GetUser(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sess, err := s.session(user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sess, nil
}

// Register создает email-аккаунт CN.
func (s *Service) Register(ctx context.Context, email, name, rawPassword string) (*Session, error) {
	const op = "services.auth.Register"

	if err := s.requireCN(op); err != nil {
		return nil, err
	}
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	email = strings.ToLower(strings.TrimSpace(email))
	id, err := s.users.CreateUser(ctx, models.User{
		Email:        email,
		Name:         name,
		Region:       string(region.CN),
		Tier:         models.TierFree,
		Role:         models.RoleUser,
		Provider:     "email",
		PasswordHash: hashed,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sess, err := s.session(user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sess, nil
}

// Login проверяет email и пароль CN.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (*Session, error) {
	const op = "services.auth.Login"

	if err := s.requireCN(op); err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if user.PasswordHash == "" || password.CompareHash(user.PasswordHash, rawPassword) != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	sess, err := s.session(user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sess, nil
}

// UpdateProfile меняет редактируемые поля профиля и возвращает новый профиль.
func (s *Service) UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.User, error) {
	const op = "services.auth.UpdateProfile"

	if err := s.users.UpdateUserProfile(ctx, userID, upd); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// CompleteOnboarding заполняет предпочтения выбранными интересами и отмечает
// онбординг пройденным.
func (s *Service) CompleteOnboarding(ctx context.Context, userID string, interests map[models.Category][]string) (*models.User, error) {
	const op = "services.auth.CompleteOnboarding"

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.seeder.Seed(ctx, userID, interests); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	done := true
	user, err := s.UpdateProfile(ctx, userID, models.ProfileUpdate{OnboardingCompleted: &done})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}
