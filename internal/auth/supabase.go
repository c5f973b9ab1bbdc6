// Package auth проверяет источники идентичности обоих развертываний:
// access-токены Supabase для INTL и обмен OAuth-кода WeChat для CN.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken возвращается, если access-токен Supabase не прошел проверку.
var ErrInvalidToken = errors.New("invalid supabase token")

// supabaseAudience audience токенов, выданных вошедшим пользователям.
const supabaseAudience = "authenticated"

// SupabaseClaims часть claims access-токена Supabase, нужная API.
type SupabaseClaims struct {
	Email        string `json:"email"`
	Role         string `json:"role"`
	UserMetadata struct {
		FullName  string `json:"full_name"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	} `json:"user_metadata"`
	AppMetadata struct {
		Provider string `json:"provider"`
	} `json:"app_metadata"`
	jwt.RegisteredClaims
}

// DisplayName предпочитает полное имя из OAuth-профиля.
func (c *SupabaseClaims) DisplayName() string {
	if c.UserMetadata.FullName != "" {
		return c.UserMetadata.FullName
	}
	return c.UserMetadata.Name
}

// SupabaseVerifier проверяет HS256 access-токены, подписанные JWT-секретом проекта.
type SupabaseVerifier struct {
	secret []byte
	now    func() time.Time
}

// NewSupabaseVerifier создает верификатор для секрета проекта.
func NewSupabaseVerifier(secret string) *SupabaseVerifier {
	return &SupabaseVerifier{secret: []byte(secret), now: time.Now}
}

// Verify разбирает token и возвращает его claims.
func (v *SupabaseVerifier) Verify(token string) (*SupabaseClaims, error) {
	const op = "auth.SupabaseVerifier.Verify"
	if len(v.secret) == 0 {
		return nil, fmt.Errorf("%s: %w: secret is not configured", op, ErrInvalidToken)
	}
	parsed, err := jwt.ParseWithClaims(token, &SupabaseClaims{}, func(_ *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(supabaseAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*SupabaseClaims)
	if !ok || claims.Subject == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	return claims, nil
}
