package auth

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/randomlife/internal/lib/jwt"
)

// Identity аутентифицированный вызывающий, определенный middleware.
type Identity struct {
	UserID    string
	Email     string
	Name      string
	AvatarURL string
	// Provider способ входа, например google или wechat.
	Provider string
	// Role роль в приложении для токенов CN. В токенах Supabase ее нет.
	Role string
}

// FromSupabase переводит проверенные claims Supabase в Identity.
func FromSupabase(c *SupabaseClaims) Identity {
	provider := c.AppMetadata.Provider
	if provider == "" {
		provider = "email"
	}
	return Identity{
		UserID:    c.Subject,
		Email:     c.Email,
		Name:      c.DisplayName(),
		AvatarURL: c.UserMetadata.AvatarURL,
		Provider:  provider,
	}
}

// Verifier превращает bearer-токен в Identity вызывающего.
type Verifier interface {
	Identify(token string) (Identity, error)
}

// Identify проверяет access-токен Supabase.
func (v *SupabaseVerifier) Identify(token string) (Identity, error) {
	claims, err := v.Verify(token)
	if err != nil {
		return Identity{}, err
	}
	return FromSupabase(claims), nil
}

// AppTokenVerifier принимает токены, выданные эндпоинтами входа CN.
type AppTokenVerifier struct {
	maker jwt.Maker
}

// NewAppTokenVerifier оборачивает maker в Verifier.
func NewAppTokenVerifier(maker jwt.Maker) *AppTokenVerifier {
	return &AppTokenVerifier{maker: maker}
}

// Identify разбирает токен приложения.
func (v *AppTokenVerifier) Identify(token string) (Identity, error) {
	const op = "auth.AppTokenVerifier.Identify"
	claims, err := v.maker.ParseToken(token)
	if err != nil {
		return Identity{}, fmt.Errorf("%s: %w", op, err)
	}
	return Identity{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}

type identityKey struct{}

// WithIdentity кладет id в ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom достает identity из ctx, если она там есть.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
