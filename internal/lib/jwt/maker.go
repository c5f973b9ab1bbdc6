// Package jwt выпускает и разбирает HS256-токены, которые CN выдает
// после входа через WeChat или email.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer записывается в каждый токен приложения.
const Issuer = "randomlife"

// ErrInvalidToken возвращается, если не прошла проверка подписи или claims.
var ErrInvalidToken = errors.New("invalid token")

// Maker генерирует и разбирает токены приложения.
type Maker interface {
	GenerateToken(userID, email, role, region string) (string, error)
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// CustomClaims содержит идентичность пользователя, id лежит в subject.
type CustomClaims struct {
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
	Region string `json:"region"`
	jwt.RegisteredClaims
}

// MakerImpl подписывает токены общим секретом.
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration
	now       func() time.Time
}

// NewJWTMaker создает MakerImpl.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
		now:       time.Now,
	}
}

// GenerateToken подписывает токен на заданный TTL.
func (j *MakerImpl) GenerateToken(userID, email, role, region string) (string, error) {
	const op = "jwt.GenerateToken"
	if userID == "" {
		return "", fmt.Errorf("%s: empty user id", op)
	}
	now := j.now()
	claims := CustomClaims{
		Email:  email,
		Role:   role,
		Region: region,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return signed, nil
}

// ParseToken проверяет подпись, алгоритм, issuer и срок действия.
func (j *MakerImpl) ParseToken(tokenStr string) (*CustomClaims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(j.secretKey), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	return claims, nil
}
