package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTMaker_GenerateAndParseToken(t *testing.T) {
	tokenTTL := 15 * time.Minute
	maker := NewJWTMaker("test_secret_key_1234567890", tokenTTL)

	tests := []struct {
		name   string
		userID string
		email  string
		role   string
		region string
	}{
		{name: "wechat user without email", userID: "u-1", role: "user", region: "CN"},
		{name: "email user", userID: "u-2", email: "li@example.cn", role: "user", region: "CN"},
		{name: "admin", userID: "u-3", email: "ops@randomlife.app", role: "admin", region: "CN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := maker.GenerateToken(tt.userID, tt.email, tt.role, tt.region)
			require.NoError(t, err)

			claims, err := maker.ParseToken(token)
			require.NoError(t, err)
			assert.Equal(t, tt.userID, claims.Subject)
			assert.Equal(t, tt.email, claims.Email)
			assert.Equal(t, tt.role, claims.Role)
			assert.Equal(t, tt.region, claims.Region)
			assert.WithinDuration(t, time.Now().Add(tokenTTL), claims.ExpiresAt.Time, time.Second)
		})
	}
}

func TestJWTMaker_ParseToken_Invalid(t *testing.T) {
	maker := NewJWTMaker("secret-a", time.Hour)
	other := NewJWTMaker("secret-b", time.Hour)

	foreign, err := other.GenerateToken("u-1", "", "user", "CN")
	require.NoError(t, err)

	expiredMaker := NewJWTMaker("secret-a", time.Hour)
	expiredMaker.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiredMaker.GenerateToken("u-1", "", "user", "CN")
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1", Issuer: Issuer},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1", Issuer: "someone-else"},
	}).SignedString([]byte("secret-a"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not.a.token"},
		{name: "wrong secret", token: foreign},
		{name: "expired", token: expired},
		{name: "none algorithm", token: noneAlg},
		{name: "wrong issuer", token: wrongIssuer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := maker.ParseToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	_, err = maker.GenerateToken("", "", "user", "CN")
	assert.Error(t, err)
}
