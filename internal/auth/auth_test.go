package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rljwt "github.com/magabrotheeeer/randomlife/internal/lib/jwt"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signSupabase(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(method, claims)
	key := any([]byte(secret))
	if method == jwt.SigningMethodNone {
		key = jwt.UnsafeAllowNoneSignatureType
	}
	s, err := tok.SignedString(key)
	require.NoError(t, err)
	return s
}

func TestSupabaseVerifier_Verify(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	v := NewSupabaseVerifier(testSecret)
	v.now = func() time.Time { return now }

	valid := jwt.MapClaims{
		"sub":           "2b0c1f0e-5a55-4c1c-9d1e-3f0a4d1c2b3a",
		"aud":           "authenticated",
		"exp":           now.Add(time.Hour).Unix(),
		"email":         "ann@example.com",
		"role":          "authenticated",
		"user_metadata": map[string]any{"full_name": "Ann Lee", "avatar_url": "https://x/a.png"},
		"app_metadata":  map[string]any{"provider": "google"},
	}
	with := func(k string, val any) jwt.MapClaims {
		c := jwt.MapClaims{}
		for key, v := range valid {
			c[key] = v
		}
		if val == nil {
			delete(c, k)
		} else {
			c[k] = val
		}
		return c
	}

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{name: "valid", token: signSupabase(t, testSecret, jwt.SigningMethodHS256, valid)},
		{name: "wrong secret", token: signSupabase(t, "other-secret", jwt.SigningMethodHS256, valid), wantErr: true},
		{name: "expired", token: signSupabase(t, testSecret, jwt.SigningMethodHS256, with("exp", now.Add(-time.Minute).Unix())), wantErr: true},
		{name: "missing exp", token: signSupabase(t, testSecret, jwt.SigningMethodHS256, with("exp", nil)), wantErr: true},
		{name: "anon audience", token: signSupabase(t, testSecret, jwt.SigningMethodHS256, with("aud", "anon")), wantErr: true},
		{name: "no subject", token: signSupabase(t, testSecret, jwt.SigningMethodHS256, with("sub", nil)), wantErr: true},
		{name: "none alg", token: signSupabase(t, testSecret, jwt.SigningMethodNone, valid), wantErr: true},
		{name: "garbage", token: "not.a.jwt", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := v.Verify(tt.token)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "2b0c1f0e-5a55-4c1c-9d1e-3f0a4d1c2b3a", claims.Subject)
			assert.Equal(t, "ann@example.com", claims.Email)
			assert.Equal(t, "Ann Lee", claims.DisplayName())
			assert.Equal(t, "google", claims.AppMetadata.Provider)
		})
	}
}

func TestSupabaseVerifier_NoSecret(t *testing.T) {
	_, err := NewSupabaseVerifier("").Verify("x")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func newWeChatServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/sns/oauth2/access_token", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "wx-app", q.Get("appid"))
		assert.Equal(t, "authorization_code", q.Get("grant_type"))
		if q.Get("code") != "good-code" {
			_ = json.NewEncoder(w).Encode(map[string]any{"errcode": 40029, "errmsg": "invalid code"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "at-1", "openid": "o-123", "expires_in": 7200})
	})
	mux.HandleFunc("/sns/userinfo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "at-1", r.URL.Query().Get("access_token"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"openid": "o-123", "nickname": "小明", "headimgurl": "https://thirdwx.qlogo.cn/x", "unionid": "u-9",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestWeChatOAuth_Exchange(t *testing.T) {
	srv := newWeChatServer(t)
	c := NewWeChatOAuth("wx-app", "wx-secret", srv.URL+"/", 2*time.Second)

	user, err := c.Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, "o-123", user.OpenID)
	assert.Equal(t, "小明", user.Nickname)
	assert.Equal(t, "u-9", user.UnionID)

	_, err = c.Exchange(context.Background(), "bad-code")
	assert.ErrorIs(t, err, ErrWeChatCode)
}

func TestWeChatOAuth_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewWeChatOAuth("a", "b", srv.URL, time.Second).Exchange(context.Background(), "c")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrWeChatCode)
}

func TestIdentity(t *testing.T) {
	c := &SupabaseClaims{Email: "ada@example.com"}
	c.Subject = "11111111-2222-3333-4444-555555555555"
	c.UserMetadata.Name = "Ada"
	c.UserMetadata.AvatarURL = "https://example.com/a.png"

	id := FromSupabase(c)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", id.UserID)
	assert.Equal(t, "Ada", id.Name)
	assert.Equal(t, "email", id.Provider)

	_, ok := IdentityFrom(context.Background())
	assert.False(t, ok)

	got, ok := IdentityFrom(WithIdentity(context.Background(), id))
	require.True(t, ok)
	assert.Equal(t, id, got)
}

func TestVerifiers_Identify(t *testing.T) {
	maker := rljwt.NewJWTMaker(testSecret, time.Hour)
	token, err := maker.GenerateToken("cn-user-1", "li@example.cn", "admin", "CN")
	require.NoError(t, err)

	id, err := NewAppTokenVerifier(maker).Identify(token)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "cn-user-1", Email: "li@example.cn", Role: "admin"}, id)

	_, err = NewAppTokenVerifier(maker).Identify("garbage")
	assert.ErrorIs(t, err, rljwt.ErrInvalidToken)

	supabase := signSupabase(t, testSecret, jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":          "intl-user-1",
		"aud":          "authenticated",
		"exp":          time.Now().Add(time.Hour).Unix(),
		"email":        "ann@example.com",
		"app_metadata": map[string]any{"provider": "github"},
	})
	id, err = NewSupabaseVerifier(testSecret).Identify(supabase)
	require.NoError(t, err)
	assert.Equal(t, "intl-user-1", id.UserID)
	assert.Equal(t, "github", id.Provider)

	_, err = NewSupabaseVerifier("other-secret").Identify(supabase)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
