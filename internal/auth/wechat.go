package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrWeChatCode возвращается, если WeChat отклонил код авторизации.
var ErrWeChatCode = errors.New("wechat rejected the authorization code")

// WeChatUser профиль из sns/userinfo.
type WeChatUser struct {
	OpenID     string `json:"openid"`
	UnionID    string `json:"unionid"`
	Nickname   string `json:"nickname"`
	HeadImgURL string `json:"headimgurl"`
}

type wechatError struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

type wechatToken struct {
	wechatError
	AccessToken string `json:"access_token"`
	OpenID      string `json:"openid"`
}

type wechatUserInfo struct {
	wechatError
	WeChatUser
}

// WeChatOAuth обменивает коды входа с сайта на профили пользователей.
type WeChatOAuth struct {
	appID     string
	appSecret string
	baseURL   string
	http      *http.Client
}

// NewWeChatOAuth создает клиент для baseURL (https://api.weixin.qq.com).
func NewWeChatOAuth(appID, appSecret, baseURL string, timeout time.Duration) *WeChatOAuth {
	return &WeChatOAuth{
		appID:     appID,
		appSecret: appSecret,
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: timeout},
	}
}

// Exchange обменивает code на access token и загружает профиль пользователя.
func (c *WeChatOAuth) Exchange(ctx context.Context, code string) (*WeChatUser, error) {
	const op = "auth.WeChatOAuth.Exchange"

	q := url.Values{}
	q.Set("appid", c.appID)
	q.Set("secret", c.appSecret)
	q.Set("code", code)
	q.Set("grant_type", "authorization_code")

	var tok wechatToken
	if err := c.get(ctx, "/sns/oauth2/access_token", q, &tok); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if tok.ErrCode != 0 || tok.AccessToken == "" {
		return nil, fmt.Errorf("%s: %w: %d %s", op, ErrWeChatCode, tok.ErrCode, tok.ErrMsg)
	}

	q = url.Values{}
	q.Set("access_token", tok.AccessToken)
	q.Set("openid", tok.OpenID)
	q.Set("lang", "zh_CN")

	var info wechatUserInfo
	if err := c.get(ctx, "/sns/userinfo", q, &info); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if info.ErrCode != 0 {
		return nil, fmt.Errorf("%s: userinfo: %d %s", op, info.ErrCode, info.ErrMsg)
	}
	if info.OpenID == "" {
		info.OpenID = tok.OpenID
	}
	return &info.WeChatUser, nil
}

func (c *WeChatOAuth) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
