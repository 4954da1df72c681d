package google

import (
	"context"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
)

// ==================== OAuth 客户端 ====================

// OAuthClient Google OAuth2 授权码流程客户端
// Client ID / Secret 由用户自备，每个用户一套
type OAuthClient struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// NewOAuthClient 创建 OAuth 客户端
func NewOAuthClient(clientID, clientSecret, redirectURI string) *OAuthClient {
	return &OAuthClient{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURI:  redirectURI,
	}
}

// TokenResp Token 端点响应
type TokenResp struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
	TokenType    string `json:"token_type"`
	Error        string `json:"error,omitempty"`
	ErrorDesc    string `json:"error_description,omitempty"`
}

// UserInfoResp 用户信息响应
type UserInfoResp struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// BuildAuthURL 拼接授权 URL
// access_type=offline + prompt=consent 才能拿到 refresh_token
func (c *OAuthClient) BuildAuthURL(scopes []string, state string) string {
	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", c.ClientID)
	params.Set("redirect_uri", c.RedirectURI)
	params.Set("scope", strings.Join(scopes, " "))
	params.Set("state", state)
	params.Set("access_type", "offline")
	params.Set("prompt", "consent")

	return OAuthAuthURL + "?" + params.Encode()
}

// ExchangeCode 授权码换 Token
func (c *OAuthClient) ExchangeCode(ctx context.Context, code string) (*TokenResp, error) {
	var result TokenResp
	resp, err := withRetry(func() (*resty.Response, error) {
		return newClient().R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/x-www-form-urlencoded").
			SetFormData(map[string]string{
				"grant_type":    "authorization_code",
				"code":          code,
				"client_id":     c.ClientID,
				"client_secret": c.ClientSecret,
				"redirect_uri":  c.RedirectURI,
			}).
			SetResult(&result).
			Post(OAuthTokenURL)
	})
	if err != nil {
		return nil, err
	}
	if err := checkResp(resp, "token exchange failed"); err != nil {
		return nil, err
	}
	return &result, nil
}

// RefreshToken 刷新 Access Token
// Google 刷新时通常不轮换 refresh_token，响应里该字段多半为空
func (c *OAuthClient) RefreshToken(ctx context.Context, refreshToken string) (*TokenResp, error) {
	var result TokenResp
	resp, err := withRetry(func() (*resty.Response, error) {
		return newClient().R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/x-www-form-urlencoded").
			SetFormData(map[string]string{
				"grant_type":    "refresh_token",
				"refresh_token": refreshToken,
				"client_id":     c.ClientID,
				"client_secret": c.ClientSecret,
			}).
			SetResult(&result).
			Post(OAuthTokenURL)
	})
	if err != nil {
		return nil, err
	}
	if err := checkResp(resp, "token refresh denied"); err != nil {
		return nil, err
	}
	return &result, nil
}

// FetchUserInfo 获取授权账号的邮箱信息
func (c *OAuthClient) FetchUserInfo(ctx context.Context, accessToken string) (*UserInfoResp, error) {
	var result UserInfoResp
	resp, err := withRetry(func() (*resty.Response, error) {
		return newClient().R().
			SetContext(ctx).
			SetAuthToken(accessToken).
			SetResult(&result).
			Get(UserInfoURL)
	})
	if err != nil {
		return nil, err
	}
	if err := checkResp(resp, "userinfo fetch failed"); err != nil {
		return nil, err
	}
	return &result, nil
}

// Revoke 撤销授权（断开连接时调用，失败不阻断本地清理）
func (c *OAuthClient) Revoke(ctx context.Context, token string) error {
	resp, err := newClient().R().
		SetContext(ctx).
		SetQueryParam("token", token).
		Post(OAuthRevokeURL)
	if err != nil {
		return err
	}
	return checkResp(resp, "token revoke failed")
}
