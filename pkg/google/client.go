package google

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
)

// API 基础地址
const (
	OAuthAuthURL       = "https://accounts.google.com/o/oauth2/v2/auth"
	OAuthTokenURL      = "https://oauth2.googleapis.com/token"
	OAuthRevokeURL     = "https://oauth2.googleapis.com/revoke"
	UserInfoURL        = "https://www.googleapis.com/oauth2/v2/userinfo"
	ContentAPIBase     = "https://shoppingcontent.googleapis.com/content/v2.1"
	AdsAPIBase         = "https://googleads.googleapis.com/v16"
	ScopeContent       = "https://www.googleapis.com/auth/content"
	ScopeAdwords       = "https://www.googleapis.com/auth/adwords"
	ScopeUserinfoEmail = "https://www.googleapis.com/auth/userinfo.email"
)

// APIError Google 接口返回的业务错误
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("google api error [%d]: %s", e.StatusCode, e.Message)
}

// IsAuthError 401/403 视为授权问题，调用方据此触发重新授权流程
func (e *APIError) IsAuthError() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// newClient 创建统一配置的 resty 客户端
func newClient() *resty.Client {
	return resty.New().
		SetTimeout(60 * time.Second).
		SetHeader("Content-Type", "application/json")
}

// withRetry 对临时性错误 (429/5xx) 做指数退避重试
// 4xx 业务错误直接返回，重试无意义
func withRetry(op func() (*resty.Response, error)) (*resty.Response, error) {
	var resp *resty.Response

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	err := backoff.Retry(func() error {
		var err error
		resp, err = op()
		if err != nil {
			return err
		}
		code := resp.StatusCode()
		if code == 429 || code >= 500 {
			return fmt.Errorf("retryable status %d", code)
		}
		return nil
	}, policy)

	return resp, err
}

// checkResp 统一的响应状态检查
func checkResp(resp *resty.Response, what string) error {
	if resp.StatusCode() >= 200 && resp.StatusCode() < 300 {
		return nil
	}
	return &APIError{
		StatusCode: resp.StatusCode(),
		Message:    what,
		Body:       resp.String(),
	}
}
