package service

import (
	"errors"
	"net/http"
)

// ==================== 业务错误定义 ====================

// 认证相关
var (
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrEmailExists        = errors.New("邮箱已注册")
	ErrUserNotFound       = errors.New("用户不存在")
	ErrInvalidToken       = errors.New("Token 无效")
	ErrInvalidOldPassword = errors.New("旧密码错误")
)

// OAuth 凭证相关
var (
	ErrCredentialNotConfigured = errors.New("尚未配置 Google OAuth 凭证")
	ErrInvalidClientID         = errors.New("Client ID 格式错误，应以 .apps.googleusercontent.com 结尾")
	ErrInvalidClientSecret     = errors.New("Client Secret 格式错误，应以 GOCSPX- 开头")
	ErrStateInvalid            = errors.New("授权超时或 State 无效，请重新发起")
)

// 账号相关
var (
	ErrAccountNotFound = errors.New("账号不存在或无权访问")
	ErrAccountInactive = errors.New("账号已停用，请重新授权")
	ErrReauthRequired  = errors.New("授权已失效，请重新授权")
	ErrAdsNotLinked    = errors.New("Ads 账号未关联 Merchant Center 账号，无法同步")
)

// 商品与标题优化相关
var (
	ErrProductNotFound    = errors.New("商品不存在或无权访问")
	ErrTitleTooLong       = errors.New("标题超过 150 字符上限")
	ErrTitleEmpty         = errors.New("标题不能为空")
	ErrTitleUnchanged     = errors.New("新标题与当前标题相同")
	ErrChangeNotFound     = errors.New("标题变更记录不存在或无权访问")
	ErrAlreadyRolledBack  = errors.New("该变更已回滚，不能重复回滚")
	ErrAINotConfigured    = errors.New("AI 服务未配置 API Key")
	ErrMeasureInProgress  = errors.New("测量任务正在运行中")
	ErrSuggestTooFrequent = errors.New("AI 生成请求过于频繁，请稍后重试")
)

// ==================== HTTP 状态映射 ====================

// StatusOf 业务错误到 HTTP 状态码的映射，Controller 层统一使用
func StatusOf(err error) int {
	switch {
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrChangeNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrEmailExists),
		errors.Is(err, ErrAlreadyRolledBack),
		errors.Is(err, ErrMeasureInProgress):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidOldPassword),
		errors.Is(err, ErrInvalidClientID),
		errors.Is(err, ErrInvalidClientSecret),
		errors.Is(err, ErrStateInvalid),
		errors.Is(err, ErrTitleTooLong),
		errors.Is(err, ErrTitleEmpty),
		errors.Is(err, ErrTitleUnchanged),
		errors.Is(err, ErrAdsNotLinked):
		return http.StatusBadRequest
	case errors.Is(err, ErrSuggestTooFrequent):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrCredentialNotConfigured),
		errors.Is(err, ErrAccountInactive),
		errors.Is(err, ErrReauthRequired),
		errors.Is(err, ErrAINotConfigured):
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}
