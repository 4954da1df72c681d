package dto

import "time"

// ==================== 账号连接 ====================

// ConnectRequest 发起 OAuth 授权请求
type ConnectRequest struct {
	// merchant 或 ads
	AccountType string `json:"account_type" binding:"required,oneof=merchant ads"`
}

// ConnectResponse 授权链接响应
type ConnectResponse struct {
	AuthURL string `json:"auth_url"`
	State   string `json:"state"`
}

// ==================== Merchant Center 账号 ====================

// MerchantAccountResp Merchant Center 账号响应
type MerchantAccountResp struct {
	ID             int64      `json:"id"`
	MerchantID     string     `json:"merchant_id"`
	AccountName    string     `json:"account_name"`
	GoogleEmail    string     `json:"google_email"`
	IsActive       bool       `json:"is_active"`
	TokenExpiresAt time.Time  `json:"token_expires_at"`
	LastSyncAt     *time.Time `json:"last_sync_at"`
	LastSyncStatus string     `json:"last_sync_status"`
	LastSyncError  string     `json:"last_sync_error,omitempty"`
	ProductsCount  int        `json:"products_count"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ==================== Ads 账号 ====================

// AdsAccountResp Ads 账号响应
type AdsAccountResp struct {
	ID                int64      `json:"id"`
	CustomerID        string     `json:"customer_id"`
	AccountName       string     `json:"account_name"`
	GoogleEmail       string     `json:"google_email"`
	IsActive          bool       `json:"is_active"`
	MerchantAccountID *int64     `json:"merchant_account_id"`
	LastSyncAt        *time.Time `json:"last_sync_at"`
	LastSyncStatus    string     `json:"last_sync_status"`
	LastSyncError     string     `json:"last_sync_error,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// LinkAdsAccountRequest Ads 账号关联 Merchant Center 请求
// merchant_account_id 传 null 表示解除关联
type LinkAdsAccountRequest struct {
	MerchantAccountID *int64 `json:"merchant_account_id"`
}

// ==================== 同步 ====================

// SyncResultResp 同步结果响应
type SyncResultResp struct {
	AccountID     int64  `json:"account_id"`
	Status        string `json:"status"`
	ProductsCount int    `json:"products_count,omitempty"`
	UpdatedCount  int    `json:"updated_count,omitempty"`
	Error         string `json:"error,omitempty"`
	DurationMs    int64  `json:"duration_ms"`
}
