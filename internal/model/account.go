package model

import (
	"time"

	"github.com/lib/pq"
)

// 同步状态常量
const (
	SyncStatusSyncing = "syncing" // 同步中
	SyncStatusSuccess = "success" // 成功
	SyncStatusError   = "error"   // 失败
)

// MerchantAccount 已连接的 Google Merchant Center 账号
type MerchantAccount struct {
	BaseModel

	// 1. 归属
	UserID int64    `gorm:"index;not null"`
	User   *SysUser `gorm:"foreignKey:UserID"`

	// 2. 核心身份
	// MerchantID 对应 Google 平台的 merchant_id，与 Product 表外键保持一致
	MerchantID  string `gorm:"size:32;index;not null"`
	AccountName string `gorm:"size:255"`
	GoogleEmail string `gorm:"size:100"`

	// 3. API Token (加密存储)
	AccessTokenEnc  string         `gorm:"type:text" json:"-"`
	RefreshTokenEnc string         `gorm:"type:text" json:"-"`
	TokenExpiresAt  time.Time      // Token 具体的过期时间点
	Scopes          pq.StringArray `gorm:"type:text[]"`

	// 4. 账号状态
	// Token 刷新被拒或用户断开连接时置为 false，不做物理删除
	IsActive bool `gorm:"index;default:true"`

	// 5. 同步状态
	LastSyncAt     *time.Time
	LastSyncStatus string `gorm:"size:20"`
	LastSyncError  string `gorm:"type:text"`
	ProductsCount  int    `gorm:"default:0"`

	// 6. 商品数据 (Has Many)
	Products []Product `gorm:"foreignKey:MerchantAccountID"`
}

// AdsAccount 已连接的 Google Ads 账号
// 可选关联一个 MerchantAccount，付费指标按 offer_id 回写到其商品上
type AdsAccount struct {
	BaseModel

	UserID int64    `gorm:"index;not null"`
	User   *SysUser `gorm:"foreignKey:UserID"`

	// Ads 平台的 customer_id
	CustomerID  string `gorm:"size:32;index;not null"`
	AccountName string `gorm:"size:255"`
	GoogleEmail string `gorm:"size:100"`

	// 关联的 Merchant Center 账号 (可空，未关联时无法同步)
	MerchantAccountID *int64           `gorm:"index"`
	MerchantAccount   *MerchantAccount `gorm:"foreignKey:MerchantAccountID"`

	AccessTokenEnc  string    `gorm:"type:text" json:"-"`
	RefreshTokenEnc string    `gorm:"type:text" json:"-"`
	TokenExpiresAt  time.Time

	IsActive bool `gorm:"index;default:true"`

	LastSyncAt     *time.Time
	LastSyncStatus string `gorm:"size:20"`
	LastSyncError  string `gorm:"type:text"`
}

func (MerchantAccount) TableName() string {
	return "merchant_accounts"
}

func (AdsAccount) TableName() string {
	return "ads_accounts"
}
