package model

// SysUser 系统用户 (商家登录账号)
type SysUser struct {
	BaseModel

	Email        string `gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	FullName     string `gorm:"size:100"`
	AvatarUrl    string `gorm:"size:255"`

	// 角色: admin, user
	Role string `gorm:"size:20;default:'user'"`

	// 关联关系
	MerchantAccounts []MerchantAccount `gorm:"foreignKey:UserID"`
	AdsAccounts      []AdsAccount      `gorm:"foreignKey:UserID"`
}

// UserCredential 用户自备的 Google OAuth 客户端凭证 (敏感表)
// Client ID / Secret 均为 AES-GCM 加密存储，接口层永远不回传明文
type UserCredential struct {
	BaseModel

	// uniqueIndex 确保 1:1 关系 (一个用户只有一套凭证)
	UserID int64 `gorm:"uniqueIndex;not null"`

	ClientIDEnc     string `gorm:"type:text;not null" json:"-"`
	ClientSecretEnc string `gorm:"type:text;not null" json:"-"`
}

func (SysUser) TableName() string {
	return "sys_users"
}

func (UserCredential) TableName() string {
	return "user_credentials"
}
