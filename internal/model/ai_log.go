package model

import (
	"gorm.io/datatypes"
)

// AICallLog AI调用日志
// 无论成功失败每次调用都记一条，用于审计与成本核算
type AICallLog struct {
	BaseModel

	// 关联
	ProductID int64 `gorm:"index;comment:商品ID"`
	UserID    int64 `gorm:"index;comment:发起用户ID"`

	// 调用信息
	Provider   string `gorm:"size:32;index;comment:提供方(anthropic/gemini)"`
	ModelName  string `gorm:"size:64;comment:模型名称"`
	PromptSent string `gorm:"type:text;comment:完整提示词"`

	// 生成结果 (建议数组原样落库)
	Suggestions datatypes.JSON `gorm:"comment:生成的标题建议"`

	// 用量统计
	InputTokens  int `gorm:"default:0;comment:输入token数"`
	OutputTokens int `gorm:"default:0;comment:输出token数"`

	// 性能
	DurationMs int64 `gorm:"comment:耗时(毫秒)"`

	// 状态
	Status   string `gorm:"size:32;index;default:success;comment:状态(success/failed)"`
	ErrorMsg string `gorm:"size:1024;comment:错误信息"`
}

func (AICallLog) TableName() string {
	return "ai_call_logs"
}

// ==================== 状态常量 ====================

const (
	AICallStatusSuccess = "success"
	AICallStatusFailed  = "failed"
)

// ==================== 提供方常量 ====================

const (
	AIProviderAnthropic = "anthropic"
	AIProviderGemini    = "gemini"
)
