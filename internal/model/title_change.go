package model

import (
	"time"
)

// ==================== 变更来源常量 ====================

const (
	ChangeSourceAI       = "ai_suggestion" // AI 建议
	ChangeSourceManual   = "manual"        // 手动编辑
	ChangeSourceRollback = "rollback"      // 回滚
)

// ==================== 影响状态常量 ====================

// ImpactStatus 标题变更的影响分类
type ImpactStatus string

const (
	ImpactPending  ImpactStatus = "pending"
	ImpactPositive ImpactStatus = "positive"
	ImpactNeutral  ImpactStatus = "neutral"
	ImpactNegative ImpactStatus = "negative"
)

// ==================== 标题变更模型 ====================

// TitleChange 一次应用到 Google 目录的标题修改
// 创建时快照变更前 14 天指标；测量任务写入变更后指标并定级；可选地被回滚一次
type TitleChange struct {
	BaseModel

	// 1. 归属
	ProductID int64    `gorm:"index;not null"`
	Product   *Product `gorm:"foreignKey:ProductID"`

	// 2. 变更内容
	OldTitle     string `gorm:"size:255;not null"`
	NewTitle     string `gorm:"size:255;not null"`
	ChangeSource string `gorm:"size:20;default:'ai_suggestion'"`
	AIReasoning  string `gorm:"type:text"`
	ChangedAt    time.Time `gorm:"index"`
	ChangedBy    int64     `gorm:"index"`

	// 3. 变更前快照 (14 天窗口)
	// 数字结尾的字段名推导不出带下划线的列名，显式指定 column
	FreeClicksBefore14d      int `gorm:"column:free_clicks_before_14d;default:0"`
	FreeImpressionsBefore14d int `gorm:"column:free_impressions_before_14d;default:0"`
	AdsClicksBefore14d       int `gorm:"column:ads_clicks_before_14d;default:0"`
	AdsImpressionsBefore14d  int `gorm:"column:ads_impressions_before_14d;default:0"`
	TotalClicksBefore14d     int `gorm:"column:total_clicks_before_14d;default:0"`

	// 4. 变更后快照 (测量任务写入，测量前为 NULL)
	FreeClicksAfter14d      *int `gorm:"column:free_clicks_after_14d"`
	FreeImpressionsAfter14d *int `gorm:"column:free_impressions_after_14d"`
	TotalClicksAfter14d     *int `gorm:"column:total_clicks_after_14d"`

	// 5. 测量结果
	// 不变量：要么 measured_at 为空且 impact_status=pending，
	// 要么 measured_at 已设置且 impact_status ∈ {positive, neutral, negative}
	MeasuredAt                 *time.Time `gorm:"index"`
	FreeClicksVariationPercent *float64   `gorm:"type:decimal(8,2)"`
	TotalClicksVariationPercent *float64  `gorm:"type:decimal(8,2)"`
	ImpactStatus               ImpactStatus `gorm:"size:20;index;default:'pending'"`

	// 6. 回滚信息 (只能设置一次)
	RolledBackAt   *time.Time
	RollbackReason string `gorm:"size:255"`
}

// IsPending 是否尚未测量
func (t *TitleChange) IsPending() bool {
	return t.MeasuredAt == nil && t.ImpactStatus == ImpactPending
}

// IsRolledBack 是否已回滚
func (t *TitleChange) IsRolledBack() bool {
	return t.RolledBackAt != nil
}

func (TitleChange) TableName() string {
	return "title_changes"
}
