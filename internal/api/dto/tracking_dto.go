package dto

import "time"

// ==================== 变更列表 ====================

// TitleChangeListRequest 标题变更列表查询参数
type TitleChangeListRequest struct {
	AccountID    int64  `form:"account_id"`
	ProductID    int64  `form:"product_id"`
	ImpactStatus string `form:"impact_status" binding:"omitempty,oneof=pending positive neutral negative"`
	OnlyPending  bool   `form:"only_pending"`
	Page         int    `form:"page,default=1"`
	PageSize     int    `form:"page_size,default=20" binding:"omitempty,max=100"`
}

// TitleChangeResp 标题变更响应
type TitleChangeResp struct {
	ID           int64  `json:"id"`
	ProductID    int64  `json:"product_id"`
	ProductTitle string `json:"product_title,omitempty"`
	OfferID      string `json:"offer_id,omitempty"`

	OldTitle     string    `json:"old_title"`
	NewTitle     string    `json:"new_title"`
	ChangeSource string    `json:"change_source"`
	AIReasoning  string    `json:"ai_reasoning,omitempty"`
	ChangedAt    time.Time `json:"changed_at"`

	// 变更前 14 天快照
	FreeClicksBefore14d      int `json:"free_clicks_before_14d"`
	FreeImpressionsBefore14d int `json:"free_impressions_before_14d"`
	TotalClicksBefore14d     int `json:"total_clicks_before_14d"`

	// 变更后 14 天指标（测量前为 null）
	FreeClicksAfter14d      *int `json:"free_clicks_after_14d"`
	FreeImpressionsAfter14d *int `json:"free_impressions_after_14d"`
	TotalClicksAfter14d     *int `json:"total_clicks_after_14d"`

	MeasuredAt                  *time.Time `json:"measured_at"`
	FreeClicksVariationPercent  *float64   `json:"free_clicks_variation_percent"`
	TotalClicksVariationPercent *float64   `json:"total_clicks_variation_percent"`
	ImpactStatus                string     `json:"impact_status"`

	RolledBackAt   *time.Time `json:"rolled_back_at"`
	RollbackReason string     `json:"rollback_reason,omitempty"`
}

// TitleChangeListResp 标题变更列表响应
type TitleChangeListResp struct {
	Code     int               `json:"code"`
	Message  string            `json:"message"`
	Data     []TitleChangeResp `json:"data"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// ==================== 回滚 ====================

// RollbackRequest 回滚请求
type RollbackRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=255"`
}

// RollbackResponse 回滚响应
type RollbackResponse struct {
	TitleChangeID int64  `json:"title_change_id"`
	ProductID     int64  `json:"product_id"`
	RestoredTitle string `json:"restored_title"`
	Status        string `json:"status"`
}

// ==================== 统计 ====================

// TrackingStatsResp 影响统计响应
type TrackingStatsResp struct {
	Pending  int64 `json:"pending"`
	Positive int64 `json:"positive"`
	Neutral  int64 `json:"neutral"`
	Negative int64 `json:"negative"`
}

// ==================== 测量任务 ====================

// MeasureRunResp 一轮测量任务的结果
type MeasureRunResp struct {
	Checked    int      `json:"checked"`
	Measured   int      `json:"measured"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors,omitempty"`
	DurationMs int64    `json:"duration_ms"`
}
