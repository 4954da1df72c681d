package dto

import "time"

// ==================== 标题建议 ====================

// SuggestTitlesRequest 生成标题建议请求
type SuggestTitlesRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
}

// TitleSuggestion 单条标题建议
type TitleSuggestion struct {
	Title     string `json:"title"`
	Reasoning string `json:"reasoning"`
}

// SuggestTitlesResponse 标题建议响应
type SuggestTitlesResponse struct {
	ProductID    int64             `json:"product_id"`
	TitleCurrent string            `json:"title_current"`
	Suggestions  []TitleSuggestion `json:"suggestions"`
	Provider     string            `json:"provider"`
	ModelName    string            `json:"model_name"`
	DurationMs   int64             `json:"duration_ms"`
}

// ==================== 标题应用 ====================

// ApplyTitleRequest 应用新标题请求
type ApplyTitleRequest struct {
	ProductID int64  `json:"product_id" binding:"required"`
	NewTitle  string `json:"new_title" binding:"required,max=150"`
	// ai_suggestion 或 manual
	Source      string `json:"source" binding:"omitempty,oneof=ai_suggestion manual"`
	AIReasoning string `json:"ai_reasoning" binding:"omitempty,max=2000"`
}

// ApplyTitleResponse 应用新标题响应
type ApplyTitleResponse struct {
	ProductID     int64     `json:"product_id"`
	TitleChangeID int64     `json:"title_change_id"`
	OldTitle      string    `json:"old_title"`
	NewTitle      string    `json:"new_title"`
	Status        string    `json:"status"`
	ChangedAt     time.Time `json:"changed_at"`
}
