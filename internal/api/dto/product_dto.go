package dto

import "time"

// ==================== 商品列表 ====================

// ProductListRequest 商品列表查询参数
type ProductListRequest struct {
	AccountID int64  `form:"account_id"`
	Status    string `form:"status" binding:"omitempty,oneof=original testing optimized rolled_back"`
	Keyword   string `form:"keyword"`
	SortBy    string `form:"sort_by" binding:"omitempty,oneof=clicks_14d clicks_30d impressions_30d updated_at"`
	Page      int    `form:"page,default=1"`
	PageSize  int    `form:"page_size,default=20" binding:"omitempty,max=100"`
}

// ProductResp 商品响应
type ProductResp struct {
	ID                int64  `json:"id"`
	MerchantAccountID int64  `json:"merchant_account_id"`
	GoogleProductID   string `json:"google_product_id"`
	OfferID           string `json:"offer_id"`

	TitleOriginal string `json:"title_original"`
	TitleCurrent  string `json:"title_current"`

	Description   string  `json:"description,omitempty"`
	Link          string  `json:"link,omitempty"`
	ImageLink     string  `json:"image_link,omitempty"`
	PriceAmount   float64 `json:"price_amount"`
	PriceCurrency string  `json:"price_currency"`
	Brand         string  `json:"brand,omitempty"`
	Availability  string  `json:"availability,omitempty"`

	Metrics ProductMetrics `json:"metrics"`

	OptimizationStatus string     `json:"optimization_status"`
	TimesOptimized     int        `json:"times_optimized"`
	LastTitleChangeAt  *time.Time `json:"last_title_change_at"`
	LastSyncedAt       *time.Time `json:"last_synced_at"`
}

// ProductMetrics 商品指标，按窗口展开
type ProductMetrics struct {
	FreeClicks14d       int `json:"free_clicks_14d"`
	FreeClicks30d       int `json:"free_clicks_30d"`
	FreeClicks90d       int `json:"free_clicks_90d"`
	FreeClicks365d      int `json:"free_clicks_365d"`
	FreeImpressions14d  int `json:"free_impressions_14d"`
	FreeImpressions30d  int `json:"free_impressions_30d"`
	FreeImpressions90d  int `json:"free_impressions_90d"`
	FreeImpressions365d int `json:"free_impressions_365d"`

	AdsClicks14d      int     `json:"ads_clicks_14d"`
	AdsClicks30d      int     `json:"ads_clicks_30d"`
	AdsClicks90d      int     `json:"ads_clicks_90d"`
	AdsClicks365d     int     `json:"ads_clicks_365d"`
	AdsImpressions14d int     `json:"ads_impressions_14d"`
	AdsImpressions30d int     `json:"ads_impressions_30d"`
	AdsCost14d        float64 `json:"ads_cost_14d"`
	AdsCost30d        float64 `json:"ads_cost_30d"`
	AdsConversions14d float64 `json:"ads_conversions_14d"`
	AdsConversions30d float64 `json:"ads_conversions_30d"`

	TotalClicks14d  int `json:"total_clicks_14d"`
	TotalClicks30d  int `json:"total_clicks_30d"`
	TotalClicks90d  int `json:"total_clicks_90d"`
	TotalClicks365d int `json:"total_clicks_365d"`
}

// ProductListResp 商品列表响应
type ProductListResp struct {
	Code     int           `json:"code"`
	Message  string        `json:"message"`
	Data     []ProductResp `json:"data"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// ProductStatsResp 商品统计响应
type ProductStatsResp struct {
	Total      int64 `json:"total"`
	Original   int64 `json:"original"`
	Testing    int64 `json:"testing"`
	Optimized  int64 `json:"optimized"`
	RolledBack int64 `json:"rolled_back"`
}
