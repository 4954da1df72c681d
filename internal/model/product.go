package model

import (
	"time"
)

// ==================== 优化状态常量 ====================

// OptimizationStatus 商品标题的优化生命周期
type OptimizationStatus string

const (
	OptimizationOriginal   OptimizationStatus = "original"    // 未优化
	OptimizationTesting    OptimizationStatus = "testing"     // 测试中
	OptimizationOptimized  OptimizationStatus = "optimized"   // 已优化
	OptimizationRolledBack OptimizationStatus = "rolled_back" // 已回滚
)

// optimizationTransitions 状态转换表
// rolled_back -> testing 只能通过新一次 ApplyTitle 触发，不允许直接改写
var optimizationTransitions = map[OptimizationStatus][]OptimizationStatus{
	OptimizationOriginal:   {OptimizationTesting},
	OptimizationTesting:    {OptimizationTesting, OptimizationOptimized, OptimizationRolledBack},
	OptimizationOptimized:  {OptimizationTesting, OptimizationRolledBack},
	OptimizationRolledBack: {OptimizationTesting},
}

// CanTransition 校验状态转换是否合法
func (s OptimizationStatus) CanTransition(to OptimizationStatus) bool {
	for _, next := range optimizationTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ==================== 商品模型 ====================

// Product 商品，属于一个 MerchantAccount
// 指标字段按 14/30/90/365 天四个滚动窗口展开，免费/付费分列
type Product struct {
	BaseModel

	// 1. 归属
	MerchantAccountID int64            `gorm:"index;uniqueIndex:idx_account_gpid;not null"`
	MerchantAccount   *MerchantAccount `gorm:"foreignKey:MerchantAccountID"`

	// 2. Google 目录身份
	GoogleProductID string `gorm:"size:128;uniqueIndex:idx_account_gpid;not null"`
	OfferID         string `gorm:"size:128;index"`

	// 3. 标题
	// TitleOriginal 首次同步时固定，之后永不被同步覆盖
	TitleOriginal string `gorm:"size:255;not null"`
	TitleCurrent  string `gorm:"size:255;not null"`

	// 4. 目录属性
	Description           string  `gorm:"type:text"`
	Link                  string  `gorm:"size:512"`
	ImageLink             string  `gorm:"size:512"`
	PriceAmount           float64 `gorm:"type:decimal(12,2)"`
	PriceCurrency         string  `gorm:"size:8;default:'EUR'"`
	Brand                 string  `gorm:"size:128"`
	Gtin                  string  `gorm:"size:32"`
	Mpn                   string  `gorm:"size:64"`
	GoogleProductCategory string  `gorm:"size:255"`
	ProductType           string  `gorm:"size:255"`
	Availability          string  `gorm:"size:32"`
	Condition             string  `gorm:"size:32"`

	// 5. 免费流量指标 (Free Listings)
	// 数字结尾的字段名推导不出带下划线的列名，显式指定 column
	FreeClicks14d       int `gorm:"column:free_clicks_14d;default:0"`
	FreeClicks30d       int `gorm:"column:free_clicks_30d;default:0"`
	FreeClicks90d       int `gorm:"column:free_clicks_90d;default:0"`
	FreeClicks365d      int `gorm:"column:free_clicks_365d;default:0"`
	FreeImpressions14d  int `gorm:"column:free_impressions_14d;default:0"`
	FreeImpressions30d  int `gorm:"column:free_impressions_30d;default:0"`
	FreeImpressions90d  int `gorm:"column:free_impressions_90d;default:0"`
	FreeImpressions365d int `gorm:"column:free_impressions_365d;default:0"`

	// 6. 付费流量指标 (Shopping Ads)
	AdsClicks14d       int     `gorm:"column:ads_clicks_14d;default:0"`
	AdsClicks30d       int     `gorm:"column:ads_clicks_30d;default:0"`
	AdsClicks90d       int     `gorm:"column:ads_clicks_90d;default:0"`
	AdsClicks365d      int     `gorm:"column:ads_clicks_365d;default:0"`
	AdsImpressions14d  int     `gorm:"column:ads_impressions_14d;default:0"`
	AdsImpressions30d  int     `gorm:"column:ads_impressions_30d;default:0"`
	AdsImpressions90d  int     `gorm:"column:ads_impressions_90d;default:0"`
	AdsImpressions365d int     `gorm:"column:ads_impressions_365d;default:0"`
	AdsCost14d         float64 `gorm:"column:ads_cost_14d;type:decimal(12,2);default:0"`
	AdsCost30d         float64 `gorm:"column:ads_cost_30d;type:decimal(12,2);default:0"`
	AdsConversions14d  float64 `gorm:"column:ads_conversions_14d;type:decimal(12,2);default:0"`
	AdsConversions30d  float64 `gorm:"column:ads_conversions_30d;type:decimal(12,2);default:0"`

	// 7. 汇总指标
	// 不变量：total = free + ads，每次写入后必须成立
	TotalClicks14d  int `gorm:"column:total_clicks_14d;default:0"`
	TotalClicks30d  int `gorm:"column:total_clicks_30d;default:0"`
	TotalClicks90d  int `gorm:"column:total_clicks_90d;default:0"`
	TotalClicks365d int `gorm:"column:total_clicks_365d;default:0"`

	// 8. 优化状态
	OptimizationStatus OptimizationStatus `gorm:"size:20;index;default:'original'"`
	TimesOptimized     int                `gorm:"default:0"`
	LastTitleChangeAt  *time.Time

	// 9. 同步状态
	LastSyncedAt *time.Time
	SyncError    string `gorm:"type:text"`

	// 10. 标题变更历史 (Has Many, 只追加的审计日志)
	TitleChanges []TitleChange `gorm:"foreignKey:ProductID"`
}

// RecomputeTotals 按不变量重算四个窗口的总点击
func (p *Product) RecomputeTotals() {
	p.TotalClicks14d = p.FreeClicks14d + p.AdsClicks14d
	p.TotalClicks30d = p.FreeClicks30d + p.AdsClicks30d
	p.TotalClicks90d = p.FreeClicks90d + p.AdsClicks90d
	p.TotalClicks365d = p.FreeClicks365d + p.AdsClicks365d
}

// TitleLocked 商品是否处于实验保护期
// testing / optimized 状态下同步不得覆盖 title_current
func (p *Product) TitleLocked() bool {
	return p.OptimizationStatus == OptimizationTesting ||
		p.OptimizationStatus == OptimizationOptimized
}

func (Product) TableName() string {
	return "products"
}
