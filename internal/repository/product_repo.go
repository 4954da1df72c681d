package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gmc_dev_v1_202608/internal/model"
)

// ==================== 接口定义 ====================

// ProductRepository 商品仓储接口
type ProductRepository interface {
	// 基础 CRUD
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id int64) (*model.Product, error)
	GetByAccountAndGoogleID(ctx context.Context, accountID int64, googleProductID string) (*model.Product, error)
	GetByAccountAndOfferID(ctx context.Context, accountID int64, offerID string) (*model.Product, error)
	Update(ctx context.Context, product *model.Product) error
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error)

	// 同步批量操作
	BatchUpsertCatalog(ctx context.Context, products []model.Product) error
	ListIDsByAccount(ctx context.Context, accountID int64) (map[string]int64, error)
	ListOfferIndexByAccount(ctx context.Context, accountID int64) (map[string]int64, error)
	ListTitleLockedByAccount(ctx context.Context, accountID int64) ([]model.Product, error)
	ResetAdsMetrics(ctx context.Context, accountID int64) error
	RecomputeTotalsByAccount(ctx context.Context, accountID int64) error

	// 统计
	CountByAccount(ctx context.Context, accountID int64) (int64, error)
	CountByOptimizationStatus(ctx context.Context, accountID int64) (map[model.OptimizationStatus]int64, error)

	// 事务
	WithTx(tx *gorm.DB) ProductRepository
	Transaction(ctx context.Context, fn func(txRepo ProductRepository) error) error
}

// ==================== 过滤条件 ====================

// ProductFilter 商品过滤条件
type ProductFilter struct {
	MerchantAccountID  int64
	UserID             int64 // 越权保护：限定商品所属账号必须归该用户
	OptimizationStatus model.OptimizationStatus
	Keyword            string
	SortBy             string // clicks_30d / clicks_14d / impressions_30d / updated_at
	Page               int
	PageSize           int
}

// ==================== 仓储实现 ====================

type productRepo struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepo{db: db}
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).First(&product, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) GetByAccountAndGoogleID(ctx context.Context, accountID int64, googleProductID string) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Where("merchant_account_id = ? AND google_product_id = ?", accountID, googleProductID).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) GetByAccountAndOfferID(ctx context.Context, accountID int64, offerID string) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Where("merchant_account_id = ? AND offer_id = ?", accountID, offerID).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) Update(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

func (r *productRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *productRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Product{}, id).Error
}

func (r *productRepo) List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Product{})

	if filter.UserID > 0 {
		query = query.
			Joins("JOIN merchant_accounts ON merchant_accounts.id = products.merchant_account_id").
			Where("merchant_accounts.user_id = ?", filter.UserID)
	}
	if filter.MerchantAccountID > 0 {
		query = query.Where("products.merchant_account_id = ?", filter.MerchantAccountID)
	}
	if filter.OptimizationStatus != "" {
		query = query.Where("products.optimization_status = ?", filter.OptimizationStatus)
	}
	if filter.Keyword != "" {
		keyword := "%" + filter.Keyword + "%"
		query = query.Where("products.title_current ILIKE ? OR products.offer_id ILIKE ?", keyword, keyword)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	// 排序白名单，防止注入
	order := "products.updated_at DESC"
	switch filter.SortBy {
	case "clicks_30d":
		order = "products.total_clicks_30d DESC"
	case "clicks_14d":
		order = "products.total_clicks_14d DESC"
	case "impressions_30d":
		order = "products.free_impressions_30d DESC"
	}

	offset := (filter.Page - 1) * filter.PageSize
	err := query.
		Order(order).
		Limit(filter.PageSize).
		Offset(offset).
		Find(&products).Error

	return products, total, err
}

// BatchUpsertCatalog 同步目录数据的批量 Upsert
// 冲突时整行覆盖目录属性与免费指标，入参必须带齐四个窗口的指标，
// 缺失的窗口会被写成零；title_original 永不覆盖，
// title_current 是否覆盖由上层按优化状态决定（受保护的商品不会出现在入参里）
func (r *productRepo) BatchUpsertCatalog(ctx context.Context, products []model.Product) error {
	if len(products) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "merchant_account_id"}, {Name: "google_product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"offer_id", "title_current", "description", "link", "image_link",
			"price_amount", "price_currency", "brand", "gtin", "mpn",
			"google_product_category", "product_type", "availability", "condition",
			"free_clicks_14d", "free_clicks_30d", "free_clicks_90d", "free_clicks_365d",
			"free_impressions_14d", "free_impressions_30d", "free_impressions_90d", "free_impressions_365d",
			"total_clicks_14d", "total_clicks_30d", "total_clicks_90d", "total_clicks_365d",
			"last_synced_at", "sync_error", "updated_at",
		}),
	}).Create(&products).Error
}

// ListIDsByAccount 返回 google_product_id 到内部 ID 的映射，同步时用于对账
func (r *productRepo) ListIDsByAccount(ctx context.Context, accountID int64) (map[string]int64, error) {
	type row struct {
		ID              int64
		GoogleProductID string
	}
	var rows []row

	err := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Select("id, google_product_id").
		Where("merchant_account_id = ?", accountID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	ids := make(map[string]int64, len(rows))
	for _, row := range rows {
		ids[row.GoogleProductID] = row.ID
	}
	return ids, nil
}

// ListOfferIndexByAccount 返回小写 offer_id 到内部 ID 的映射
// Ads 报表的 product_item_id 统一是小写，匹配前先归一化
func (r *productRepo) ListOfferIndexByAccount(ctx context.Context, accountID int64) (map[string]int64, error) {
	type row struct {
		ID      int64
		OfferID string
	}
	var rows []row

	err := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Select("id, offer_id").
		Where("merchant_account_id = ? AND offer_id != ''", accountID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	ids := make(map[string]int64, len(rows))
	for _, row := range rows {
		ids[strings.ToLower(row.OfferID)] = row.ID
	}
	return ids, nil
}

// RecomputeTotalsByAccount 按不变量重算总点击 (total = free + ads)
// 同步写入免费或付费指标后各调用一次
func (r *productRepo) RecomputeTotalsByAccount(ctx context.Context, accountID int64) error {
	return r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("merchant_account_id = ?", accountID).
		Updates(map[string]interface{}{
			"total_clicks_14d":  gorm.Expr("free_clicks_14d + ads_clicks_14d"),
			"total_clicks_30d":  gorm.Expr("free_clicks_30d + ads_clicks_30d"),
			"total_clicks_90d":  gorm.Expr("free_clicks_90d + ads_clicks_90d"),
			"total_clicks_365d": gorm.Expr("free_clicks_365d + ads_clicks_365d"),
		}).Error
}

// ListTitleLockedByAccount 列出处于实验保护期的商品 (testing / optimized)
func (r *productRepo) ListTitleLockedByAccount(ctx context.Context, accountID int64) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("merchant_account_id = ? AND optimization_status IN ?", accountID,
			[]model.OptimizationStatus{model.OptimizationTesting, model.OptimizationOptimized}).
		Find(&products).Error
	return products, err
}

// ResetAdsMetrics 清零付费指标，Ads 同步开始前调用
// 已停投的广告系列不再出现在报表里，不清零会留下过期数据
func (r *productRepo) ResetAdsMetrics(ctx context.Context, accountID int64) error {
	return r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("merchant_account_id = ?", accountID).
		Updates(map[string]interface{}{
			"ads_clicks_14d": 0, "ads_clicks_30d": 0, "ads_clicks_90d": 0, "ads_clicks_365d": 0,
			"ads_impressions_14d": 0, "ads_impressions_30d": 0, "ads_impressions_90d": 0, "ads_impressions_365d": 0,
			"ads_cost_14d": 0, "ads_cost_30d": 0,
			"ads_conversions_14d": 0, "ads_conversions_30d": 0,
		}).Error
}

func (r *productRepo) CountByAccount(ctx context.Context, accountID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("merchant_account_id = ?", accountID).
		Count(&count).Error
	return count, err
}

func (r *productRepo) CountByOptimizationStatus(ctx context.Context, accountID int64) (map[model.OptimizationStatus]int64, error) {
	type result struct {
		OptimizationStatus model.OptimizationStatus
		Count              int64
	}
	var results []result

	err := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Select("optimization_status, COUNT(*) as count").
		Where("merchant_account_id = ?", accountID).
		Group("optimization_status").
		Scan(&results).Error

	if err != nil {
		return nil, err
	}

	stats := make(map[model.OptimizationStatus]int64)
	for _, r := range results {
		stats[r.OptimizationStatus] = r.Count
	}
	return stats, nil
}

func (r *productRepo) WithTx(tx *gorm.DB) ProductRepository {
	return &productRepo{db: tx}
}

func (r *productRepo) Transaction(ctx context.Context, fn func(txRepo ProductRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}
