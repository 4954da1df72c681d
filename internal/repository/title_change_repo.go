package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"gmc_dev_v1_202608/internal/model"
)

// ==================== 接口定义 ====================

// TitleChangeRepository 标题变更仓储接口
type TitleChangeRepository interface {
	Create(ctx context.Context, change *model.TitleChange) error
	GetByID(ctx context.Context, id int64) (*model.TitleChange, error)
	GetByUserAndID(ctx context.Context, userID, id int64) (*model.TitleChange, error)
	GetLatestByProductID(ctx context.Context, productID int64) (*model.TitleChange, error)
	ListByProductID(ctx context.Context, productID int64) ([]model.TitleChange, error)
	List(ctx context.Context, filter TitleChangeFilter) ([]model.TitleChange, int64, error)

	// 测量
	FindMeasurable(ctx context.Context, cutoff time.Time, limit int) ([]model.TitleChange, error)
	UpdateMeasurement(ctx context.Context, id int64, m Measurement) error

	// 回滚（只允许一次，条件更新防并发重复回滚）
	MarkRolledBack(ctx context.Context, id int64, reason string) (bool, error)

	// 统计
	CountByImpactStatus(ctx context.Context, userID int64) (map[model.ImpactStatus]int64, error)

	// 事务
	WithTx(tx *gorm.DB) TitleChangeRepository
}

// ==================== 过滤与测量参数 ====================

// TitleChangeFilter 标题变更过滤条件
type TitleChangeFilter struct {
	UserID            int64
	MerchantAccountID int64
	ProductID         int64
	ImpactStatus      model.ImpactStatus
	OnlyPending       bool
	Page              int
	PageSize          int
}

// Measurement 测量任务写回的结果
type Measurement struct {
	FreeClicksAfter14d          int
	FreeImpressionsAfter14d     int
	TotalClicksAfter14d         int
	FreeClicksVariationPercent  float64
	TotalClicksVariationPercent float64
	ImpactStatus                model.ImpactStatus
	MeasuredAt                  time.Time
}

// ==================== 仓储实现 ====================

type titleChangeRepo struct {
	db *gorm.DB
}

// NewTitleChangeRepository 创建标题变更仓储
func NewTitleChangeRepository(db *gorm.DB) TitleChangeRepository {
	return &titleChangeRepo{db: db}
}

func (r *titleChangeRepo) Create(ctx context.Context, change *model.TitleChange) error {
	return r.db.WithContext(ctx).Create(change).Error
}

func (r *titleChangeRepo) GetByID(ctx context.Context, id int64) (*model.TitleChange, error) {
	var change model.TitleChange
	err := r.db.WithContext(ctx).
		Preload("Product").
		First(&change, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &change, nil
}

// GetByUserAndID 带归属校验的查询，经 products/merchant_accounts 两跳关联
func (r *titleChangeRepo) GetByUserAndID(ctx context.Context, userID, id int64) (*model.TitleChange, error) {
	var change model.TitleChange
	err := r.db.WithContext(ctx).
		Preload("Product").
		Joins("JOIN products ON products.id = title_changes.product_id").
		Joins("JOIN merchant_accounts ON merchant_accounts.id = products.merchant_account_id").
		Where("title_changes.id = ? AND merchant_accounts.user_id = ?", id, userID).
		First(&change).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &change, nil
}

// GetLatestByProductID 获取商品最近一次变更
func (r *titleChangeRepo) GetLatestByProductID(ctx context.Context, productID int64) (*model.TitleChange, error) {
	var change model.TitleChange
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("changed_at DESC, id DESC").
		First(&change).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &change, nil
}

func (r *titleChangeRepo) ListByProductID(ctx context.Context, productID int64) ([]model.TitleChange, error) {
	var changes []model.TitleChange
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("changed_at DESC, id DESC").
		Find(&changes).Error
	return changes, err
}

func (r *titleChangeRepo) List(ctx context.Context, filter TitleChangeFilter) ([]model.TitleChange, int64, error) {
	var changes []model.TitleChange
	var total int64

	query := r.db.WithContext(ctx).Model(&model.TitleChange{}).
		Joins("JOIN products ON products.id = title_changes.product_id").
		Joins("JOIN merchant_accounts ON merchant_accounts.id = products.merchant_account_id")

	if filter.UserID > 0 {
		query = query.Where("merchant_accounts.user_id = ?", filter.UserID)
	}
	if filter.MerchantAccountID > 0 {
		query = query.Where("products.merchant_account_id = ?", filter.MerchantAccountID)
	}
	if filter.ProductID > 0 {
		query = query.Where("title_changes.product_id = ?", filter.ProductID)
	}
	if filter.ImpactStatus != "" {
		query = query.Where("title_changes.impact_status = ?", filter.ImpactStatus)
	}
	if filter.OnlyPending {
		query = query.Where("title_changes.measured_at IS NULL")
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

	offset := (filter.Page - 1) * filter.PageSize
	err := query.
		Preload("Product").
		Order("title_changes.changed_at DESC").
		Limit(filter.PageSize).
		Offset(offset).
		Find(&changes).Error

	return changes, total, err
}

// FindMeasurable 找到可以测量的变更：
// 尚未测量、已过观察期、且所属账号仍活跃（停用账号拿不到新指标）
func (r *titleChangeRepo) FindMeasurable(ctx context.Context, cutoff time.Time, limit int) ([]model.TitleChange, error) {
	var changes []model.TitleChange
	query := r.db.WithContext(ctx).
		Preload("Product").
		Joins("JOIN products ON products.id = title_changes.product_id").
		Joins("JOIN merchant_accounts ON merchant_accounts.id = products.merchant_account_id").
		Where("title_changes.impact_status = ?", model.ImpactPending).
		Where("title_changes.measured_at IS NULL").
		Where("title_changes.changed_at <= ?", cutoff).
		Where("merchant_accounts.is_active = ?", true).
		Order("title_changes.changed_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&changes).Error
	return changes, err
}

// UpdateMeasurement 写回测量结果
func (r *titleChangeRepo) UpdateMeasurement(ctx context.Context, id int64, m Measurement) error {
	return r.db.WithContext(ctx).
		Model(&model.TitleChange{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"free_clicks_after_14d":          m.FreeClicksAfter14d,
			"free_impressions_after_14d":     m.FreeImpressionsAfter14d,
			"total_clicks_after_14d":         m.TotalClicksAfter14d,
			"free_clicks_variation_percent":  m.FreeClicksVariationPercent,
			"total_clicks_variation_percent": m.TotalClicksVariationPercent,
			"impact_status":                  m.ImpactStatus,
			"measured_at":                    m.MeasuredAt,
		}).Error
}

// MarkRolledBack 标记回滚，rolled_back_at 已设置的行不会被二次更新
func (r *titleChangeRepo) MarkRolledBack(ctx context.Context, id int64, reason string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.TitleChange{}).
		Where("id = ? AND rolled_back_at IS NULL", id).
		Updates(map[string]interface{}{
			"rolled_back_at":  time.Now(),
			"rollback_reason": reason,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CountByImpactStatus 按影响状态统计用户的变更数
func (r *titleChangeRepo) CountByImpactStatus(ctx context.Context, userID int64) (map[model.ImpactStatus]int64, error) {
	type result struct {
		ImpactStatus model.ImpactStatus
		Count        int64
	}
	var results []result

	err := r.db.WithContext(ctx).
		Model(&model.TitleChange{}).
		Select("title_changes.impact_status, COUNT(*) as count").
		Joins("JOIN products ON products.id = title_changes.product_id").
		Joins("JOIN merchant_accounts ON merchant_accounts.id = products.merchant_account_id").
		Where("merchant_accounts.user_id = ?", userID).
		Group("title_changes.impact_status").
		Scan(&results).Error

	if err != nil {
		return nil, err
	}

	stats := make(map[model.ImpactStatus]int64)
	for _, r := range results {
		stats[r.ImpactStatus] = r.Count
	}
	return stats, nil
}

func (r *titleChangeRepo) WithTx(tx *gorm.DB) TitleChangeRepository {
	return &titleChangeRepo{db: tx}
}
