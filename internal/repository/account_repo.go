package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"gmc_dev_v1_202608/internal/model"
)

// ==================== MerchantAccountRepository ====================

// MerchantAccountRepository Merchant Center 账号仓储接口
type MerchantAccountRepository interface {
	Create(ctx context.Context, account *model.MerchantAccount) error
	GetByID(ctx context.Context, id int64) (*model.MerchantAccount, error)
	GetByUserAndID(ctx context.Context, userID, id int64) (*model.MerchantAccount, error)
	GetByUserAndMerchantID(ctx context.Context, userID int64, merchantID string) (*model.MerchantAccount, error)
	ListByUserID(ctx context.Context, userID int64) ([]model.MerchantAccount, error)
	Update(ctx context.Context, account *model.MerchantAccount) error
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	Delete(ctx context.Context, id int64) error

	// Token 相关
	// UpdateTokenIfExpiryMatches 做 CAS 更新：只有过期时间仍是读取时的值才写入，
	// 返回是否真正更新。并发刷新时输掉竞争的一方放弃自己的结果
	UpdateTokenIfExpiryMatches(ctx context.Context, id int64, accessTokenEnc, refreshTokenEnc string, newExpiresAt, seenExpiresAt time.Time) (bool, error)
	Deactivate(ctx context.Context, id int64) error
	FindExpiring(ctx context.Context, within time.Duration) ([]model.MerchantAccount, error)

	// 同步状态
	UpdateSyncStatus(ctx context.Context, id int64, status string, syncErr string, productsCount int) error
	ListActive(ctx context.Context) ([]model.MerchantAccount, error)
}

type merchantAccountRepo struct {
	db *gorm.DB
}

// NewMerchantAccountRepository 创建 Merchant Center 账号仓储
func NewMerchantAccountRepository(db *gorm.DB) MerchantAccountRepository {
	return &merchantAccountRepo{db: db}
}

func (r *merchantAccountRepo) Create(ctx context.Context, account *model.MerchantAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *merchantAccountRepo) GetByID(ctx context.Context, id int64) (*model.MerchantAccount, error) {
	var account model.MerchantAccount
	err := r.db.WithContext(ctx).First(&account, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &account, err
}

// GetByUserAndID 带归属校验的查询，避免越权访问他人账号
func (r *merchantAccountRepo) GetByUserAndID(ctx context.Context, userID, id int64) (*model.MerchantAccount, error) {
	var account model.MerchantAccount
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &account, err
}

func (r *merchantAccountRepo) GetByUserAndMerchantID(ctx context.Context, userID int64, merchantID string) (*model.MerchantAccount, error) {
	var account model.MerchantAccount
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND merchant_id = ?", userID, merchantID).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &account, err
}

func (r *merchantAccountRepo) ListByUserID(ctx context.Context, userID int64) ([]model.MerchantAccount, error) {
	var accounts []model.MerchantAccount
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&accounts).Error
	return accounts, err
}

func (r *merchantAccountRepo) Update(ctx context.Context, account *model.MerchantAccount) error {
	return r.db.WithContext(ctx).Save(account).Error
}

func (r *merchantAccountRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&model.MerchantAccount{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *merchantAccountRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.MerchantAccount{}, id).Error
}

// UpdateTokenIfExpiryMatches CAS 更新 Token
func (r *merchantAccountRepo) UpdateTokenIfExpiryMatches(ctx context.Context, id int64, accessTokenEnc, refreshTokenEnc string, newExpiresAt, seenExpiresAt time.Time) (bool, error) {
	fields := map[string]interface{}{
		"access_token_enc": accessTokenEnc,
		"token_expires_at": newExpiresAt,
	}
	// Google 不一定每次都轮换 refresh token
	if refreshTokenEnc != "" {
		fields["refresh_token_enc"] = refreshTokenEnc
	}

	result := r.db.WithContext(ctx).
		Model(&model.MerchantAccount{}).
		Where("id = ? AND token_expires_at = ?", id, seenExpiresAt).
		Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Deactivate 停用账号（刷新被拒后调用，保留历史数据）
func (r *merchantAccountRepo) Deactivate(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&model.MerchantAccount{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}

// FindExpiring 查找 Token 将在 within 时间内过期的活跃账号
func (r *merchantAccountRepo) FindExpiring(ctx context.Context, within time.Duration) ([]model.MerchantAccount, error) {
	var accounts []model.MerchantAccount
	deadline := time.Now().Add(within)
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND token_expires_at <= ?", true, deadline).
		Find(&accounts).Error
	return accounts, err
}

// UpdateSyncStatus 记录一次同步的结果
func (r *merchantAccountRepo) UpdateSyncStatus(ctx context.Context, id int64, status string, syncErr string, productsCount int) error {
	fields := map[string]interface{}{
		"last_sync_status": status,
		"last_sync_error":  syncErr,
	}
	if status == model.SyncStatusSuccess {
		fields["last_sync_at"] = time.Now()
		fields["products_count"] = productsCount
	}
	return r.db.WithContext(ctx).
		Model(&model.MerchantAccount{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// ListActive 获取所有活跃账号
func (r *merchantAccountRepo) ListActive(ctx context.Context) ([]model.MerchantAccount, error) {
	var accounts []model.MerchantAccount
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Find(&accounts).Error
	return accounts, err
}

// ==================== AdsAccountRepository ====================

// AdsAccountRepository Google Ads 账号仓储接口
type AdsAccountRepository interface {
	Create(ctx context.Context, account *model.AdsAccount) error
	GetByID(ctx context.Context, id int64) (*model.AdsAccount, error)
	GetByUserAndID(ctx context.Context, userID, id int64) (*model.AdsAccount, error)
	GetByUserAndCustomerID(ctx context.Context, userID int64, customerID string) (*model.AdsAccount, error)
	ListByUserID(ctx context.Context, userID int64) ([]model.AdsAccount, error)
	Update(ctx context.Context, account *model.AdsAccount) error
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	Delete(ctx context.Context, id int64) error

	// Merchant Center 关联
	LinkMerchantAccount(ctx context.Context, id int64, merchantAccountID *int64) error

	// Token 相关
	UpdateTokenIfExpiryMatches(ctx context.Context, id int64, accessTokenEnc, refreshTokenEnc string, newExpiresAt, seenExpiresAt time.Time) (bool, error)
	Deactivate(ctx context.Context, id int64) error
	FindExpiring(ctx context.Context, within time.Duration) ([]model.AdsAccount, error)

	// 同步状态
	UpdateSyncStatus(ctx context.Context, id int64, status string, syncErr string) error
	ListActive(ctx context.Context) ([]model.AdsAccount, error)
}

type adsAccountRepo struct {
	db *gorm.DB
}

// NewAdsAccountRepository 创建 Ads 账号仓储
func NewAdsAccountRepository(db *gorm.DB) AdsAccountRepository {
	return &adsAccountRepo{db: db}
}

func (r *adsAccountRepo) Create(ctx context.Context, account *model.AdsAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *adsAccountRepo) GetByID(ctx context.Context, id int64) (*model.AdsAccount, error) {
	var account model.AdsAccount
	err := r.db.WithContext(ctx).
		Preload("MerchantAccount").
		First(&account, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &account, err
}

func (r *adsAccountRepo) GetByUserAndID(ctx context.Context, userID, id int64) (*model.AdsAccount, error) {
	var account model.AdsAccount
	err := r.db.WithContext(ctx).
		Preload("MerchantAccount").
		Where("id = ? AND user_id = ?", id, userID).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &account, err
}

func (r *adsAccountRepo) GetByUserAndCustomerID(ctx context.Context, userID int64, customerID string) (*model.AdsAccount, error) {
	var account model.AdsAccount
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND customer_id = ?", userID, customerID).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &account, err
}

func (r *adsAccountRepo) ListByUserID(ctx context.Context, userID int64) ([]model.AdsAccount, error) {
	var accounts []model.AdsAccount
	err := r.db.WithContext(ctx).
		Preload("MerchantAccount").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&accounts).Error
	return accounts, err
}

func (r *adsAccountRepo) Update(ctx context.Context, account *model.AdsAccount) error {
	return r.db.WithContext(ctx).Save(account).Error
}

func (r *adsAccountRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&model.AdsAccount{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *adsAccountRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.AdsAccount{}, id).Error
}

// LinkMerchantAccount 关联/解除关联 Merchant Center 账号
// 传 nil 表示解除关联
func (r *adsAccountRepo) LinkMerchantAccount(ctx context.Context, id int64, merchantAccountID *int64) error {
	return r.db.WithContext(ctx).
		Model(&model.AdsAccount{}).
		Where("id = ?", id).
		Update("merchant_account_id", merchantAccountID).Error
}

func (r *adsAccountRepo) UpdateTokenIfExpiryMatches(ctx context.Context, id int64, accessTokenEnc, refreshTokenEnc string, newExpiresAt, seenExpiresAt time.Time) (bool, error) {
	fields := map[string]interface{}{
		"access_token_enc": accessTokenEnc,
		"token_expires_at": newExpiresAt,
	}
	if refreshTokenEnc != "" {
		fields["refresh_token_enc"] = refreshTokenEnc
	}

	result := r.db.WithContext(ctx).
		Model(&model.AdsAccount{}).
		Where("id = ? AND token_expires_at = ?", id, seenExpiresAt).
		Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *adsAccountRepo) Deactivate(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&model.AdsAccount{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}

func (r *adsAccountRepo) FindExpiring(ctx context.Context, within time.Duration) ([]model.AdsAccount, error) {
	var accounts []model.AdsAccount
	deadline := time.Now().Add(within)
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND token_expires_at <= ?", true, deadline).
		Find(&accounts).Error
	return accounts, err
}

func (r *adsAccountRepo) UpdateSyncStatus(ctx context.Context, id int64, status string, syncErr string) error {
	fields := map[string]interface{}{
		"last_sync_status": status,
		"last_sync_error":  syncErr,
	}
	if status == model.SyncStatusSuccess {
		fields["last_sync_at"] = time.Now()
	}
	return r.db.WithContext(ctx).
		Model(&model.AdsAccount{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// ListActive 获取所有活跃账号
func (r *adsAccountRepo) ListActive(ctx context.Context) ([]model.AdsAccount, error) {
	var accounts []model.AdsAccount
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&accounts).Error
	return accounts, err
}
