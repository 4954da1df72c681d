package service

import (
	"context"
	"log"

	"gmc_dev_v1_202608/internal/api/dto"
	"gmc_dev_v1_202608/internal/repository"
	"gmc_dev_v1_202608/pkg/utils"
)

// ==================== AccountService 账号管理 ====================

// AccountService 已连接账号的查询、关联与断开
type AccountService struct {
	credSvc      *CredentialService
	merchantRepo repository.MerchantAccountRepository
	adsRepo      repository.AdsAccountRepository
}

// NewAccountService 创建账号服务
func NewAccountService(
	credSvc *CredentialService,
	merchantRepo repository.MerchantAccountRepository,
	adsRepo repository.AdsAccountRepository,
) *AccountService {
	return &AccountService{
		credSvc:      credSvc,
		merchantRepo: merchantRepo,
		adsRepo:      adsRepo,
	}
}

// ==================== 查询 ====================

// ListMerchantAccounts 查询用户的 Merchant 账号
func (s *AccountService) ListMerchantAccounts(ctx context.Context, userID int64) ([]dto.MerchantAccountResp, error) {
	accounts, err := s.merchantRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	items := make([]dto.MerchantAccountResp, 0, len(accounts))
	for i := range accounts {
		a := &accounts[i]
		items = append(items, dto.MerchantAccountResp{
			ID:             a.ID,
			MerchantID:     a.MerchantID,
			AccountName:    a.AccountName,
			GoogleEmail:    a.GoogleEmail,
			IsActive:       a.IsActive,
			TokenExpiresAt: a.TokenExpiresAt,
			LastSyncAt:     a.LastSyncAt,
			LastSyncStatus: a.LastSyncStatus,
			LastSyncError:  a.LastSyncError,
			ProductsCount:  a.ProductsCount,
			CreatedAt:      a.CreatedAt,
		})
	}
	return items, nil
}

// ListAdsAccounts 查询用户的 Ads 账号
func (s *AccountService) ListAdsAccounts(ctx context.Context, userID int64) ([]dto.AdsAccountResp, error) {
	accounts, err := s.adsRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	items := make([]dto.AdsAccountResp, 0, len(accounts))
	for i := range accounts {
		a := &accounts[i]
		items = append(items, dto.AdsAccountResp{
			ID:                a.ID,
			CustomerID:        a.CustomerID,
			AccountName:       a.AccountName,
			GoogleEmail:       a.GoogleEmail,
			IsActive:          a.IsActive,
			MerchantAccountID: a.MerchantAccountID,
			LastSyncAt:        a.LastSyncAt,
			LastSyncStatus:    a.LastSyncStatus,
			LastSyncError:     a.LastSyncError,
			CreatedAt:         a.CreatedAt,
		})
	}
	return items, nil
}

// ==================== Ads 关联 Merchant Center ====================

// LinkAdsAccount 关联（或解除关联）Ads 账号与 Merchant 账号
func (s *AccountService) LinkAdsAccount(ctx context.Context, userID, adsAccountID int64, merchantAccountID *int64) error {
	adsAccount, err := s.adsRepo.GetByUserAndID(ctx, userID, adsAccountID)
	if err != nil {
		return err
	}
	if adsAccount == nil {
		return ErrAccountNotFound
	}

	// 目标 Merchant 账号也必须归该用户
	if merchantAccountID != nil {
		merchant, err := s.merchantRepo.GetByUserAndID(ctx, userID, *merchantAccountID)
		if err != nil {
			return err
		}
		if merchant == nil {
			return ErrAccountNotFound
		}
	}

	return s.adsRepo.LinkMerchantAccount(ctx, adsAccountID, merchantAccountID)
}

// ==================== 断开连接 ====================

// DisconnectMerchantAccount 断开 Merchant 账号
// 本地只置 is_active=false 保留历史数据，远端 revoke 失败不阻断
func (s *AccountService) DisconnectMerchantAccount(ctx context.Context, userID, accountID int64) error {
	account, err := s.merchantRepo.GetByUserAndID(ctx, userID, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return ErrAccountNotFound
	}

	s.revokeToken(ctx, userID, account.RefreshTokenEnc)
	return s.merchantRepo.Deactivate(ctx, accountID)
}

// DisconnectAdsAccount 断开 Ads 账号
func (s *AccountService) DisconnectAdsAccount(ctx context.Context, userID, accountID int64) error {
	account, err := s.adsRepo.GetByUserAndID(ctx, userID, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return ErrAccountNotFound
	}

	s.revokeToken(ctx, userID, account.RefreshTokenEnc)
	return s.adsRepo.Deactivate(ctx, accountID)
}

// revokeToken 尽力撤销 Google 侧授权
func (s *AccountService) revokeToken(ctx context.Context, userID int64, refreshTokenEnc string) {
	if refreshTokenEnc == "" {
		return
	}
	oauthClient, err := s.credSvc.OAuthClientFor(ctx, userID)
	if err != nil {
		log.Printf("[Account] 撤销授权跳过，读取凭据失败: %v", err)
		return
	}
	refreshToken, err := utils.DecryptToken(refreshTokenEnc)
	if err != nil {
		log.Printf("[Account] 撤销授权跳过，解密 Token 失败: %v", err)
		return
	}
	if err := oauthClient.Revoke(ctx, refreshToken); err != nil {
		log.Printf("[Account] Google 撤销授权失败: %v", err)
	}
}
