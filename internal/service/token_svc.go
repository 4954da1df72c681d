package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"gmc_dev_v1_202608/internal/model"
	"gmc_dev_v1_202608/internal/repository"
	"gmc_dev_v1_202608/pkg/google"
	"gmc_dev_v1_202608/pkg/utils"
)

// ==================== TokenService Token 管理 ====================

// RefreshMargin Token 剩余有效期低于该值时提前刷新
const RefreshMargin = 5 * time.Minute

// TokenService 管理两类账号的 OAuth Token 生命周期
// 所有需要访问 Google 接口的调用方都从这里拿 Access Token，
// 不直接读账号表里的加密字段
type TokenService struct {
	credSvc      *CredentialService
	merchantRepo repository.MerchantAccountRepository
	adsRepo      repository.AdsAccountRepository

	// 按账号粒度的刷新锁，同进程内同一账号只有一个刷新在飞
	refreshLocks sync.Map // key "merchant:1"/"ads:2" -> *sync.Mutex
}

// NewTokenService 创建 Token 服务
func NewTokenService(credSvc *CredentialService, merchantRepo repository.MerchantAccountRepository, adsRepo repository.AdsAccountRepository) *TokenService {
	return &TokenService{
		credSvc:      credSvc,
		merchantRepo: merchantRepo,
		adsRepo:      adsRepo,
	}
}

func (s *TokenService) lockFor(key string) *sync.Mutex {
	actual, _ := s.refreshLocks.LoadOrStore(key, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// ==================== Merchant 账号 ====================

// EnsureMerchantToken 返回可用的 Access Token，必要时先刷新
func (s *TokenService) EnsureMerchantToken(ctx context.Context, account *model.MerchantAccount) (string, error) {
	return s.ensureMerchantToken(ctx, account, RefreshMargin)
}

// ensureMerchantToken margin 为提前刷新线，保活任务会传更大的窗口
func (s *TokenService) ensureMerchantToken(ctx context.Context, account *model.MerchantAccount, margin time.Duration) (string, error) {
	if !account.IsActive {
		return "", ErrAccountInactive
	}

	// 未到刷新线，直接解密返回
	if time.Until(account.TokenExpiresAt) > margin {
		return utils.DecryptToken(account.AccessTokenEnc)
	}

	mu := s.lockFor(fmt.Sprintf("merchant:%d", account.ID))
	mu.Lock()
	defer mu.Unlock()

	// 拿到锁后重读，竞争方可能已经刷新完成
	fresh, err := s.merchantRepo.GetByID(ctx, account.ID)
	if err != nil {
		return "", err
	}
	if fresh == nil {
		return "", ErrAccountNotFound
	}
	*account = *fresh
	if time.Until(account.TokenExpiresAt) > margin {
		return utils.DecryptToken(account.AccessTokenEnc)
	}

	return s.refreshMerchant(ctx, account)
}

// refreshMerchant 刷新 Merchant 账号 Token 并 CAS 落库
func (s *TokenService) refreshMerchant(ctx context.Context, account *model.MerchantAccount) (string, error) {
	oauthClient, err := s.credSvc.OAuthClientFor(ctx, account.UserID)
	if err != nil {
		return "", err
	}

	refreshToken, err := utils.DecryptToken(account.RefreshTokenEnc)
	if err != nil {
		return "", err
	}

	tokenResp, err := oauthClient.RefreshToken(ctx, refreshToken)
	if err != nil {
		// Google 明确拒绝刷新时停用账号，引导用户重新授权
		var apiErr *google.APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == 400 || apiErr.StatusCode == 401) {
			if derr := s.merchantRepo.Deactivate(ctx, account.ID); derr != nil {
				log.Printf("[Token] Merchant 账号 %d 停用失败: %v", account.ID, derr)
			}
			return "", ErrReauthRequired
		}
		return "", err
	}

	accessTokenEnc, err := utils.EncryptToken(tokenResp.AccessToken)
	if err != nil {
		return "", err
	}
	refreshTokenEnc := ""
	if tokenResp.RefreshToken != "" {
		refreshTokenEnc, err = utils.EncryptToken(tokenResp.RefreshToken)
		if err != nil {
			return "", err
		}
	}

	newExpiresAt := time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	updated, err := s.merchantRepo.UpdateTokenIfExpiryMatches(
		ctx, account.ID, accessTokenEnc, refreshTokenEnc, newExpiresAt, account.TokenExpiresAt)
	if err != nil {
		return "", err
	}
	if !updated {
		// CAS 失败说明别的实例刚刷新过，用库里的结果
		fresh, err := s.merchantRepo.GetByID(ctx, account.ID)
		if err != nil {
			return "", err
		}
		if fresh == nil {
			return "", ErrAccountNotFound
		}
		*account = *fresh
		return utils.DecryptToken(account.AccessTokenEnc)
	}

	account.AccessTokenEnc = accessTokenEnc
	if refreshTokenEnc != "" {
		account.RefreshTokenEnc = refreshTokenEnc
	}
	account.TokenExpiresAt = newExpiresAt

	return tokenResp.AccessToken, nil
}

// ==================== Ads 账号 ====================

// EnsureAdsToken 返回可用的 Access Token，必要时先刷新
func (s *TokenService) EnsureAdsToken(ctx context.Context, account *model.AdsAccount) (string, error) {
	return s.ensureAdsToken(ctx, account, RefreshMargin)
}

func (s *TokenService) ensureAdsToken(ctx context.Context, account *model.AdsAccount, margin time.Duration) (string, error) {
	if !account.IsActive {
		return "", ErrAccountInactive
	}

	if time.Until(account.TokenExpiresAt) > margin {
		return utils.DecryptToken(account.AccessTokenEnc)
	}

	mu := s.lockFor(fmt.Sprintf("ads:%d", account.ID))
	mu.Lock()
	defer mu.Unlock()

	fresh, err := s.adsRepo.GetByID(ctx, account.ID)
	if err != nil {
		return "", err
	}
	if fresh == nil {
		return "", ErrAccountNotFound
	}
	*account = *fresh
	if time.Until(account.TokenExpiresAt) > margin {
		return utils.DecryptToken(account.AccessTokenEnc)
	}

	return s.refreshAds(ctx, account)
}

func (s *TokenService) refreshAds(ctx context.Context, account *model.AdsAccount) (string, error) {
	oauthClient, err := s.credSvc.OAuthClientFor(ctx, account.UserID)
	if err != nil {
		return "", err
	}

	refreshToken, err := utils.DecryptToken(account.RefreshTokenEnc)
	if err != nil {
		return "", err
	}

	tokenResp, err := oauthClient.RefreshToken(ctx, refreshToken)
	if err != nil {
		var apiErr *google.APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == 400 || apiErr.StatusCode == 401) {
			if derr := s.adsRepo.Deactivate(ctx, account.ID); derr != nil {
				log.Printf("[Token] Ads 账号 %d 停用失败: %v", account.ID, derr)
			}
			return "", ErrReauthRequired
		}
		return "", err
	}

	accessTokenEnc, err := utils.EncryptToken(tokenResp.AccessToken)
	if err != nil {
		return "", err
	}
	refreshTokenEnc := ""
	if tokenResp.RefreshToken != "" {
		refreshTokenEnc, err = utils.EncryptToken(tokenResp.RefreshToken)
		if err != nil {
			return "", err
		}
	}

	newExpiresAt := time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	updated, err := s.adsRepo.UpdateTokenIfExpiryMatches(
		ctx, account.ID, accessTokenEnc, refreshTokenEnc, newExpiresAt, account.TokenExpiresAt)
	if err != nil {
		return "", err
	}
	if !updated {
		fresh, err := s.adsRepo.GetByID(ctx, account.ID)
		if err != nil {
			return "", err
		}
		if fresh == nil {
			return "", ErrAccountNotFound
		}
		*account = *fresh
		return utils.DecryptToken(account.AccessTokenEnc)
	}

	account.AccessTokenEnc = accessTokenEnc
	if refreshTokenEnc != "" {
		account.RefreshTokenEnc = refreshTokenEnc
	}
	account.TokenExpiresAt = newExpiresAt

	return tokenResp.AccessToken, nil
}

// ==================== 批量保活 ====================

// RefreshExpiring 刷新所有即将过期的活跃账号，定时任务调用
// 返回 (处理数, 失败数)
// 刷新线用查询窗口本身，查出来的账号一定会被刷新而不是解密后原样返回
func (s *TokenService) RefreshExpiring(ctx context.Context, within time.Duration) (int, int) {
	var processed, failed int

	merchants, err := s.merchantRepo.FindExpiring(ctx, within)
	if err != nil {
		log.Printf("[Token] 查询过期 Merchant 账号失败: %v", err)
	} else {
		for i := range merchants {
			processed++
			if _, err := s.ensureMerchantToken(ctx, &merchants[i], within); err != nil {
				failed++
				log.Printf("[Token] Merchant 账号 %d 刷新失败: %v", merchants[i].ID, err)
			}
		}
	}

	adsAccounts, err := s.adsRepo.FindExpiring(ctx, within)
	if err != nil {
		log.Printf("[Token] 查询过期 Ads 账号失败: %v", err)
	} else {
		for i := range adsAccounts {
			processed++
			if _, err := s.ensureAdsToken(ctx, &adsAccounts[i], within); err != nil {
				failed++
				log.Printf("[Token] Ads 账号 %d 刷新失败: %v", adsAccounts[i].ID, err)
			}
		}
	}

	return processed, failed
}
