package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"gmc_dev_v1_202608/internal/api/dto"
	"gmc_dev_v1_202608/internal/model"
	"gmc_dev_v1_202608/internal/repository"
	"gmc_dev_v1_202608/pkg/google"
	"gmc_dev_v1_202608/pkg/utils"
)

// 账号类型
const (
	AccountTypeMerchant = "merchant"
	AccountTypeAds      = "ads"
)

// ==================== OAuthService 授权流程 ====================

// OAuthService Google 账号连接流程
// 流程：StartConnect 生成授权链接 -> 用户在 Google 同意 -> HandleCallback 换 Token 并建账号
type OAuthService struct {
	credSvc        *CredentialService
	merchantRepo   repository.MerchantAccountRepository
	adsRepo        repository.AdsAccountRepository
	merchantClient *google.MerchantClient
	adsClient      *google.AdsClient
}

// NewOAuthService 创建授权服务
func NewOAuthService(
	credSvc *CredentialService,
	merchantRepo repository.MerchantAccountRepository,
	adsRepo repository.AdsAccountRepository,
	merchantClient *google.MerchantClient,
	adsClient *google.AdsClient,
) *OAuthService {
	return &OAuthService{
		credSvc:        credSvc,
		merchantRepo:   merchantRepo,
		adsRepo:        adsRepo,
		merchantClient: merchantClient,
		adsClient:      adsClient,
	}
}

// ==================== 发起授权 ====================

// StartConnect 生成授权链接
func (s *OAuthService) StartConnect(ctx context.Context, userID int64, accountType string) (*dto.ConnectResponse, error) {
	oauthClient, err := s.credSvc.OAuthClientFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	var scopes []string
	switch accountType {
	case AccountTypeMerchant:
		scopes = []string{google.ScopeContent, google.ScopeUserinfoEmail}
	case AccountTypeAds:
		scopes = []string{google.ScopeAdwords, google.ScopeUserinfoEmail}
	default:
		return nil, fmt.Errorf("未知的账号类型: %s", accountType)
	}

	// state 防 CSRF，缓存里带上发起授权的上下文
	state := uuid.NewString()
	utils.PutOAuthState(state, userID, accountType)

	return &dto.ConnectResponse{
		AuthURL: oauthClient.BuildAuthURL(scopes, state),
		State:   state,
	}, nil
}

// ==================== 回调处理 ====================

// CallbackResult 回调处理结果
type CallbackResult struct {
	AccountType string `json:"account_type"`
	Connected   int    `json:"connected"`
	GoogleEmail string `json:"google_email"`
}

// HandleCallback 处理 Google 回调：校验 state、换 Token、拉账号列表并落库
func (s *OAuthService) HandleCallback(ctx context.Context, code, state string) (*CallbackResult, error) {
	// 1. 校验 State 取授权上下文（用完即焚）
	stateCtx, exists := utils.TakeOAuthState(state)
	if !exists {
		return nil, ErrStateInvalid
	}
	userID := stateCtx.UserID
	accountType := stateCtx.AccountType

	// 2. 换 Token
	oauthClient, err := s.credSvc.OAuthClientFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	tokenResp, err := oauthClient.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("换取 Token 失败: %w", err)
	}

	// 3. 查授权邮箱
	googleEmail := ""
	if userInfo, err := oauthClient.FetchUserInfo(ctx, tokenResp.AccessToken); err != nil {
		log.Printf("[OAuth] 获取用户邮箱失败: %v", err)
	} else {
		googleEmail = userInfo.Email
	}

	// 4. 按账号类型落库
	var connected int
	switch accountType {
	case AccountTypeMerchant:
		connected, err = s.connectMerchantAccounts(ctx, userID, googleEmail, tokenResp)
	case AccountTypeAds:
		connected, err = s.connectAdsAccounts(ctx, userID, googleEmail, tokenResp)
	default:
		return nil, fmt.Errorf("未知的账号类型: %s", accountType)
	}
	if err != nil {
		return nil, err
	}

	return &CallbackResult{
		AccountType: accountType,
		Connected:   connected,
		GoogleEmail: googleEmail,
	}, nil
}

// connectMerchantAccounts 拉取 Token 可访问的 Merchant 账号并逐个入库
func (s *OAuthService) connectMerchantAccounts(ctx context.Context, userID int64, googleEmail string, tokenResp *google.TokenResp) (int, error) {
	authInfo, err := s.merchantClient.FetchAuthInfo(ctx, tokenResp.AccessToken)
	if err != nil {
		return 0, fmt.Errorf("获取 Merchant 账号列表失败: %w", err)
	}
	if len(authInfo.AccountIdentifiers) == 0 {
		return 0, fmt.Errorf("该 Google 账号没有可访问的 Merchant Center 账号")
	}

	accessTokenEnc, refreshTokenEnc, err := encryptTokenPair(tokenResp)
	if err != nil {
		return 0, err
	}
	expiresAt := time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	scopes := strings.Fields(tokenResp.Scope)

	var connected int
	for _, ident := range authInfo.AccountIdentifiers {
		merchantID := ident.MerchantID
		if merchantID == "" {
			merchantID = ident.AggregatorID
		}
		if merchantID == "" {
			continue
		}

		accountName := ""
		if acct, err := s.merchantClient.FetchAccount(ctx, tokenResp.AccessToken, merchantID); err != nil {
			log.Printf("[OAuth] 获取 Merchant 账号 %s 详情失败: %v", merchantID, err)
		} else {
			accountName = acct.Name
		}

		// 重复连接视为重新授权，覆盖 Token 并重新激活
		existing, err := s.merchantRepo.GetByUserAndMerchantID(ctx, userID, merchantID)
		if err != nil {
			return connected, err
		}
		if existing != nil {
			existing.AccessTokenEnc = accessTokenEnc
			existing.RefreshTokenEnc = refreshTokenEnc
			existing.TokenExpiresAt = expiresAt
			existing.Scopes = scopes
			existing.IsActive = true
			existing.GoogleEmail = googleEmail
			if accountName != "" {
				existing.AccountName = accountName
			}
			if err := s.merchantRepo.Update(ctx, existing); err != nil {
				return connected, err
			}
		} else {
			account := &model.MerchantAccount{
				UserID:          userID,
				MerchantID:      merchantID,
				AccountName:     accountName,
				GoogleEmail:     googleEmail,
				AccessTokenEnc:  accessTokenEnc,
				RefreshTokenEnc: refreshTokenEnc,
				TokenExpiresAt:  expiresAt,
				Scopes:          scopes,
				IsActive:        true,
			}
			if err := s.merchantRepo.Create(ctx, account); err != nil {
				return connected, err
			}
		}
		connected++
	}

	return connected, nil
}

// connectAdsAccounts 拉取 Token 可访问的 Ads 客户账号并逐个入库
func (s *OAuthService) connectAdsAccounts(ctx context.Context, userID int64, googleEmail string, tokenResp *google.TokenResp) (int, error) {
	customerIDs, err := s.adsClient.ListAccessibleCustomers(ctx, tokenResp.AccessToken)
	if err != nil {
		return 0, fmt.Errorf("获取 Ads 账号列表失败: %w", err)
	}
	if len(customerIDs) == 0 {
		return 0, fmt.Errorf("该 Google 账号没有可访问的 Ads 账号")
	}

	accessTokenEnc, refreshTokenEnc, err := encryptTokenPair(tokenResp)
	if err != nil {
		return 0, err
	}
	expiresAt := time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)

	var connected int
	for _, customerID := range customerIDs {
		existing, err := s.adsRepo.GetByUserAndCustomerID(ctx, userID, customerID)
		if err != nil {
			return connected, err
		}
		if existing != nil {
			existing.AccessTokenEnc = accessTokenEnc
			existing.RefreshTokenEnc = refreshTokenEnc
			existing.TokenExpiresAt = expiresAt
			existing.IsActive = true
			existing.GoogleEmail = googleEmail
			if err := s.adsRepo.Update(ctx, existing); err != nil {
				return connected, err
			}
		} else {
			account := &model.AdsAccount{
				UserID:          userID,
				CustomerID:      customerID,
				GoogleEmail:     googleEmail,
				AccessTokenEnc:  accessTokenEnc,
				RefreshTokenEnc: refreshTokenEnc,
				TokenExpiresAt:  expiresAt,
				IsActive:        true,
			}
			if err := s.adsRepo.Create(ctx, account); err != nil {
				return connected, err
			}
		}
		connected++
	}

	return connected, nil
}

// encryptTokenPair 加密 Token 对
func encryptTokenPair(tokenResp *google.TokenResp) (accessEnc, refreshEnc string, err error) {
	accessEnc, err = utils.EncryptToken(tokenResp.AccessToken)
	if err != nil {
		return "", "", err
	}
	refreshEnc, err = utils.EncryptToken(tokenResp.RefreshToken)
	if err != nil {
		return "", "", err
	}
	return accessEnc, refreshEnc, nil
}
