package service

import (
	"context"
	"strings"

	"gmc_dev_v1_202608/internal/api/dto"
	"gmc_dev_v1_202608/internal/model"
	"gmc_dev_v1_202608/internal/repository"
	"gmc_dev_v1_202608/pkg/google"
	"gmc_dev_v1_202608/pkg/utils"
)

// ==================== CredentialService 凭证服务 ====================

// CredentialService 管理用户自备的 Google OAuth 客户端凭证
type CredentialService struct {
	credRepo    repository.CredentialRepository
	redirectURI string
}

// NewCredentialService 创建凭证服务
func NewCredentialService(credRepo repository.CredentialRepository, redirectURI string) *CredentialService {
	return &CredentialService{
		credRepo:    credRepo,
		redirectURI: redirectURI,
	}
}

// ==================== 凭证管理 ====================

// Save 保存凭证，先校验格式再加密落库
func (s *CredentialService) Save(ctx context.Context, userID int64, req *dto.SaveCredentialRequest) error {
	clientID := strings.TrimSpace(req.ClientID)
	clientSecret := strings.TrimSpace(req.ClientSecret)

	// Google Web 应用凭证的固定格式
	if !strings.HasSuffix(clientID, ".apps.googleusercontent.com") {
		return ErrInvalidClientID
	}
	if !strings.HasPrefix(clientSecret, "GOCSPX-") {
		return ErrInvalidClientSecret
	}

	clientIDEnc, err := utils.EncryptToken(clientID)
	if err != nil {
		return err
	}
	clientSecretEnc, err := utils.EncryptToken(clientSecret)
	if err != nil {
		return err
	}

	return s.credRepo.Upsert(ctx, &model.UserCredential{
		UserID:          userID,
		ClientIDEnc:     clientIDEnc,
		ClientSecretEnc: clientSecretEnc,
	})
}

// Get 获取凭证信息（脱敏）
func (s *CredentialService) Get(ctx context.Context, userID int64) (*dto.CredentialInfo, error) {
	cred, err := s.credRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return &dto.CredentialInfo{Configured: false}, nil
	}

	clientID, err := utils.DecryptToken(cred.ClientIDEnc)
	if err != nil {
		return nil, err
	}

	return &dto.CredentialInfo{
		Configured:     true,
		ClientIDMasked: maskClientID(clientID),
		UpdatedAt:      cred.UpdatedAt,
	}, nil
}

// Delete 删除凭证
func (s *CredentialService) Delete(ctx context.Context, userID int64) error {
	return s.credRepo.DeleteByUserID(ctx, userID)
}

// ==================== OAuth 客户端构造 ====================

// OAuthClientFor 用用户自己的凭证构造 OAuth 客户端
// OAuth / Token 服务的统一入口
func (s *CredentialService) OAuthClientFor(ctx context.Context, userID int64) (*google.OAuthClient, error) {
	cred, err := s.credRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, ErrCredentialNotConfigured
	}

	clientID, err := utils.DecryptToken(cred.ClientIDEnc)
	if err != nil {
		return nil, err
	}
	clientSecret, err := utils.DecryptToken(cred.ClientSecretEnc)
	if err != nil {
		return nil, err
	}

	return google.NewOAuthClient(clientID, clientSecret, s.redirectURI), nil
}

// ==================== 辅助函数 ====================

// maskClientID 保留前 8 位和固定后缀，中间打码
func maskClientID(clientID string) string {
	const suffix = ".apps.googleusercontent.com"
	head := strings.TrimSuffix(clientID, suffix)
	if len(head) > 8 {
		head = head[:8]
	}
	return head + "..." + suffix
}
