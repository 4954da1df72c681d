package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"gmc_dev_v1_202608/internal/api/dto"
	"gmc_dev_v1_202608/internal/middleware"
	"gmc_dev_v1_202608/internal/model"
	"gmc_dev_v1_202608/internal/repository"
)

// ==================== OptimizeService 标题优化 ====================

// OptimizeService 标题建议生成与应用
type OptimizeService struct {
	db             *gorm.DB
	aiSvc          *AIService
	tokenSvc       *TokenService
	merchantRepo   repository.MerchantAccountRepository
	productRepo    repository.ProductRepository
	changeRepo     repository.TitleChangeRepository
	merchantClient merchantAPI
}

// NewOptimizeService 创建优化服务
func NewOptimizeService(
	db *gorm.DB,
	aiSvc *AIService,
	tokenSvc *TokenService,
	merchantRepo repository.MerchantAccountRepository,
	productRepo repository.ProductRepository,
	changeRepo repository.TitleChangeRepository,
	merchantClient merchantAPI,
) *OptimizeService {
	return &OptimizeService{
		db:             db,
		aiSvc:          aiSvc,
		tokenSvc:       tokenSvc,
		merchantRepo:   merchantRepo,
		productRepo:    productRepo,
		changeRepo:     changeRepo,
		merchantClient: merchantClient,
	}
}

// getOwnedProduct 带归属校验取商品及其所属账号
func (s *OptimizeService) getOwnedProduct(ctx context.Context, userID, productID int64) (*model.Product, *model.MerchantAccount, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, nil, err
	}
	if product == nil {
		return nil, nil, ErrProductNotFound
	}
	account, err := s.merchantRepo.GetByUserAndID(ctx, userID, product.MerchantAccountID)
	if err != nil {
		return nil, nil, err
	}
	if account == nil {
		// 商品存在但不属于该用户，对外统一按不存在处理
		return nil, nil, ErrProductNotFound
	}
	return product, account, nil
}

// ==================== 生成建议 ====================

// SuggestTitles 为商品生成标题建议
func (s *OptimizeService) SuggestTitles(ctx context.Context, userID, productID int64) (*dto.SuggestTitlesResponse, error) {
	product, _, err := s.getOwnedProduct(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	// AI 生成按次计费，商品维度防连点
	key := middleware.ProductSuggestKey(product.ID)
	if !middleware.GetLimiter().Check(key, middleware.GetInterval(middleware.SyncTypeSuggest)).Allowed {
		return nil, ErrSuggestTooFrequent
	}

	result, err := s.aiSvc.GenerateTitleSuggestions(ctx, userID, product)
	if err != nil {
		return nil, err
	}

	return &dto.SuggestTitlesResponse{
		ProductID:    product.ID,
		TitleCurrent: product.TitleCurrent,
		Suggestions:  result.Suggestions,
		Provider:     result.Provider,
		ModelName:    result.ModelName,
		DurationMs:   result.DurationMs,
	}, nil
}

// ==================== 应用标题 ====================

// ApplyTitle 把新标题推到 Google 并落一条变更记录
// 先改远端再写本地：远端失败时本地不留脏数据；本地事务失败时远端已改，
// 下一次同步会按保护期规则把远端标题读回来，不会产生衰退
func (s *OptimizeService) ApplyTitle(ctx context.Context, userID int64, req *dto.ApplyTitleRequest) (*dto.ApplyTitleResponse, error) {
	// 1. 校验
	newTitle := strings.TrimSpace(req.NewTitle)
	if newTitle == "" {
		return nil, ErrTitleEmpty
	}
	if len([]rune(newTitle)) > TitleMaxLength {
		return nil, ErrTitleTooLong
	}

	product, account, err := s.getOwnedProduct(ctx, userID, req.ProductID)
	if err != nil {
		return nil, err
	}
	if newTitle == product.TitleCurrent {
		return nil, ErrTitleUnchanged
	}
	if !product.OptimizationStatus.CanTransition(model.OptimizationTesting) {
		return nil, fmt.Errorf("当前状态 %s 不允许应用新标题", product.OptimizationStatus)
	}

	source := req.Source
	if source == "" {
		source = model.ChangeSourceAI
	}

	// 2. 先推 Google
	accessToken, err := s.tokenSvc.EnsureMerchantToken(ctx, account)
	if err != nil {
		return nil, err
	}
	if _, err := s.merchantClient.UpdateProductTitle(ctx, accessToken, account.MerchantID, product.GoogleProductID, newTitle); err != nil {
		return nil, fmt.Errorf("更新 Google 商品标题失败: %w", err)
	}

	// 3. 本地事务：变更记录 + 商品状态
	now := time.Now()
	change := &model.TitleChange{
		ProductID:    product.ID,
		OldTitle:     product.TitleCurrent,
		NewTitle:     newTitle,
		ChangeSource: source,
		AIReasoning:  req.AIReasoning,
		ChangedAt:    now,
		ChangedBy:    userID,

		FreeClicksBefore14d:      product.FreeClicks14d,
		FreeImpressionsBefore14d: product.FreeImpressions14d,
		AdsClicksBefore14d:       product.AdsClicks14d,
		AdsImpressionsBefore14d:  product.AdsImpressions14d,
		TotalClicksBefore14d:     product.TotalClicks14d,

		ImpactStatus: model.ImpactPending,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.changeRepo.WithTx(tx).Create(ctx, change); err != nil {
			return err
		}
		return s.productRepo.WithTx(tx).UpdateFields(ctx, product.ID, map[string]interface{}{
			"title_current":        newTitle,
			"optimization_status":  model.OptimizationTesting,
			"times_optimized":      product.TimesOptimized + 1,
			"last_title_change_at": now,
		})
	})
	if err != nil {
		return nil, err
	}

	return &dto.ApplyTitleResponse{
		ProductID:     product.ID,
		TitleChangeID: change.ID,
		OldTitle:      change.OldTitle,
		NewTitle:      newTitle,
		Status:        string(model.OptimizationTesting),
		ChangedAt:     now,
	}, nil
}
