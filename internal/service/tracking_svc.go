package service

import (
	"context"
	"fmt"

	"gmc_dev_v1_202608/internal/api/dto"
	"gmc_dev_v1_202608/internal/model"
	"gmc_dev_v1_202608/internal/repository"
)

// ==================== TrackingService 变更追踪 ====================

// TrackingService 标题变更历史查询与回滚
type TrackingService struct {
	tokenSvc       *TokenService
	merchantRepo   repository.MerchantAccountRepository
	productRepo    repository.ProductRepository
	changeRepo     repository.TitleChangeRepository
	merchantClient merchantAPI
}

// NewTrackingService 创建追踪服务
func NewTrackingService(
	tokenSvc *TokenService,
	merchantRepo repository.MerchantAccountRepository,
	productRepo repository.ProductRepository,
	changeRepo repository.TitleChangeRepository,
	merchantClient merchantAPI,
) *TrackingService {
	return &TrackingService{
		tokenSvc:       tokenSvc,
		merchantRepo:   merchantRepo,
		productRepo:    productRepo,
		changeRepo:     changeRepo,
		merchantClient: merchantClient,
	}
}

// ==================== 查询 ====================

// ListChanges 分页查询用户的标题变更
func (s *TrackingService) ListChanges(ctx context.Context, userID int64, req *dto.TitleChangeListRequest) (*dto.TitleChangeListResp, error) {
	filter := repository.TitleChangeFilter{
		UserID:            userID,
		MerchantAccountID: req.AccountID,
		ProductID:         req.ProductID,
		ImpactStatus:      model.ImpactStatus(req.ImpactStatus),
		OnlyPending:       req.OnlyPending,
		Page:              req.Page,
		PageSize:          req.PageSize,
	}
	changes, total, err := s.changeRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]dto.TitleChangeResp, 0, len(changes))
	for i := range changes {
		items = append(items, toTitleChangeResp(&changes[i]))
	}
	return &dto.TitleChangeListResp{
		Code:     0,
		Message:  "success",
		Data:     items,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

// GetChange 查询单条变更（带归属校验）
func (s *TrackingService) GetChange(ctx context.Context, userID, changeID int64) (*dto.TitleChangeResp, error) {
	change, err := s.changeRepo.GetByUserAndID(ctx, userID, changeID)
	if err != nil {
		return nil, err
	}
	if change == nil {
		return nil, ErrChangeNotFound
	}
	resp := toTitleChangeResp(change)
	return &resp, nil
}

// Stats 按影响状态统计
func (s *TrackingService) Stats(ctx context.Context, userID int64) (*dto.TrackingStatsResp, error) {
	counts, err := s.changeRepo.CountByImpactStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.TrackingStatsResp{
		Pending:  counts[model.ImpactPending],
		Positive: counts[model.ImpactPositive],
		Neutral:  counts[model.ImpactNeutral],
		Negative: counts[model.ImpactNegative],
	}, nil
}

// ==================== 回滚 ====================

// Rollback 回滚一次标题变更
// 先恢复 Google 上的旧标题，远端成功后才落本地回滚标记；每条变更只允许回滚一次
func (s *TrackingService) Rollback(ctx context.Context, userID, changeID int64, reason string) (*dto.RollbackResponse, error) {
	// 1. 归属校验（change -> product -> account）
	change, err := s.changeRepo.GetByUserAndID(ctx, userID, changeID)
	if err != nil {
		return nil, err
	}
	if change == nil {
		return nil, ErrChangeNotFound
	}
	if change.IsRolledBack() {
		return nil, ErrAlreadyRolledBack
	}
	if change.Product == nil {
		return nil, ErrProductNotFound
	}

	account, err := s.merchantRepo.GetByUserAndID(ctx, userID, change.Product.MerchantAccountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrChangeNotFound
	}

	if reason == "" {
		reason = "Manual rollback"
	}

	// 2. 先恢复远端标题
	accessToken, err := s.tokenSvc.EnsureMerchantToken(ctx, account)
	if err != nil {
		return nil, err
	}
	if _, err := s.merchantClient.UpdateProductTitle(ctx, accessToken, account.MerchantID, change.Product.GoogleProductID, change.OldTitle); err != nil {
		return nil, fmt.Errorf("恢复 Google 商品标题失败: %w", err)
	}

	// 3. 条件更新防止并发重复回滚
	marked, err := s.changeRepo.MarkRolledBack(ctx, changeID, reason)
	if err != nil {
		return nil, err
	}
	if !marked {
		return nil, ErrAlreadyRolledBack
	}

	// 4. 商品回到 rolled_back 状态
	if err := s.productRepo.UpdateFields(ctx, change.ProductID, map[string]interface{}{
		"title_current":       change.OldTitle,
		"optimization_status": model.OptimizationRolledBack,
	}); err != nil {
		return nil, err
	}

	return &dto.RollbackResponse{
		TitleChangeID: changeID,
		ProductID:     change.ProductID,
		RestoredTitle: change.OldTitle,
		Status:        string(model.OptimizationRolledBack),
	}, nil
}

// ==================== DTO 映射 ====================

func toTitleChangeResp(c *model.TitleChange) dto.TitleChangeResp {
	resp := dto.TitleChangeResp{
		ID:           c.ID,
		ProductID:    c.ProductID,
		OldTitle:     c.OldTitle,
		NewTitle:     c.NewTitle,
		ChangeSource: c.ChangeSource,
		AIReasoning:  c.AIReasoning,
		ChangedAt:    c.ChangedAt,

		FreeClicksBefore14d:      c.FreeClicksBefore14d,
		FreeImpressionsBefore14d: c.FreeImpressionsBefore14d,
		TotalClicksBefore14d:     c.TotalClicksBefore14d,

		FreeClicksAfter14d:          c.FreeClicksAfter14d,
		FreeImpressionsAfter14d:     c.FreeImpressionsAfter14d,
		TotalClicksAfter14d:         c.TotalClicksAfter14d,
		FreeClicksVariationPercent:  c.FreeClicksVariationPercent,
		TotalClicksVariationPercent: c.TotalClicksVariationPercent,

		ImpactStatus:   string(c.ImpactStatus),
		MeasuredAt:     c.MeasuredAt,
		RolledBackAt:   c.RolledBackAt,
		RollbackReason: c.RollbackReason,
	}
	if c.Product != nil {
		resp.ProductTitle = c.Product.TitleCurrent
		resp.OfferID = c.Product.OfferID
	}
	return resp
}
