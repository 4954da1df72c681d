package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync/atomic"
	"time"

	"gmc_dev_v1_202608/internal/api/dto"
	"gmc_dev_v1_202608/internal/model"
	"gmc_dev_v1_202608/internal/repository"
	"gmc_dev_v1_202608/pkg/google"
)

// 影响测量参数
const (
	// ImpactMeasurementDays 变更后需要观察的天数，满足后才进入测量
	ImpactMeasurementDays = 15
	// 变更后 14 天窗口与变更前快照窗口对齐
	impactMetricsDays = 14

	// 总点击变化率定级阈值（百分比）
	PositiveImpactThreshold = 10.0
	NegativeImpactThreshold = -10.0

	// 单轮最多处理的变更数
	measureBatchLimit = 200
)

// ==================== ImpactService 影响测量 ====================

// ImpactService 测量标题变更满观察期后的点击影响
type ImpactService struct {
	tokenSvc       *TokenService
	merchantRepo   repository.MerchantAccountRepository
	productRepo    repository.ProductRepository
	changeRepo     repository.TitleChangeRepository
	merchantClient merchantAPI

	// 同一时刻只允许一轮测量
	running atomic.Bool
}

// NewImpactService 创建影响测量服务
func NewImpactService(
	tokenSvc *TokenService,
	merchantRepo repository.MerchantAccountRepository,
	productRepo repository.ProductRepository,
	changeRepo repository.TitleChangeRepository,
	merchantClient merchantAPI,
) *ImpactService {
	return &ImpactService{
		tokenSvc:       tokenSvc,
		merchantRepo:   merchantRepo,
		productRepo:    productRepo,
		changeRepo:     changeRepo,
		merchantClient: merchantClient,
	}
}

// ==================== 测量主流程 ====================

// MeasurePending 测量所有满观察期的 pending 变更
func (s *ImpactService) MeasurePending(ctx context.Context) (*dto.MeasureRunResp, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrMeasureInProgress
	}
	defer s.running.Store(false)

	start := time.Now()
	cutoff := start.AddDate(0, 0, -ImpactMeasurementDays)

	changes, err := s.changeRepo.FindMeasurable(ctx, cutoff, measureBatchLimit)
	if err != nil {
		return nil, err
	}

	resp := &dto.MeasureRunResp{Checked: len(changes)}
	if len(changes) == 0 {
		resp.DurationMs = time.Since(start).Milliseconds()
		return resp, nil
	}

	// 按账号分组，一个账号只拉一次报表
	byAccount := make(map[int64][]model.TitleChange)
	for _, c := range changes {
		if c.Product == nil {
			continue
		}
		byAccount[c.Product.MerchantAccountID] = append(byAccount[c.Product.MerchantAccountID], c)
	}

	now := time.Now()
	for accountID, accountChanges := range byAccount {
		metrics, err := s.fetchAccountMetrics(ctx, accountID, now)
		if err != nil {
			log.Printf("[Impact] 账号 %d 拉取测量指标失败: %v", accountID, err)
			resp.Failed += len(accountChanges)
			for i := range accountChanges {
				resp.Errors = append(resp.Errors, fmt.Sprintf("变更 %d: %v", accountChanges[i].ID, err))
			}
			continue
		}
		for i := range accountChanges {
			if err := s.measureChange(ctx, &accountChanges[i], metrics, now); err != nil {
				log.Printf("[Impact] 变更 %d 测量失败: %v", accountChanges[i].ID, err)
				resp.Failed++
				resp.Errors = append(resp.Errors, fmt.Sprintf("变更 %d: %v", accountChanges[i].ID, err))
				continue
			}
			resp.Measured++
		}
	}

	resp.DurationMs = time.Since(start).Milliseconds()
	log.Printf("[Impact] 本轮测量完成: 待测 %d, 成功 %d, 失败 %d", resp.Checked, resp.Measured, resp.Failed)
	return resp, nil
}

// fetchAccountMetrics 拉取账号最近 14 天的免费流量指标
func (s *ImpactService) fetchAccountMetrics(ctx context.Context, accountID int64, now time.Time) (map[string]google.FreeMetrics, error) {
	account, err := s.merchantRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	if !account.IsActive {
		return nil, ErrAccountInactive
	}
	accessToken, err := s.tokenSvc.EnsureMerchantToken(ctx, account)
	if err != nil {
		return nil, err
	}
	return s.merchantClient.FetchFreeMetrics(ctx, accessToken, account.MerchantID, now.AddDate(0, 0, -impactMetricsDays), now)
}

// measureChange 计算单条变更的变化率并定级
func (s *ImpactService) measureChange(ctx context.Context, change *model.TitleChange, metrics map[string]google.FreeMetrics, now time.Time) error {
	// 报表没有该商品说明观察期内零流量
	var freeClicksAfter, freeImpressionsAfter int
	if m, ok := metrics[change.Product.OfferID]; ok {
		freeClicksAfter = m.Clicks
		freeImpressionsAfter = m.Impressions
	}

	// 付费指标暂不纳入变更后对比，总点击取免费口径
	totalClicksAfter := freeClicksAfter

	freeVariation := variationPercent(change.FreeClicksBefore14d, freeClicksAfter)
	totalVariation := variationPercent(change.TotalClicksBefore14d, totalClicksAfter)
	impact := classifyImpact(totalVariation)

	if err := s.changeRepo.UpdateMeasurement(ctx, change.ID, repository.Measurement{
		FreeClicksAfter14d:          freeClicksAfter,
		FreeImpressionsAfter14d:     freeImpressionsAfter,
		TotalClicksAfter14d:         totalClicksAfter,
		FreeClicksVariationPercent:  freeVariation,
		TotalClicksVariationPercent: totalVariation,
		ImpactStatus:                impact,
		MeasuredAt:                  now,
	}); err != nil {
		return err
	}

	// 负面影响的商品留在测试态，等待下一次优化
	status := model.OptimizationOptimized
	if impact == model.ImpactNegative {
		status = model.OptimizationTesting
	}
	return s.productRepo.UpdateFields(ctx, change.ProductID, map[string]interface{}{
		"optimization_status": status,
	})
}

// ==================== 计算 ====================

// variationPercent 变化率（百分比，保留两位小数）
// 基数为零时：有流量算 +100%，没流量算 0%
func variationPercent(before, after int) float64 {
	var v float64
	switch {
	case before > 0:
		v = float64(after-before) / float64(before) * 100
	case after > 0:
		v = 100
	default:
		v = 0
	}
	return math.Round(v*100) / 100
}

// classifyImpact 按总点击变化率定级
func classifyImpact(totalVariation float64) model.ImpactStatus {
	switch {
	case totalVariation >= PositiveImpactThreshold:
		return model.ImpactPositive
	case totalVariation <= NegativeImpactThreshold:
		return model.ImpactNegative
	default:
		return model.ImpactNeutral
	}
}
