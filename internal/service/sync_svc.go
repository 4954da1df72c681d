package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"gmc_dev_v1_202608/internal/api/dto"
	"gmc_dev_v1_202608/internal/model"
	"gmc_dev_v1_202608/internal/repository"
	"gmc_dev_v1_202608/pkg/google"
)

// 指标滚动窗口（天）
var metricWindows = []int{14, 30, 90, 365}

// ==================== SyncService 数据同步 ====================

// SyncService Merchant 商品目录与 Ads 付费指标同步
type SyncService struct {
	tokenSvc       *TokenService
	merchantRepo   repository.MerchantAccountRepository
	adsRepo        repository.AdsAccountRepository
	productRepo    repository.ProductRepository
	merchantClient merchantAPI
	adsClient      adsAPI
}

// NewSyncService 创建同步服务
func NewSyncService(
	tokenSvc *TokenService,
	merchantRepo repository.MerchantAccountRepository,
	adsRepo repository.AdsAccountRepository,
	productRepo repository.ProductRepository,
	merchantClient merchantAPI,
	adsClient adsAPI,
) *SyncService {
	return &SyncService{
		tokenSvc:       tokenSvc,
		merchantRepo:   merchantRepo,
		adsRepo:        adsRepo,
		productRepo:    productRepo,
		merchantClient: merchantClient,
		adsClient:      adsClient,
	}
}

// ==================== Merchant 目录同步 ====================

// SyncMerchantAccount 全量同步一个 Merchant 账号：商品目录 + 四个窗口的免费流量指标
func (s *SyncService) SyncMerchantAccount(ctx context.Context, userID, accountID int64) (*dto.SyncResultResp, error) {
	start := time.Now()

	// 1. 归属与状态校验
	account, err := s.merchantRepo.GetByUserAndID(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	if !account.IsActive {
		return nil, ErrAccountInactive
	}

	// 2. 标记同步中，之后无论成败都要落一次终态
	if err := s.merchantRepo.UpdateSyncStatus(ctx, accountID, model.SyncStatusSyncing, "", account.ProductsCount); err != nil {
		return nil, err
	}

	count, err := s.syncMerchantProducts(ctx, account)
	if err != nil {
		if stErr := s.merchantRepo.UpdateSyncStatus(ctx, accountID, model.SyncStatusError, err.Error(), account.ProductsCount); stErr != nil {
			log.Printf("[Sync] 记录同步失败状态出错: %v", stErr)
		}
		return nil, err
	}

	if err := s.merchantRepo.UpdateSyncStatus(ctx, accountID, model.SyncStatusSuccess, "", count); err != nil {
		return nil, err
	}

	return &dto.SyncResultResp{
		AccountID:     accountID,
		Status:        model.SyncStatusSuccess,
		ProductsCount: count,
		DurationMs:    time.Since(start).Milliseconds(),
	}, nil
}

// syncMerchantProducts 同步逻辑主体，返回目录商品数
func (s *SyncService) syncMerchantProducts(ctx context.Context, account *model.MerchantAccount) (int, error) {
	accessToken, err := s.tokenSvc.EnsureMerchantToken(ctx, account)
	if err != nil {
		return 0, err
	}

	// 1. 拉全量商品目录
	dtos, err := s.merchantClient.ListAllProducts(ctx, accessToken, account.MerchantID)
	if err != nil {
		return 0, fmt.Errorf("拉取商品目录失败: %w", err)
	}
	log.Printf("[Sync] 账号 %s 拉到 %d 个商品", account.MerchantID, len(dtos))

	// 2. 拉四个窗口的免费流量指标，按 offer_id 聚合
	now := time.Now()
	freeByWindow := make(map[int]map[string]google.FreeMetrics, len(metricWindows))
	for _, days := range metricWindows {
		metrics, err := s.merchantClient.FetchFreeMetrics(ctx, accessToken, account.MerchantID, now.AddDate(0, 0, -days), now)
		if err != nil {
			// Upsert 会整行覆盖指标列，缺窗口继续写会把库里的值清零，
			// 所以任一窗口失败就让整次同步失败，保住上次的指标
			return 0, fmt.Errorf("拉取 %d 天免费指标失败: %w", days, err)
		}
		freeByWindow[days] = metrics
	}

	// 3. 实验保护期的商品不允许同步覆盖标题
	lockedProducts, err := s.productRepo.ListTitleLockedByAccount(ctx, account.ID)
	if err != nil {
		return 0, err
	}
	lockedTitles := make(map[string]string, len(lockedProducts))
	for _, p := range lockedProducts {
		lockedTitles[p.GoogleProductID] = p.TitleCurrent
	}

	// 4. 组装并批量 Upsert
	products := make([]model.Product, 0, len(dtos))
	syncedAt := now
	for _, d := range dtos {
		p := s.buildProduct(account.ID, d, freeByWindow)
		p.LastSyncedAt = &syncedAt
		if title, locked := lockedTitles[p.GoogleProductID]; locked {
			p.TitleCurrent = title
		}
		products = append(products, p)
	}
	if err := s.productRepo.BatchUpsertCatalog(ctx, products); err != nil {
		return 0, fmt.Errorf("商品入库失败: %w", err)
	}

	// 5. 维持 total = free + ads
	if err := s.productRepo.RecomputeTotalsByAccount(ctx, account.ID); err != nil {
		return 0, err
	}

	return len(products), nil
}

// buildProduct 把 Content API 的商品结构映射为本地模型
func (s *SyncService) buildProduct(accountID int64, d google.ProductDTO, freeByWindow map[int]map[string]google.FreeMetrics) model.Product {
	p := model.Product{
		MerchantAccountID:     accountID,
		GoogleProductID:       d.ID,
		OfferID:               d.OfferID,
		TitleOriginal:         d.Title, // 冲突更新列表不含此列，仅首次插入生效
		TitleCurrent:          d.Title,
		Description:           d.Description,
		Link:                  d.Link,
		ImageLink:             d.ImageLink,
		Brand:                 d.Brand,
		Gtin:                  d.Gtin,
		Mpn:                   d.Mpn,
		GoogleProductCategory: d.GoogleProductCategory,
		ProductType:           strings.Join(d.ProductTypes, " > "),
		Availability:          d.Availability,
		Condition:             d.Condition,
	}
	if d.Price != nil {
		if v, err := strconv.ParseFloat(d.Price.Value, 64); err == nil {
			p.PriceAmount = v
		}
		p.PriceCurrency = d.Price.Currency
	}

	// 报表按 offer_id 维度返回
	if m, ok := freeByWindow[14][d.OfferID]; ok {
		p.FreeClicks14d, p.FreeImpressions14d = m.Clicks, m.Impressions
	}
	if m, ok := freeByWindow[30][d.OfferID]; ok {
		p.FreeClicks30d, p.FreeImpressions30d = m.Clicks, m.Impressions
	}
	if m, ok := freeByWindow[90][d.OfferID]; ok {
		p.FreeClicks90d, p.FreeImpressions90d = m.Clicks, m.Impressions
	}
	if m, ok := freeByWindow[365][d.OfferID]; ok {
		p.FreeClicks365d, p.FreeImpressions365d = m.Clicks, m.Impressions
	}
	return p
}

// ==================== Ads 指标同步 ====================

// SyncAdsAccount 同步一个 Ads 账号的付费指标，按 offer_id 回写到关联 Merchant 账号的商品
func (s *SyncService) SyncAdsAccount(ctx context.Context, userID, accountID int64) (*dto.SyncResultResp, error) {
	start := time.Now()

	account, err := s.adsRepo.GetByUserAndID(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	if !account.IsActive {
		return nil, ErrAccountInactive
	}
	if account.MerchantAccountID == nil {
		return nil, ErrAdsNotLinked
	}

	if err := s.adsRepo.UpdateSyncStatus(ctx, accountID, model.SyncStatusSyncing, ""); err != nil {
		return nil, err
	}

	updated, err := s.syncAdsMetrics(ctx, account)
	if err != nil {
		if stErr := s.adsRepo.UpdateSyncStatus(ctx, accountID, model.SyncStatusError, err.Error()); stErr != nil {
			log.Printf("[Sync] 记录 Ads 同步失败状态出错: %v", stErr)
		}
		return nil, err
	}

	if err := s.adsRepo.UpdateSyncStatus(ctx, accountID, model.SyncStatusSuccess, ""); err != nil {
		return nil, err
	}

	return &dto.SyncResultResp{
		AccountID:    accountID,
		Status:       model.SyncStatusSuccess,
		UpdatedCount: updated,
		DurationMs:   time.Since(start).Milliseconds(),
	}, nil
}

// syncAdsMetrics 同步逻辑主体，返回被回写的商品数
func (s *SyncService) syncAdsMetrics(ctx context.Context, account *model.AdsAccount) (int, error) {
	accessToken, err := s.tokenSvc.EnsureAdsToken(ctx, account)
	if err != nil {
		return 0, err
	}
	merchantAccountID := *account.MerchantAccountID

	// 1. Ads 的 product_item_id 为小写，用小写 offer_id 索引做匹配
	offerIndex, err := s.productRepo.ListOfferIndexByAccount(ctx, merchantAccountID)
	if err != nil {
		return 0, err
	}

	// 2. 按窗口拉指标
	now := time.Now()
	adsByWindow := make(map[int]map[string]google.AdsMetrics, len(metricWindows))
	for _, days := range metricWindows {
		metrics, err := s.adsClient.FetchShoppingMetrics(ctx, accessToken, account.CustomerID, now.AddDate(0, 0, -days), now)
		if err != nil {
			return 0, fmt.Errorf("拉取 %d 天 Ads 指标失败: %v", days, err)
		}
		adsByWindow[days] = metrics
	}

	// 3. 先清零，已停投的商品指标才能归零
	if err := s.productRepo.ResetAdsMetrics(ctx, merchantAccountID); err != nil {
		return 0, err
	}

	// 4. 按商品聚合四个窗口后逐个回写
	updates := make(map[int64]map[string]interface{})
	fieldsFor := func(productID int64) map[string]interface{} {
		if f, ok := updates[productID]; ok {
			return f
		}
		f := make(map[string]interface{})
		updates[productID] = f
		return f
	}
	for days, metrics := range adsByWindow {
		for itemID, m := range metrics {
			productID, ok := offerIndex[itemID]
			if !ok {
				continue
			}
			f := fieldsFor(productID)
			f[fmt.Sprintf("ads_clicks_%dd", days)] = m.Clicks
			f[fmt.Sprintf("ads_impressions_%dd", days)] = m.Impressions
			switch days {
			case 14:
				f["ads_cost_14d"] = m.Cost
				f["ads_conversions_14d"] = m.Conversions
			case 30:
				f["ads_cost_30d"] = m.Cost
				f["ads_conversions_30d"] = m.Conversions
			}
		}
	}
	for productID, fields := range updates {
		if err := s.productRepo.UpdateFields(ctx, productID, fields); err != nil {
			return 0, err
		}
	}

	// 5. 维持 total = free + ads
	if err := s.productRepo.RecomputeTotalsByAccount(ctx, merchantAccountID); err != nil {
		return 0, err
	}

	return len(updates), nil
}

// ==================== 批量同步（定时任务入口） ====================

// SyncAllActive 同步所有活跃账号，返回 (成功数, 失败数)
func (s *SyncService) SyncAllActive(ctx context.Context) (int, int) {
	var succeeded, failed int

	merchants, err := s.merchantRepo.ListActive(ctx)
	if err != nil {
		log.Printf("[Sync] 查询活跃 Merchant 账号失败: %v", err)
		return 0, 0
	}
	for i := range merchants {
		account := &merchants[i]
		if _, err := s.SyncMerchantAccount(ctx, account.UserID, account.ID); err != nil {
			log.Printf("[Sync] Merchant 账号 %s 同步失败: %v", account.MerchantID, err)
			failed++
			continue
		}
		succeeded++
	}

	adsAccounts, err := s.adsRepo.ListActive(ctx)
	if err != nil {
		log.Printf("[Sync] 查询活跃 Ads 账号失败: %v", err)
		return succeeded, failed
	}
	for i := range adsAccounts {
		account := &adsAccounts[i]
		if account.MerchantAccountID == nil {
			continue // 未关联 Merchant 账号的跳过
		}
		if _, err := s.SyncAdsAccount(ctx, account.UserID, account.ID); err != nil {
			log.Printf("[Sync] Ads 账号 %s 同步失败: %v", account.CustomerID, err)
			failed++
			continue
		}
		succeeded++
	}

	return succeeded, failed
}
