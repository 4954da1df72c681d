package service

import (
	"context"

	"gmc_dev_v1_202608/internal/api/dto"
	"gmc_dev_v1_202608/internal/model"
	"gmc_dev_v1_202608/internal/repository"
)

// ==================== ProductService 商品查询 ====================

// ProductService 商品读侧查询
type ProductService struct {
	merchantRepo repository.MerchantAccountRepository
	productRepo  repository.ProductRepository
	changeRepo   repository.TitleChangeRepository
}

// NewProductService 创建商品服务
func NewProductService(
	merchantRepo repository.MerchantAccountRepository,
	productRepo repository.ProductRepository,
	changeRepo repository.TitleChangeRepository,
) *ProductService {
	return &ProductService{
		merchantRepo: merchantRepo,
		productRepo:  productRepo,
		changeRepo:   changeRepo,
	}
}

// List 分页查询商品
func (s *ProductService) List(ctx context.Context, userID int64, req *dto.ProductListRequest) (*dto.ProductListResp, error) {
	filter := repository.ProductFilter{
		MerchantAccountID:  req.AccountID,
		UserID:             userID,
		OptimizationStatus: model.OptimizationStatus(req.Status),
		Keyword:            req.Keyword,
		SortBy:             req.SortBy,
		Page:               req.Page,
		PageSize:           req.PageSize,
	}
	products, total, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]dto.ProductResp, 0, len(products))
	for i := range products {
		items = append(items, toProductResp(&products[i]))
	}
	return &dto.ProductListResp{
		Code:     0,
		Message:  "success",
		Data:     items,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

// Get 查询单个商品（带归属校验）
func (s *ProductService) Get(ctx context.Context, userID, productID int64) (*dto.ProductResp, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	account, err := s.merchantRepo.GetByUserAndID(ctx, userID, product.MerchantAccountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrProductNotFound
	}
	resp := toProductResp(product)
	return &resp, nil
}

// History 商品的标题变更历史
func (s *ProductService) History(ctx context.Context, userID, productID int64) ([]dto.TitleChangeResp, error) {
	if _, err := s.Get(ctx, userID, productID); err != nil {
		return nil, err
	}
	changes, err := s.changeRepo.ListByProductID(ctx, productID)
	if err != nil {
		return nil, err
	}
	items := make([]dto.TitleChangeResp, 0, len(changes))
	for i := range changes {
		items = append(items, toTitleChangeResp(&changes[i]))
	}
	return items, nil
}

// Stats 按优化状态统计某账号的商品
func (s *ProductService) Stats(ctx context.Context, userID, accountID int64) (*dto.ProductStatsResp, error) {
	account, err := s.merchantRepo.GetByUserAndID(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	counts, err := s.productRepo.CountByOptimizationStatus(ctx, accountID)
	if err != nil {
		return nil, err
	}
	total, err := s.productRepo.CountByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &dto.ProductStatsResp{
		Total:      total,
		Original:   counts[model.OptimizationOriginal],
		Testing:    counts[model.OptimizationTesting],
		Optimized:  counts[model.OptimizationOptimized],
		RolledBack: counts[model.OptimizationRolledBack],
	}, nil
}

// ==================== DTO 映射 ====================

func toProductResp(p *model.Product) dto.ProductResp {
	return dto.ProductResp{
		ID:                p.ID,
		MerchantAccountID: p.MerchantAccountID,
		GoogleProductID:   p.GoogleProductID,
		OfferID:           p.OfferID,

		TitleOriginal: p.TitleOriginal,
		TitleCurrent:  p.TitleCurrent,

		Description:   p.Description,
		Link:          p.Link,
		ImageLink:     p.ImageLink,
		PriceAmount:   p.PriceAmount,
		PriceCurrency: p.PriceCurrency,
		Brand:         p.Brand,
		Availability:  p.Availability,

		Metrics: dto.ProductMetrics{
			FreeClicks14d:       p.FreeClicks14d,
			FreeClicks30d:       p.FreeClicks30d,
			FreeClicks90d:       p.FreeClicks90d,
			FreeClicks365d:      p.FreeClicks365d,
			FreeImpressions14d:  p.FreeImpressions14d,
			FreeImpressions30d:  p.FreeImpressions30d,
			FreeImpressions90d:  p.FreeImpressions90d,
			FreeImpressions365d: p.FreeImpressions365d,

			AdsClicks14d:      p.AdsClicks14d,
			AdsClicks30d:      p.AdsClicks30d,
			AdsClicks90d:      p.AdsClicks90d,
			AdsClicks365d:     p.AdsClicks365d,
			AdsImpressions14d: p.AdsImpressions14d,
			AdsImpressions30d: p.AdsImpressions30d,
			AdsCost14d:        p.AdsCost14d,
			AdsCost30d:        p.AdsCost30d,
			AdsConversions14d: p.AdsConversions14d,
			AdsConversions30d: p.AdsConversions30d,

			TotalClicks14d:  p.TotalClicks14d,
			TotalClicks30d:  p.TotalClicks30d,
			TotalClicks90d:  p.TotalClicks90d,
			TotalClicks365d: p.TotalClicks365d,
		},

		OptimizationStatus: string(p.OptimizationStatus),
		TimesOptimized:     p.TimesOptimized,
		LastTitleChangeAt:  p.LastTitleChangeAt,
		LastSyncedAt:       p.LastSyncedAt,
	}
}
