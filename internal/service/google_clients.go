package service

import (
	"context"
	"time"

	"gmc_dev_v1_202608/pkg/google"
)

// merchantAPI 各服务用到的 Content API 能力子集
// 生产环境传 *google.MerchantClient
type merchantAPI interface {
	ListAllProducts(ctx context.Context, accessToken, merchantID string) ([]google.ProductDTO, error)
	UpdateProductTitle(ctx context.Context, accessToken, merchantID, productID, newTitle string) (*google.ProductDTO, error)
	FetchFreeMetrics(ctx context.Context, accessToken, merchantID string, startDate, endDate time.Time) (map[string]google.FreeMetrics, error)
}

// adsAPI 各服务用到的 Ads 查询能力子集
// 生产环境传 *google.AdsClient
type adsAPI interface {
	FetchShoppingMetrics(ctx context.Context, accessToken, customerID string, startDate, endDate time.Time) (map[string]google.AdsMetrics, error)
}
