package google

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ==================== Ads API v16 客户端 ====================

// AdsClient Google Ads API 客户端
// developer token 是平台级配置，OAuth token 按账号传入
type AdsClient struct {
	client         *resty.Client
	DeveloperToken string
}

// NewAdsClient 创建 Ads API 客户端
func NewAdsClient(developerToken string) *AdsClient {
	return &AdsClient{
		client:         newClient(),
		DeveloperToken: developerToken,
	}
}

// ==================== DTO ====================

// listAccessibleResp listAccessibleCustomers 响应
type listAccessibleResp struct {
	ResourceNames []string `json:"resourceNames"`
}

// AdsMetricsRow 购物广告报表行
type AdsMetricsRow struct {
	Segments struct {
		ProductItemID string `json:"productItemId"`
	} `json:"segments"`
	Metrics struct {
		Clicks      string  `json:"clicks"`
		Impressions string  `json:"impressions"`
		CostMicros  string  `json:"costMicros"`
		Conversions float64 `json:"conversions"`
	} `json:"metrics"`
}

// searchStreamChunk searchStream 响应分块
type searchStreamChunk struct {
	Results []AdsMetricsRow `json:"results"`
}

// AdsMetrics offer 维度聚合的付费指标
type AdsMetrics struct {
	Clicks      int
	Impressions int
	Cost        float64
	Conversions float64
}

// ==================== 接口调用 ====================

// ListAccessibleCustomers 列出 Token 可访问的 Ads 客户账号 ID
func (a *AdsClient) ListAccessibleCustomers(ctx context.Context, accessToken string) ([]string, error) {
	var result listAccessibleResp
	resp, err := withRetry(func() (*resty.Response, error) {
		return a.client.R().
			SetContext(ctx).
			SetAuthToken(accessToken).
			SetHeader("developer-token", a.DeveloperToken).
			SetResult(&result).
			Get(AdsAPIBase + "/customers:listAccessibleCustomers")
	})
	if err != nil {
		return nil, err
	}
	if err := checkResp(resp, "listAccessibleCustomers failed"); err != nil {
		return nil, err
	}

	// resourceNames 形如 "customers/1234567890"
	ids := make([]string, 0, len(result.ResourceNames))
	for _, rn := range result.ResourceNames {
		ids = append(ids, strings.TrimPrefix(rn, "customers/"))
	}
	return ids, nil
}

// FetchShoppingMetrics 查询购物广告报表 (shopping_product_performance_view)
// 返回 product_item_id (即 offer_id，小写) 维度聚合的指标
func (a *AdsClient) FetchShoppingMetrics(ctx context.Context, accessToken, customerID string, startDate, endDate time.Time) (map[string]AdsMetrics, error) {
	query := fmt.Sprintf(
		"SELECT segments.product_item_id, metrics.clicks, metrics.impressions, "+
			"metrics.cost_micros, metrics.conversions "+
			"FROM shopping_product_performance_view "+
			"WHERE segments.date BETWEEN '%s' AND '%s'",
		startDate.Format("2006-01-02"), endDate.Format("2006-01-02"),
	)

	var chunks []searchStreamChunk
	resp, err := withRetry(func() (*resty.Response, error) {
		return a.client.R().
			SetContext(ctx).
			SetAuthToken(accessToken).
			SetHeader("developer-token", a.DeveloperToken).
			SetBody(map[string]string{"query": query}).
			SetResult(&chunks).
			Post(fmt.Sprintf("%s/customers/%s/googleAds:searchStream", AdsAPIBase, customerID))
	})
	if err != nil {
		return nil, err
	}
	if err := checkResp(resp, "searchStream failed"); err != nil {
		return nil, err
	}

	metrics := make(map[string]AdsMetrics)
	for _, chunk := range chunks {
		for _, row := range chunk.Results {
			// Ads 报表的 product_item_id 是小写的 offer_id
			key := strings.ToLower(row.Segments.ProductItemID)
			agg := metrics[key]
			agg.Clicks += atoiSafe(row.Metrics.Clicks)
			agg.Impressions += atoiSafe(row.Metrics.Impressions)
			agg.Cost += float64(atoi64Safe(row.Metrics.CostMicros)) / 1e6
			agg.Conversions += row.Metrics.Conversions
			metrics[key] = agg
		}
	}

	return metrics, nil
}

// ==================== 工具函数 ====================

// Google 接口把 int64 序列化成字符串，解析失败按 0 处理
func atoiSafe(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atoi64Safe(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
