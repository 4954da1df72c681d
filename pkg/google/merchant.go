package google

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ==================== Content API v2.1 客户端 ====================

// MerchantClient Merchant Center Content API 客户端
// Token 由调用方每次传入，同一客户端可服务多个账号
type MerchantClient struct {
	client *resty.Client
}

// NewMerchantClient 创建 Content API 客户端
func NewMerchantClient() *MerchantClient {
	return &MerchantClient{client: newClient()}
}

// ==================== DTO ====================

// AuthInfoResp accounts/authinfo 响应
type AuthInfoResp struct {
	AccountIdentifiers []struct {
		MerchantID   string `json:"merchantId"`
		AggregatorID string `json:"aggregatorId"`
	} `json:"accountIdentifiers"`
}

// AccountResp 账号详情响应
type AccountResp struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProductPrice 商品价格
type ProductPrice struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// ProductDTO Content API 商品结构
// insert 更新标题时整个对象原样回传，缺字段会被 Google 置空
type ProductDTO struct {
	ID                    string        `json:"id,omitempty"`
	OfferID               string        `json:"offerId"`
	Title                 string        `json:"title"`
	Description           string        `json:"description,omitempty"`
	Link                  string        `json:"link,omitempty"`
	ImageLink             string        `json:"imageLink,omitempty"`
	ContentLanguage       string        `json:"contentLanguage"`
	TargetCountry         string        `json:"targetCountry"`
	Channel               string        `json:"channel"`
	Availability          string        `json:"availability,omitempty"`
	Condition             string        `json:"condition,omitempty"`
	Price                 *ProductPrice `json:"price,omitempty"`
	Brand                 string        `json:"brand,omitempty"`
	Gtin                  string        `json:"gtin,omitempty"`
	Mpn                   string        `json:"mpn,omitempty"`
	GoogleProductCategory string        `json:"googleProductCategory,omitempty"`
	ProductTypes          []string      `json:"productTypes,omitempty"`
}

// productListResp products.list 响应
type productListResp struct {
	Resources     []ProductDTO `json:"resources"`
	NextPageToken string       `json:"nextPageToken"`
}

// ReportRow 免费流量报表行
type ReportRow struct {
	Segments struct {
		OfferID string `json:"offerId"`
		Program string `json:"program"`
	} `json:"segments"`
	Metrics struct {
		Clicks      string `json:"clicks"`
		Impressions string `json:"impressions"`
	} `json:"metrics"`
}

// reportSearchResp reports.search 响应
type reportSearchResp struct {
	Results       []ReportRow `json:"results"`
	NextPageToken string      `json:"nextPageToken"`
}

// FreeMetrics 聚合后的免费流量指标
type FreeMetrics struct {
	Clicks      int
	Impressions int
}

// ==================== 接口调用 ====================

// FetchAuthInfo 获取授权 Token 可访问的 Merchant 账号列表
func (m *MerchantClient) FetchAuthInfo(ctx context.Context, accessToken string) (*AuthInfoResp, error) {
	var result AuthInfoResp
	resp, err := withRetry(func() (*resty.Response, error) {
		return m.client.R().
			SetContext(ctx).
			SetAuthToken(accessToken).
			SetResult(&result).
			Get(ContentAPIBase + "/accounts/authinfo")
	})
	if err != nil {
		return nil, err
	}
	if err := checkResp(resp, "authinfo failed"); err != nil {
		return nil, err
	}
	return &result, nil
}

// FetchAccount 获取账号详情（取账号名）
func (m *MerchantClient) FetchAccount(ctx context.Context, accessToken, merchantID string) (*AccountResp, error) {
	var result AccountResp
	resp, err := withRetry(func() (*resty.Response, error) {
		return m.client.R().
			SetContext(ctx).
			SetAuthToken(accessToken).
			SetResult(&result).
			Get(fmt.Sprintf("%s/%s/accounts/%s", ContentAPIBase, merchantID, merchantID))
	})
	if err != nil {
		return nil, err
	}
	if err := checkResp(resp, "account fetch failed"); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListAllProducts 分页拉取全量商品，每页 250 条
func (m *MerchantClient) ListAllProducts(ctx context.Context, accessToken, merchantID string) ([]ProductDTO, error) {
	var all []ProductDTO
	pageToken := ""

	for {
		var page productListResp
		req := m.client.R().
			SetContext(ctx).
			SetAuthToken(accessToken).
			SetQueryParam("maxResults", "250").
			SetResult(&page)
		if pageToken != "" {
			req.SetQueryParam("pageToken", pageToken)
		}

		resp, err := withRetry(func() (*resty.Response, error) {
			return req.Get(fmt.Sprintf("%s/%s/products", ContentAPIBase, merchantID))
		})
		if err != nil {
			return nil, err
		}
		if err := checkResp(resp, "products list failed"); err != nil {
			return nil, err
		}

		all = append(all, page.Resources...)

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	return all, nil
}

// GetProduct 获取单个商品
func (m *MerchantClient) GetProduct(ctx context.Context, accessToken, merchantID, productID string) (*ProductDTO, error) {
	var result ProductDTO
	resp, err := withRetry(func() (*resty.Response, error) {
		return m.client.R().
			SetContext(ctx).
			SetAuthToken(accessToken).
			SetResult(&result).
			Get(fmt.Sprintf("%s/%s/products/%s", ContentAPIBase, merchantID, productID))
	})
	if err != nil {
		return nil, err
	}
	if err := checkResp(resp, "product get failed"); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateProductTitle 更新商品标题
// Content API 没有部分更新，流程是 get 整个商品 -> 改 title -> insert 回写
func (m *MerchantClient) UpdateProductTitle(ctx context.Context, accessToken, merchantID, productID, newTitle string) (*ProductDTO, error) {
	product, err := m.GetProduct(ctx, accessToken, merchantID, productID)
	if err != nil {
		return nil, err
	}

	product.Title = newTitle
	// insert 时 id 由 offerId 等字段推导，回传会报错
	product.ID = ""

	var result ProductDTO
	resp, err := withRetry(func() (*resty.Response, error) {
		return m.client.R().
			SetContext(ctx).
			SetAuthToken(accessToken).
			SetBody(product).
			SetResult(&result).
			Post(fmt.Sprintf("%s/%s/products", ContentAPIBase, merchantID))
	})
	if err != nil {
		return nil, err
	}
	if err := checkResp(resp, "product title update failed"); err != nil {
		return nil, err
	}
	return &result, nil
}

// FetchFreeMetrics 查询免费流量报表 (MerchantPerformanceView)
// 返回 offer_id 维度聚合的点击/曝光
func (m *MerchantClient) FetchFreeMetrics(ctx context.Context, accessToken, merchantID string, startDate, endDate time.Time) (map[string]FreeMetrics, error) {
	query := fmt.Sprintf(
		"SELECT segments.offer_id, segments.program, metrics.clicks, metrics.impressions "+
			"FROM MerchantPerformanceView "+
			"WHERE segments.date BETWEEN '%s' AND '%s' "+
			"AND segments.program = 'FREE_PRODUCT_LISTING'",
		startDate.Format("2006-01-02"), endDate.Format("2006-01-02"),
	)

	metrics := make(map[string]FreeMetrics)
	pageToken := ""

	for {
		body := map[string]interface{}{"query": query, "pageSize": 1000}
		if pageToken != "" {
			body["pageToken"] = pageToken
		}

		var page reportSearchResp
		resp, err := withRetry(func() (*resty.Response, error) {
			return m.client.R().
				SetContext(ctx).
				SetAuthToken(accessToken).
				SetBody(body).
				SetResult(&page).
				Post(fmt.Sprintf("%s/%s/reports/search", ContentAPIBase, merchantID))
		})
		if err != nil {
			return nil, err
		}
		if err := checkResp(resp, "report search failed"); err != nil {
			return nil, err
		}

		for _, row := range page.Results {
			agg := metrics[row.Segments.OfferID]
			agg.Clicks += atoiSafe(row.Metrics.Clicks)
			agg.Impressions += atoiSafe(row.Metrics.Impressions)
			metrics[row.Segments.OfferID] = agg
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	return metrics, nil
}
