package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gmc_dev_v1_202608/internal/model"
	"gmc_dev_v1_202608/internal/repository"
	"gmc_dev_v1_202608/pkg/google"
	"gmc_dev_v1_202608/pkg/utils"
)

// stubMerchantAPI 可编程的 Content API 替身
type stubMerchantAPI struct {
	products    []google.ProductDTO
	productsErr error
	metrics     map[string]google.FreeMetrics
	metricsErr  error
	updateErr   error

	updatedTitles map[string]string // productID -> 最后一次推送的标题
}

func (s *stubMerchantAPI) ListAllProducts(ctx context.Context, accessToken, merchantID string) ([]google.ProductDTO, error) {
	return s.products, s.productsErr
}

func (s *stubMerchantAPI) UpdateProductTitle(ctx context.Context, accessToken, merchantID, productID, newTitle string) (*google.ProductDTO, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	if s.updatedTitles == nil {
		s.updatedTitles = make(map[string]string)
	}
	s.updatedTitles[productID] = newTitle
	return &google.ProductDTO{ID: productID, Title: newTitle}, nil
}

func (s *stubMerchantAPI) FetchFreeMetrics(ctx context.Context, accessToken, merchantID string, startDate, endDate time.Time) (map[string]google.FreeMetrics, error) {
	if s.metricsErr != nil {
		return nil, s.metricsErr
	}
	return s.metrics, nil
}

func setupSyncTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}

	err = db.AutoMigrate(
		&model.SysUser{},
		&model.MerchantAccount{},
		&model.AdsAccount{},
		&model.Product{},
	)
	if err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}

// newSyncServiceForTest 只接 DB，网络客户端留空，用于校验类路径
func newSyncServiceForTest(db *gorm.DB) *SyncService {
	return NewSyncService(
		nil,
		repository.NewMerchantAccountRepository(db),
		repository.NewAdsAccountRepository(db),
		repository.NewProductRepository(db),
		nil,
		nil,
	)
}

// newSyncServiceWithClient 走完整同步流程，Content API 用替身
func newSyncServiceWithClient(db *gorm.DB, client merchantAPI) *SyncService {
	return NewSyncService(
		newTokenServiceForTest(db),
		repository.NewMerchantAccountRepository(db),
		repository.NewAdsAccountRepository(db),
		repository.NewProductRepository(db),
		client,
		nil,
	)
}

// seedSyncAccount 有效 Token 的活跃 Merchant 账号
func seedSyncAccount(t *testing.T, db *gorm.DB) *model.MerchantAccount {
	t.Helper()
	enc, err := utils.EncryptToken("ya29.sync-token")
	if err != nil {
		t.Fatalf("EncryptToken() error = %v", err)
	}
	account := &model.MerchantAccount{
		UserID:         1,
		MerchantID:     "123456",
		IsActive:       true,
		AccessTokenEnc: enc,
		TokenExpiresAt: time.Now().Add(1 * time.Hour),
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("创建账号失败: %v", err)
	}
	return account
}

func TestSyncService_SyncMerchantAccount_Validation(t *testing.T) {
	db := setupSyncTestDB(t)
	svc := newSyncServiceForTest(db)
	ctx := context.Background()

	inactive := &model.MerchantAccount{UserID: 1, MerchantID: "111", IsActive: false}
	if err := db.Create(inactive).Error; err != nil {
		t.Fatalf("创建账号失败: %v", err)
	}
	other := &model.MerchantAccount{UserID: 2, MerchantID: "222", IsActive: true}
	if err := db.Create(other).Error; err != nil {
		t.Fatalf("创建账号失败: %v", err)
	}

	if _, err := svc.SyncMerchantAccount(ctx, 1, 9999); err != ErrAccountNotFound {
		t.Errorf("不存在的账号 err = %v, want ErrAccountNotFound", err)
	}
	// 别人的账号同样视为不存在
	if _, err := svc.SyncMerchantAccount(ctx, 1, other.ID); err != ErrAccountNotFound {
		t.Errorf("他人账号 err = %v, want ErrAccountNotFound", err)
	}
	if _, err := svc.SyncMerchantAccount(ctx, 1, inactive.ID); err != ErrAccountInactive {
		t.Errorf("停用账号 err = %v, want ErrAccountInactive", err)
	}
}

func TestSyncService_SyncAdsAccount_Validation(t *testing.T) {
	db := setupSyncTestDB(t)
	svc := newSyncServiceForTest(db)
	ctx := context.Background()

	unlinked := &model.AdsAccount{UserID: 1, CustomerID: "1234567890", IsActive: true}
	if err := db.Create(unlinked).Error; err != nil {
		t.Fatalf("创建 Ads 账号失败: %v", err)
	}
	inactive := &model.AdsAccount{UserID: 1, CustomerID: "2234567890", IsActive: false}
	if err := db.Create(inactive).Error; err != nil {
		t.Fatalf("创建 Ads 账号失败: %v", err)
	}

	if _, err := svc.SyncAdsAccount(ctx, 1, 9999); err != ErrAccountNotFound {
		t.Errorf("不存在的账号 err = %v, want ErrAccountNotFound", err)
	}
	if _, err := svc.SyncAdsAccount(ctx, 1, inactive.ID); err != ErrAccountInactive {
		t.Errorf("停用账号 err = %v, want ErrAccountInactive", err)
	}
	// 未关联 Merchant 账号时没有指标回写目标
	if _, err := svc.SyncAdsAccount(ctx, 1, unlinked.ID); err != ErrAdsNotLinked {
		t.Errorf("未关联账号 err = %v, want ErrAdsNotLinked", err)
	}
}

func TestSyncService_BuildProduct(t *testing.T) {
	svc := newSyncServiceForTest(setupSyncTestDB(t))

	d := google.ProductDTO{
		ID:                    "online:fr:FR:sku-42",
		OfferID:               "sku-42",
		Title:                 "Chaussures de running homme",
		Description:           "Semelle amortie",
		Link:                  "https://shop.example/p/42",
		Brand:                 "Nike",
		Gtin:                  "3614270000000",
		GoogleProductCategory: "Apparel & Accessories > Shoes",
		ProductTypes:          []string{"Sport", "Running"},
		Availability:          "in stock",
		Condition:             "new",
		Price:                 &google.ProductPrice{Value: "89.90", Currency: "EUR"},
	}
	freeByWindow := map[int]map[string]google.FreeMetrics{
		14: {"sku-42": {Clicks: 30, Impressions: 600}},
		30: {"sku-42": {Clicks: 70, Impressions: 1500}},
		90: {"other-sku": {Clicks: 999, Impressions: 999}},
	}

	p := svc.buildProduct(7, d, freeByWindow)

	if p.MerchantAccountID != 7 {
		t.Errorf("MerchantAccountID = %d, want 7", p.MerchantAccountID)
	}
	if p.GoogleProductID != "online:fr:FR:sku-42" || p.OfferID != "sku-42" {
		t.Errorf("商品标识映射错误: %q / %q", p.GoogleProductID, p.OfferID)
	}
	// 首次构建时原始标题与当前标题一致
	if p.TitleOriginal != d.Title || p.TitleCurrent != d.Title {
		t.Errorf("标题映射错误: original=%q current=%q", p.TitleOriginal, p.TitleCurrent)
	}
	if p.PriceAmount != 89.90 || p.PriceCurrency != "EUR" {
		t.Errorf("价格 = %v %s, want 89.90 EUR", p.PriceAmount, p.PriceCurrency)
	}
	if p.ProductType != "Sport > Running" {
		t.Errorf("ProductType = %q, want Sport > Running", p.ProductType)
	}
	if p.FreeClicks14d != 30 || p.FreeImpressions14d != 600 {
		t.Errorf("14 天指标 = %d/%d, want 30/600", p.FreeClicks14d, p.FreeImpressions14d)
	}
	if p.FreeClicks30d != 70 {
		t.Errorf("FreeClicks30d = %d, want 70", p.FreeClicks30d)
	}
	// 90 天窗口里没有本商品的行，保持零值
	if p.FreeClicks90d != 0 || p.FreeClicks365d != 0 {
		t.Errorf("缺失窗口指标应为零值: 90d=%d 365d=%d", p.FreeClicks90d, p.FreeClicks365d)
	}
}

func TestSyncService_BuildProduct_BadPrice(t *testing.T) {
	svc := newSyncServiceForTest(setupSyncTestDB(t))

	d := google.ProductDTO{
		ID:      "online:fr:FR:sku-1",
		OfferID: "sku-1",
		Title:   "Produit",
		Price:   &google.ProductPrice{Value: "not-a-number", Currency: "EUR"},
	}
	p := svc.buildProduct(1, d, nil)

	if p.PriceAmount != 0 {
		t.Errorf("非法价格应忽略金额, got %v", p.PriceAmount)
	}
	if p.PriceCurrency != "EUR" {
		t.Errorf("币种仍应保留, got %q", p.PriceCurrency)
	}
}

func TestSyncService_SyncMerchantAccount_FullRun(t *testing.T) {
	setTokenTestKey(t)
	db := setupSyncTestDB(t)
	ctx := context.Background()

	account := seedSyncAccount(t, db)
	stub := &stubMerchantAPI{
		products: []google.ProductDTO{
			{ID: "online:fr:FR:sku-9", OfferID: "sku-9", Title: "Chaussures de trail"},
		},
		metrics: map[string]google.FreeMetrics{
			"sku-9": {Clicks: 25, Impressions: 480},
		},
	}
	svc := newSyncServiceWithClient(db, stub)

	resp, err := svc.SyncMerchantAccount(ctx, 1, account.ID)
	if err != nil {
		t.Fatalf("SyncMerchantAccount() error = %v", err)
	}
	if resp.ProductsCount != 1 {
		t.Errorf("ProductsCount = %d, want 1", resp.ProductsCount)
	}

	var p model.Product
	if err := db.Where("merchant_account_id = ?", account.ID).First(&p).Error; err != nil {
		t.Fatalf("查询同步结果失败: %v", err)
	}
	if p.FreeClicks14d != 25 || p.FreeImpressions14d != 480 {
		t.Errorf("14 天指标 = %d/%d, want 25/480", p.FreeClicks14d, p.FreeImpressions14d)
	}
	if p.TotalClicks14d != 25 {
		t.Errorf("TotalClicks14d = %d, 总点击应等于免费加付费", p.TotalClicks14d)
	}

	var got model.MerchantAccount
	db.First(&got, account.ID)
	if got.LastSyncStatus != model.SyncStatusSuccess {
		t.Errorf("LastSyncStatus = %q, want success", got.LastSyncStatus)
	}
}

func TestSyncService_SyncMerchantAccount_ReportFailureKeepsMetrics(t *testing.T) {
	setTokenTestKey(t)
	db := setupSyncTestDB(t)
	ctx := context.Background()

	account := seedSyncAccount(t, db)
	existing := &model.Product{
		MerchantAccountID:  account.ID,
		GoogleProductID:    "online:fr:FR:sku-9",
		OfferID:            "sku-9",
		TitleOriginal:      "Chaussures",
		TitleCurrent:       "Chaussures",
		FreeClicks14d:      40,
		FreeImpressions14d: 900,
		TotalClicks14d:     40,
	}
	if err := db.Create(existing).Error; err != nil {
		t.Fatalf("创建商品失败: %v", err)
	}

	stub := &stubMerchantAPI{
		products: []google.ProductDTO{
			{ID: "online:fr:FR:sku-9", OfferID: "sku-9", Title: "Chaussures"},
		},
		metricsErr: errors.New("report backend unavailable"),
	}
	svc := newSyncServiceWithClient(db, stub)

	if _, err := svc.SyncMerchantAccount(ctx, 1, account.ID); err == nil {
		t.Fatal("报表接口失败时整次同步应失败")
	}

	// 库里的指标必须保持上次同步的值，不能被写成零
	var p model.Product
	if err := db.First(&p, existing.ID).Error; err != nil {
		t.Fatalf("查询商品失败: %v", err)
	}
	if p.FreeClicks14d != 40 || p.FreeImpressions14d != 900 {
		t.Errorf("指标被覆盖: clicks=%d impressions=%d, want 40/900", p.FreeClicks14d, p.FreeImpressions14d)
	}

	var got model.MerchantAccount
	db.First(&got, account.ID)
	if got.LastSyncStatus != model.SyncStatusError {
		t.Errorf("LastSyncStatus = %q, want error", got.LastSyncStatus)
	}
	if got.LastSyncError == "" {
		t.Error("LastSyncError 应记录失败原因")
	}
}
