package repository

import (
	"context"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gmc_dev_v1_202608/internal/model"
)

func setupProductTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}

	err = db.AutoMigrate(
		&model.SysUser{},
		&model.MerchantAccount{},
		&model.Product{},
	)
	if err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}

	return db
}

func seedAccount(t *testing.T, db *gorm.DB, userID int64) *model.MerchantAccount {
	t.Helper()
	account := &model.MerchantAccount{
		UserID:     userID,
		MerchantID: "123456",
		IsActive:   true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("创建测试账号失败: %v", err)
	}
	return account
}

func TestProductModel_WindowedMetricColumns(t *testing.T) {
	db := setupProductTestDB(t)
	migrator := db.Migrator()

	// 数字结尾的字段名靠显式 column 标签映射，
	// 原生 SQL 与 Upsert 冲突列用的都是带下划线的列名，两边必须一致
	columns := []string{
		"free_clicks_14d", "free_clicks_30d", "free_clicks_90d", "free_clicks_365d",
		"free_impressions_14d", "free_impressions_30d", "free_impressions_90d", "free_impressions_365d",
		"ads_clicks_14d", "ads_clicks_30d", "ads_clicks_90d", "ads_clicks_365d",
		"ads_impressions_14d", "ads_impressions_30d", "ads_impressions_90d", "ads_impressions_365d",
		"ads_cost_14d", "ads_cost_30d",
		"ads_conversions_14d", "ads_conversions_30d",
		"total_clicks_14d", "total_clicks_30d", "total_clicks_90d", "total_clicks_365d",
	}
	for _, col := range columns {
		if !migrator.HasColumn(&model.Product{}, col) {
			t.Errorf("products 表缺少列 %s", col)
		}
	}
}

func TestProductRepo_BatchUpsertCatalog_Insert(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()
	account := seedAccount(t, db, 1)

	products := []model.Product{
		{
			MerchantAccountID: account.ID,
			GoogleProductID:   "online:fr:FR:sku-1",
			OfferID:           "sku-1",
			TitleOriginal:     "Mug artisanal",
			TitleCurrent:      "Mug artisanal",
			FreeClicks14d:     10,
		},
		{
			MerchantAccountID: account.ID,
			GoogleProductID:   "online:fr:FR:sku-2",
			OfferID:           "sku-2",
			TitleOriginal:     "Vase bleu",
			TitleCurrent:      "Vase bleu",
		},
	}

	if err := repo.BatchUpsertCatalog(ctx, products); err != nil {
		t.Fatalf("BatchUpsertCatalog() error = %v", err)
	}

	count, err := repo.CountByAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("CountByAccount() error = %v", err)
	}
	if count != 2 {
		t.Errorf("商品数量 = %d, want 2", count)
	}
}

func TestProductRepo_BatchUpsertCatalog_ConflictKeepsOriginalTitle(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()
	account := seedAccount(t, db, 1)

	first := []model.Product{{
		MerchantAccountID: account.ID,
		GoogleProductID:   "online:fr:FR:sku-1",
		OfferID:           "sku-1",
		TitleOriginal:     "Titre initial",
		TitleCurrent:      "Titre initial",
		FreeClicks14d:     5,
	}}
	if err := repo.BatchUpsertCatalog(ctx, first); err != nil {
		t.Fatalf("首次 Upsert error = %v", err)
	}

	// 再次同步：目录标题变了，指标也变了
	second := []model.Product{{
		MerchantAccountID: account.ID,
		GoogleProductID:   "online:fr:FR:sku-1",
		OfferID:           "sku-1",
		TitleOriginal:     "远端新标题",
		TitleCurrent:      "远端新标题",
		FreeClicks14d:     42,
	}}
	if err := repo.BatchUpsertCatalog(ctx, second); err != nil {
		t.Fatalf("二次 Upsert error = %v", err)
	}

	got, err := repo.GetByAccountAndGoogleID(ctx, account.ID, "online:fr:FR:sku-1")
	if err != nil {
		t.Fatalf("GetByAccountAndGoogleID() error = %v", err)
	}
	if got == nil {
		t.Fatal("商品应该存在")
	}

	// title_original 不在冲突更新列里，永远保留首次同步的值
	if got.TitleOriginal != "Titre initial" {
		t.Errorf("TitleOriginal = %q, 不应被二次同步覆盖", got.TitleOriginal)
	}
	if got.TitleCurrent != "远端新标题" {
		t.Errorf("TitleCurrent = %q, want 远端新标题", got.TitleCurrent)
	}
	if got.FreeClicks14d != 42 {
		t.Errorf("FreeClicks14d = %d, want 42", got.FreeClicks14d)
	}

	// 没有产生重复行
	count, _ := repo.CountByAccount(ctx, account.ID)
	if count != 1 {
		t.Errorf("商品数量 = %d, want 1", count)
	}
}

func TestProductRepo_RecomputeTotalsByAccount(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()
	account := seedAccount(t, db, 1)

	product := &model.Product{
		MerchantAccountID: account.ID,
		GoogleProductID:   "online:fr:FR:sku-1",
		TitleOriginal:     "t",
		TitleCurrent:      "t",
		FreeClicks14d:     10,
		FreeClicks30d:     20,
		AdsClicks14d:      3,
		AdsClicks30d:      7,
	}
	if err := repo.Create(ctx, product); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.RecomputeTotalsByAccount(ctx, account.ID); err != nil {
		t.Fatalf("RecomputeTotalsByAccount() error = %v", err)
	}

	got, _ := repo.GetByID(ctx, product.ID)
	if got.TotalClicks14d != 13 {
		t.Errorf("TotalClicks14d = %d, want 13 (free+ads)", got.TotalClicks14d)
	}
	if got.TotalClicks30d != 27 {
		t.Errorf("TotalClicks30d = %d, want 27", got.TotalClicks30d)
	}
}

func TestProductRepo_ResetAdsMetrics(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()
	account := seedAccount(t, db, 1)

	product := &model.Product{
		MerchantAccountID: account.ID,
		GoogleProductID:   "online:fr:FR:sku-1",
		TitleOriginal:     "t",
		TitleCurrent:      "t",
		AdsClicks14d:      100,
		AdsClicks365d:     500,
		AdsCost14d:        12.5,
		FreeClicks14d:     8,
	}
	if err := repo.Create(ctx, product); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.ResetAdsMetrics(ctx, account.ID); err != nil {
		t.Fatalf("ResetAdsMetrics() error = %v", err)
	}

	got, _ := repo.GetByID(ctx, product.ID)
	if got.AdsClicks14d != 0 || got.AdsClicks365d != 0 || got.AdsCost14d != 0 {
		t.Error("付费指标应全部清零")
	}
	if got.FreeClicks14d != 8 {
		t.Error("免费指标不应被清零")
	}
}

func TestProductRepo_ListOfferIndexByAccount(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()
	account := seedAccount(t, db, 1)

	products := []model.Product{
		{MerchantAccountID: account.ID, GoogleProductID: "g1", OfferID: "SKU-Upper", TitleOriginal: "a", TitleCurrent: "a"},
		{MerchantAccountID: account.ID, GoogleProductID: "g2", OfferID: "", TitleOriginal: "b", TitleCurrent: "b"},
	}
	for i := range products {
		if err := repo.Create(ctx, &products[i]); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	index, err := repo.ListOfferIndexByAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("ListOfferIndexByAccount() error = %v", err)
	}

	// Ads 报表用小写 item_id，索引键必须归一化
	if _, ok := index["sku-upper"]; !ok {
		t.Error("offer_id 应按小写建索引")
	}
	if len(index) != 1 {
		t.Errorf("索引条目 = %d, want 1 (空 offer_id 应被排除)", len(index))
	}
}

func TestProductRepo_ListTitleLockedByAccount(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()
	account := seedAccount(t, db, 1)

	statuses := []model.OptimizationStatus{
		model.OptimizationOriginal,
		model.OptimizationTesting,
		model.OptimizationOptimized,
		model.OptimizationRolledBack,
	}
	for i, status := range statuses {
		p := &model.Product{
			MerchantAccountID:  account.ID,
			GoogleProductID:    "g" + string(rune('0'+i)),
			TitleOriginal:      "t",
			TitleCurrent:       "t",
			OptimizationStatus: status,
		}
		if err := repo.Create(ctx, p); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	locked, err := repo.ListTitleLockedByAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("ListTitleLockedByAccount() error = %v", err)
	}
	if len(locked) != 2 {
		t.Errorf("保护期商品数 = %d, want 2 (testing + optimized)", len(locked))
	}
	for _, p := range locked {
		if !p.TitleLocked() {
			t.Errorf("状态 %s 不应出现在保护列表", p.OptimizationStatus)
		}
	}
}

func TestProductRepo_List_OwnershipFilter(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	mine := seedAccount(t, db, 1)
	theirs := &model.MerchantAccount{UserID: 2, MerchantID: "999", IsActive: true}
	if err := db.Create(theirs).Error; err != nil {
		t.Fatalf("创建他人账号失败: %v", err)
	}

	for i, accID := range []int64{mine.ID, theirs.ID} {
		p := &model.Product{
			MerchantAccountID: accID,
			GoogleProductID:   "g" + string(rune('0'+i)),
			TitleOriginal:     "t",
			TitleCurrent:      "t",
		}
		if err := repo.Create(ctx, p); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	products, total, err := repo.List(ctx, ProductFilter{UserID: 1})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 1 || len(products) != 1 {
		t.Fatalf("List() 返回 %d/%d 条, want 1/1", len(products), total)
	}
	if products[0].MerchantAccountID != mine.ID {
		t.Error("不应返回他人账号下的商品")
	}
}

func TestProductRepo_CountByOptimizationStatus(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()
	account := seedAccount(t, db, 1)

	fixtures := map[model.OptimizationStatus]int{
		model.OptimizationOriginal: 3,
		model.OptimizationTesting:  2,
	}
	i := 0
	for status, n := range fixtures {
		for j := 0; j < n; j++ {
			p := &model.Product{
				MerchantAccountID:  account.ID,
				GoogleProductID:    "g" + string(rune('a'+i)),
				TitleOriginal:      "t",
				TitleCurrent:       "t",
				OptimizationStatus: status,
			}
			i++
			if err := repo.Create(ctx, p); err != nil {
				t.Fatalf("Create() error = %v", err)
			}
		}
	}

	stats, err := repo.CountByOptimizationStatus(ctx, account.ID)
	if err != nil {
		t.Fatalf("CountByOptimizationStatus() error = %v", err)
	}
	if stats[model.OptimizationOriginal] != 3 {
		t.Errorf("original = %d, want 3", stats[model.OptimizationOriginal])
	}
	if stats[model.OptimizationTesting] != 2 {
		t.Errorf("testing = %d, want 2", stats[model.OptimizationTesting])
	}
}

func TestProductRepo_UpdateFields(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()
	account := seedAccount(t, db, 1)

	product := &model.Product{
		MerchantAccountID: account.ID,
		GoogleProductID:   "g1",
		TitleOriginal:     "old",
		TitleCurrent:      "old",
	}
	if err := repo.Create(ctx, product); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	now := time.Now()
	err := repo.UpdateFields(ctx, product.ID, map[string]interface{}{
		"title_current":        "new",
		"optimization_status":  model.OptimizationTesting,
		"times_optimized":      1,
		"last_title_change_at": now,
	})
	if err != nil {
		t.Fatalf("UpdateFields() error = %v", err)
	}

	got, _ := repo.GetByID(ctx, product.ID)
	if got.TitleCurrent != "new" {
		t.Errorf("TitleCurrent = %q, want new", got.TitleCurrent)
	}
	if got.OptimizationStatus != model.OptimizationTesting {
		t.Errorf("OptimizationStatus = %s, want testing", got.OptimizationStatus)
	}
	if got.TitleOriginal != "old" {
		t.Error("TitleOriginal 不应被修改")
	}
}
