package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gmc_dev_v1_202608/internal/api/dto"
	"gmc_dev_v1_202608/internal/middleware"
	"gmc_dev_v1_202608/internal/model"
	"gmc_dev_v1_202608/internal/repository"
	"gmc_dev_v1_202608/pkg/utils"
)

func setupOptimizeTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(
		&model.SysUser{}, &model.MerchantAccount{},
		&model.Product{}, &model.TitleChange{},
	); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}

func newOptimizeServiceForTest(db *gorm.DB) *OptimizeService {
	return NewOptimizeService(
		db,
		NewAIService("", "", "", nil),
		nil,
		repository.NewMerchantAccountRepository(db),
		repository.NewProductRepository(db),
		repository.NewTitleChangeRepository(db),
		nil,
	)
}

// newOptimizeServiceWithClient 走完整应用流程，Content API 用替身
func newOptimizeServiceWithClient(db *gorm.DB, client merchantAPI) *OptimizeService {
	return NewOptimizeService(
		db,
		NewAIService("", "", "", nil),
		newTokenServiceForTest(db),
		repository.NewMerchantAccountRepository(db),
		repository.NewProductRepository(db),
		repository.NewTitleChangeRepository(db),
		client,
	)
}

func seedOptimizeProduct(t *testing.T, db *gorm.DB, userID int64, title string) *model.Product {
	t.Helper()

	account := &model.MerchantAccount{UserID: userID, MerchantID: "123", IsActive: true}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("创建账号失败: %v", err)
	}
	product := &model.Product{
		MerchantAccountID: account.ID,
		GoogleProductID:   "online:fr:FR:sku-1",
		OfferID:           "sku-1",
		TitleOriginal:     title,
		TitleCurrent:      title,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("创建商品失败: %v", err)
	}
	return product
}

// seedOptimizeProductWithToken 所属账号带可解密的有效 Token
func seedOptimizeProductWithToken(t *testing.T, db *gorm.DB, userID int64, title string) *model.Product {
	t.Helper()
	product := seedOptimizeProduct(t, db, userID, title)

	enc, err := utils.EncryptToken("ya29.optimize-token")
	if err != nil {
		t.Fatalf("EncryptToken() error = %v", err)
	}
	err = db.Model(&model.MerchantAccount{}).
		Where("id = ?", product.MerchantAccountID).
		Updates(map[string]interface{}{
			"access_token_enc": enc,
			"token_expires_at": time.Now().Add(1 * time.Hour),
		}).Error
	if err != nil {
		t.Fatalf("写入账号 Token 失败: %v", err)
	}
	return product
}

func TestOptimizeService_ApplyTitle_Validation(t *testing.T) {
	db := setupOptimizeTestDB(t)
	svc := newOptimizeServiceForTest(db)
	ctx := context.Background()

	product := seedOptimizeProduct(t, db, 1, "Titre actuel")

	tests := []struct {
		name    string
		req     *dto.ApplyTitleRequest
		wantErr error
	}{
		{
			"空标题",
			&dto.ApplyTitleRequest{ProductID: product.ID, NewTitle: "   "},
			ErrTitleEmpty,
		},
		{
			"超长标题",
			&dto.ApplyTitleRequest{ProductID: product.ID, NewTitle: strings.Repeat("x", TitleMaxLength+1)},
			ErrTitleTooLong,
		},
		{
			"标题未变化",
			&dto.ApplyTitleRequest{ProductID: product.ID, NewTitle: "Titre actuel"},
			ErrTitleUnchanged,
		},
		{
			"商品不存在",
			&dto.ApplyTitleRequest{ProductID: 9999, NewTitle: "Nouveau titre"},
			ErrProductNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ApplyTitle(ctx, 1, tt.req)
			if err != tt.wantErr {
				t.Errorf("ApplyTitle() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestOptimizeService_ApplyTitle_OtherUsersProduct(t *testing.T) {
	db := setupOptimizeTestDB(t)
	svc := newOptimizeServiceForTest(db)
	ctx := context.Background()

	product := seedOptimizeProduct(t, db, 1, "Titre")

	// 用户 2 操作用户 1 的商品：统一按不存在处理，不暴露归属信息
	_, err := svc.ApplyTitle(ctx, 2, &dto.ApplyTitleRequest{
		ProductID: product.ID,
		NewTitle:  "Nouveau titre",
	})
	if err != ErrProductNotFound {
		t.Errorf("越权操作应返回 ErrProductNotFound, got %v", err)
	}
}

func TestOptimizeService_ApplyTitle_Success(t *testing.T) {
	setTokenTestKey(t)
	db := setupOptimizeTestDB(t)
	stub := &stubMerchantAPI{}
	svc := newOptimizeServiceWithClient(db, stub)
	ctx := context.Background()

	product := seedOptimizeProductWithToken(t, db, 1, "Titre actuel")

	resp, err := svc.ApplyTitle(ctx, 1, &dto.ApplyTitleRequest{
		ProductID: product.ID,
		NewTitle:  "Nouveau titre optimise",
	})
	if err != nil {
		t.Fatalf("ApplyTitle() error = %v", err)
	}
	if resp.TitleChangeID == 0 {
		t.Error("应返回新建的变更记录 ID")
	}
	if stub.updatedTitles[product.GoogleProductID] != "Nouveau titre optimise" {
		t.Error("新标题应推送到 Google")
	}

	var change model.TitleChange
	if err := db.First(&change, resp.TitleChangeID).Error; err != nil {
		t.Fatalf("查询变更记录失败: %v", err)
	}
	if change.OldTitle != "Titre actuel" || change.NewTitle != "Nouveau titre optimise" {
		t.Errorf("变更内容 = %q -> %q", change.OldTitle, change.NewTitle)
	}
	if change.ImpactStatus != model.ImpactPending {
		t.Errorf("新变更 ImpactStatus = %s, want pending", change.ImpactStatus)
	}

	var got model.Product
	db.First(&got, product.ID)
	if got.TitleCurrent != "Nouveau titre optimise" {
		t.Errorf("TitleCurrent = %q", got.TitleCurrent)
	}
	if got.OptimizationStatus != model.OptimizationTesting {
		t.Errorf("OptimizationStatus = %s, want testing", got.OptimizationStatus)
	}
	if got.TimesOptimized != 1 {
		t.Errorf("TimesOptimized = %d, want 1", got.TimesOptimized)
	}
}

func TestOptimizeService_ApplyTitle_RemoteFailureLeavesNoRecord(t *testing.T) {
	setTokenTestKey(t)
	db := setupOptimizeTestDB(t)
	stub := &stubMerchantAPI{updateErr: errors.New("google: backend error")}
	svc := newOptimizeServiceWithClient(db, stub)
	ctx := context.Background()

	product := seedOptimizeProductWithToken(t, db, 1, "Titre actuel")

	_, err := svc.ApplyTitle(ctx, 1, &dto.ApplyTitleRequest{
		ProductID: product.ID,
		NewTitle:  "Nouveau titre optimise",
	})
	if err == nil {
		t.Fatal("远端更新失败时 ApplyTitle 应失败")
	}

	// 远端失败后本地不能留下任何痕迹
	var count int64
	db.Model(&model.TitleChange{}).Count(&count)
	if count != 0 {
		t.Errorf("不应产生变更记录, got %d 条", count)
	}
	var got model.Product
	db.First(&got, product.ID)
	if got.TitleCurrent != "Titre actuel" {
		t.Errorf("TitleCurrent = %q, 不应被修改", got.TitleCurrent)
	}
	if got.TimesOptimized != 0 {
		t.Errorf("TimesOptimized = %d, want 0", got.TimesOptimized)
	}
}

func TestOptimizeService_SuggestTitles_AINotConfigured(t *testing.T) {
	db := setupOptimizeTestDB(t)
	svc := newOptimizeServiceForTest(db)
	ctx := context.Background()

	product := seedOptimizeProduct(t, db, 1, "Titre")
	// 同包测试共享全局限流器，先清掉本商品的配额
	middleware.GetLimiter().Reset(middleware.ProductSuggestKey(product.ID))

	_, err := svc.SuggestTitles(ctx, 1, product.ID)
	if err != ErrAINotConfigured {
		t.Errorf("AI 未配置时应返回 ErrAINotConfigured, got %v", err)
	}

	// 上一次调用已消耗配额，立刻重试应被限流
	_, err = svc.SuggestTitles(ctx, 1, product.ID)
	if err != ErrSuggestTooFrequent {
		t.Errorf("冷却期内重试应返回 ErrSuggestTooFrequent, got %v", err)
	}

	middleware.GetLimiter().Reset(middleware.ProductSuggestKey(product.ID))
}

// ==================== 优化状态机 ====================

func TestOptimizationStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from model.OptimizationStatus
		to   model.OptimizationStatus
		want bool
	}{
		{model.OptimizationOriginal, model.OptimizationTesting, true},
		{model.OptimizationOriginal, model.OptimizationOptimized, false},
		{model.OptimizationTesting, model.OptimizationTesting, true},
		{model.OptimizationTesting, model.OptimizationOptimized, true},
		{model.OptimizationTesting, model.OptimizationRolledBack, true},
		{model.OptimizationOptimized, model.OptimizationTesting, true},
		{model.OptimizationOptimized, model.OptimizationRolledBack, true},
		{model.OptimizationRolledBack, model.OptimizationTesting, true},
		{model.OptimizationRolledBack, model.OptimizationOptimized, false},
		{model.OptimizationRolledBack, model.OptimizationRolledBack, false},
	}

	for _, tt := range tests {
		got := tt.from.CanTransition(tt.to)
		if got != tt.want {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
