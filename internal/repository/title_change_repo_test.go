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

func setupChangeTestDB(t *testing.T) *gorm.DB {
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
		&model.TitleChange{},
	)
	if err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}

	return db
}

// seedChangeFixture 造一条 用户->账号->商品->变更 的完整链路
func seedChangeFixture(t *testing.T, db *gorm.DB, userID int64, active bool, changedAt time.Time) *model.TitleChange {
	t.Helper()

	account := &model.MerchantAccount{UserID: userID, MerchantID: "123", IsActive: active}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("创建账号失败: %v", err)
	}

	product := &model.Product{
		MerchantAccountID: account.ID,
		GoogleProductID:   "g-" + time.Now().Format("150405.000000000"),
		OfferID:           "sku-1",
		TitleOriginal:     "old",
		TitleCurrent:      "new",
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("创建商品失败: %v", err)
	}

	change := &model.TitleChange{
		ProductID:            product.ID,
		OldTitle:             "old",
		NewTitle:             "new",
		ChangeSource:         model.ChangeSourceAI,
		ChangedAt:            changedAt,
		ChangedBy:            userID,
		FreeClicksBefore14d:  10,
		TotalClicksBefore14d: 12,
		ImpactStatus:         model.ImpactPending,
	}
	if err := db.Create(change).Error; err != nil {
		t.Fatalf("创建变更失败: %v", err)
	}
	return change
}

func TestTitleChangeModel_SnapshotColumns(t *testing.T) {
	db := setupChangeTestDB(t)
	migrator := db.Migrator()

	// UpdateMeasurement 用原生列名写入，模型映射必须一致
	columns := []string{
		"free_clicks_before_14d", "free_impressions_before_14d",
		"ads_clicks_before_14d", "ads_impressions_before_14d",
		"total_clicks_before_14d",
		"free_clicks_after_14d", "free_impressions_after_14d",
		"total_clicks_after_14d",
	}
	for _, col := range columns {
		if !migrator.HasColumn(&model.TitleChange{}, col) {
			t.Errorf("title_changes 表缺少列 %s", col)
		}
	}
}

func TestTitleChangeRepo_FindMeasurable(t *testing.T) {
	db := setupChangeTestDB(t)
	repo := NewTitleChangeRepository(db)
	ctx := context.Background()
	now := time.Now()

	// 满观察期、活跃账号：应命中
	due := seedChangeFixture(t, db, 1, true, now.AddDate(0, 0, -16))
	// 未满观察期：不命中
	seedChangeFixture(t, db, 1, true, now.AddDate(0, 0, -3))
	// 满期但账号已停用：不命中
	seedChangeFixture(t, db, 2, false, now.AddDate(0, 0, -20))

	cutoff := now.AddDate(0, 0, -15)
	changes, err := repo.FindMeasurable(ctx, cutoff, 100)
	if err != nil {
		t.Fatalf("FindMeasurable() error = %v", err)
	}

	if len(changes) != 1 {
		t.Fatalf("可测量变更数 = %d, want 1", len(changes))
	}
	if changes[0].ID != due.ID {
		t.Errorf("命中变更 ID = %d, want %d", changes[0].ID, due.ID)
	}
	if changes[0].Product == nil {
		t.Error("Product 关联应该被预加载")
	}
}

func TestTitleChangeRepo_FindMeasurable_SkipsMeasured(t *testing.T) {
	db := setupChangeTestDB(t)
	repo := NewTitleChangeRepository(db)
	ctx := context.Background()
	now := time.Now()

	change := seedChangeFixture(t, db, 1, true, now.AddDate(0, 0, -20))

	err := repo.UpdateMeasurement(ctx, change.ID, Measurement{
		FreeClicksAfter14d:          15,
		TotalClicksAfter14d:         15,
		FreeClicksVariationPercent:  50,
		TotalClicksVariationPercent: 25,
		ImpactStatus:                model.ImpactPositive,
		MeasuredAt:                  now,
	})
	if err != nil {
		t.Fatalf("UpdateMeasurement() error = %v", err)
	}

	changes, err := repo.FindMeasurable(ctx, now, 100)
	if err != nil {
		t.Fatalf("FindMeasurable() error = %v", err)
	}
	if len(changes) != 0 {
		t.Errorf("已测量的变更不应再被选中, got %d", len(changes))
	}
}

func TestTitleChangeRepo_UpdateMeasurement(t *testing.T) {
	db := setupChangeTestDB(t)
	repo := NewTitleChangeRepository(db)
	ctx := context.Background()
	now := time.Now()

	change := seedChangeFixture(t, db, 1, true, now.AddDate(0, 0, -16))

	err := repo.UpdateMeasurement(ctx, change.ID, Measurement{
		FreeClicksAfter14d:          5,
		FreeImpressionsAfter14d:     200,
		TotalClicksAfter14d:         5,
		FreeClicksVariationPercent:  -50,
		TotalClicksVariationPercent: -58.33,
		ImpactStatus:                model.ImpactNegative,
		MeasuredAt:                  now,
	})
	if err != nil {
		t.Fatalf("UpdateMeasurement() error = %v", err)
	}

	got, err := repo.GetByID(ctx, change.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.ImpactStatus != model.ImpactNegative {
		t.Errorf("ImpactStatus = %s, want negative", got.ImpactStatus)
	}
	if got.MeasuredAt == nil {
		t.Fatal("MeasuredAt 应该被设置")
	}
	if got.FreeClicksAfter14d == nil || *got.FreeClicksAfter14d != 5 {
		t.Error("FreeClicksAfter14d 应为 5")
	}
	if got.TotalClicksVariationPercent == nil || *got.TotalClicksVariationPercent != -58.33 {
		t.Error("TotalClicksVariationPercent 应为 -58.33")
	}
	if got.IsPending() {
		t.Error("测量后不应再是 pending")
	}
}

func TestTitleChangeRepo_MarkRolledBack_OnlyOnce(t *testing.T) {
	db := setupChangeTestDB(t)
	repo := NewTitleChangeRepository(db)
	ctx := context.Background()

	change := seedChangeFixture(t, db, 1, true, time.Now().AddDate(0, 0, -16))

	marked, err := repo.MarkRolledBack(ctx, change.ID, "Manual rollback")
	if err != nil {
		t.Fatalf("MarkRolledBack() error = %v", err)
	}
	if !marked {
		t.Fatal("首次回滚应该成功")
	}

	// 条件更新保证第二次标记不会生效
	marked, err = repo.MarkRolledBack(ctx, change.ID, "again")
	if err != nil {
		t.Fatalf("MarkRolledBack() error = %v", err)
	}
	if marked {
		t.Error("二次回滚不应生效")
	}

	got, _ := repo.GetByID(ctx, change.ID)
	if !got.IsRolledBack() {
		t.Error("变更应处于已回滚状态")
	}
	if got.RollbackReason != "Manual rollback" {
		t.Errorf("RollbackReason = %q, 不应被二次标记覆盖", got.RollbackReason)
	}
}

func TestTitleChangeRepo_GetByUserAndID_Ownership(t *testing.T) {
	db := setupChangeTestDB(t)
	repo := NewTitleChangeRepository(db)
	ctx := context.Background()

	change := seedChangeFixture(t, db, 1, true, time.Now())

	got, err := repo.GetByUserAndID(ctx, 1, change.ID)
	if err != nil {
		t.Fatalf("GetByUserAndID() error = %v", err)
	}
	if got == nil {
		t.Fatal("本人应能查到变更")
	}

	// 其他用户查不到
	got, err = repo.GetByUserAndID(ctx, 99, change.ID)
	if err != nil {
		t.Fatalf("GetByUserAndID() error = %v", err)
	}
	if got != nil {
		t.Error("他人不应查到该变更")
	}
}

func TestTitleChangeRepo_CountByImpactStatus(t *testing.T) {
	db := setupChangeTestDB(t)
	repo := NewTitleChangeRepository(db)
	ctx := context.Background()
	now := time.Now()

	seedChangeFixture(t, db, 1, true, now)
	second := seedChangeFixture(t, db, 1, true, now)
	// 他人的变更不计入
	seedChangeFixture(t, db, 2, true, now)

	if err := repo.UpdateMeasurement(ctx, second.ID, Measurement{
		ImpactStatus: model.ImpactPositive,
		MeasuredAt:   now,
	}); err != nil {
		t.Fatalf("UpdateMeasurement() error = %v", err)
	}

	stats, err := repo.CountByImpactStatus(ctx, 1)
	if err != nil {
		t.Fatalf("CountByImpactStatus() error = %v", err)
	}
	if stats[model.ImpactPending] != 1 {
		t.Errorf("pending = %d, want 1", stats[model.ImpactPending])
	}
	if stats[model.ImpactPositive] != 1 {
		t.Errorf("positive = %d, want 1", stats[model.ImpactPositive])
	}

	var total int64
	for _, n := range stats {
		total += n
	}
	if total != 2 {
		t.Errorf("用户变更总数 = %d, want 2 (他人变更不计入)", total)
	}
}

func TestTitleChangeRepo_List_PendingFilter(t *testing.T) {
	db := setupChangeTestDB(t)
	repo := NewTitleChangeRepository(db)
	ctx := context.Background()
	now := time.Now()

	seedChangeFixture(t, db, 1, true, now)
	measured := seedChangeFixture(t, db, 1, true, now)
	if err := repo.UpdateMeasurement(ctx, measured.ID, Measurement{
		ImpactStatus: model.ImpactNeutral,
		MeasuredAt:   now,
	}); err != nil {
		t.Fatalf("UpdateMeasurement() error = %v", err)
	}

	changes, total, err := repo.List(ctx, TitleChangeFilter{UserID: 1, OnlyPending: true})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 1 || len(changes) != 1 {
		t.Fatalf("List() 返回 %d/%d 条, want 1/1", len(changes), total)
	}
	if changes[0].MeasuredAt != nil {
		t.Error("OnlyPending 不应返回已测量的变更")
	}
}
