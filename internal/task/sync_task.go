package task

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"gmc_dev_v1_202608/internal/service"
)

// ==================== CatalogSyncTask 目录同步任务 ====================

// CatalogSyncTask 全量目录与指标同步定时任务
// 同步策略：
//   - 每日凌晨 2 点全量同步所有活跃账户（Merchant 目录 + Ads 指标）
//   - Google 报表数据按天聚合，同步过密没有增量收益，只会烧配额
type CatalogSyncTask struct {
	syncService *service.SyncService
	cron        *cron.Cron
}

// NewCatalogSyncTask 创建目录同步任务
func NewCatalogSyncTask(syncService *service.SyncService) *CatalogSyncTask {
	return &CatalogSyncTask{
		syncService: syncService,
		cron:        cron.New(cron.WithSeconds()),
	}
}

// Start 启动定时任务
func (t *CatalogSyncTask) Start() {
	// 全量同步：每日凌晨 2 点
	_, _ = t.cron.AddFunc("0 0 2 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
		defer cancel()
		t.syncAll(ctx)
	})

	t.cron.Start()
	log.Println("[CatalogSyncTask] 已启动 (每日凌晨2点全量同步)")
}

// Stop 停止任务
func (t *CatalogSyncTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	log.Println("[CatalogSyncTask] 已停止")
}

func (t *CatalogSyncTask) syncAll(ctx context.Context) {
	log.Println("[CatalogSyncTask] 开始每日全量同步...")
	succeeded, failed := t.syncService.SyncAllActive(ctx)
	log.Printf("[CatalogSyncTask] 全量同步完成: 成功 %d, 失败 %d", succeeded, failed)
}

// SyncAllNow 立即触发一次全量同步
func (t *CatalogSyncTask) SyncAllNow() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
		defer cancel()
		t.syncAll(ctx)
	}()
}
