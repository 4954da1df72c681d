package task

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"gmc_dev_v1_202608/internal/service"
)

// ==================== ImpactMeasureTask 效果测量任务 ====================

// ImpactMeasureTask 标题变更效果测量定时任务
// 每日凌晨 4 点执行，排在目录同步之后，保证测量用的是当天刷新过的指标。
// 并发保护在 Service 层（单飞），任务层不做额外限流。
type ImpactMeasureTask struct {
	impactService *service.ImpactService
	cron          *cron.Cron
}

// NewImpactMeasureTask 创建效果测量任务
func NewImpactMeasureTask(impactService *service.ImpactService) *ImpactMeasureTask {
	return &ImpactMeasureTask{
		impactService: impactService,
		cron:          cron.New(cron.WithSeconds()),
	}
}

// Start 启动定时任务
func (t *ImpactMeasureTask) Start() {
	// 每日凌晨 4 点
	_, _ = t.cron.AddFunc("0 0 4 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Hour)
		defer cancel()
		t.measure(ctx)
	})

	t.cron.Start()
	log.Println("[ImpactMeasureTask] 已启动 (每日凌晨4点测量)")
}

// Stop 停止任务
func (t *ImpactMeasureTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	log.Println("[ImpactMeasureTask] 已停止")
}

func (t *ImpactMeasureTask) measure(ctx context.Context) {
	result, err := t.impactService.MeasurePending(ctx)
	if err != nil {
		if err == service.ErrMeasureInProgress {
			log.Println("[ImpactMeasureTask] 上一轮测量尚未结束，本轮跳过")
			return
		}
		log.Printf("[ImpactMeasureTask] 测量失败: %v", err)
		return
	}
	log.Printf("[ImpactMeasureTask] 测量完成: 待测 %d, 成功 %d, 失败 %d",
		result.Checked, result.Measured, result.Failed)
}

// MeasureNow 立即触发一次测量
func (t *ImpactMeasureTask) MeasureNow() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Hour)
		defer cancel()
		t.measure(ctx)
	}()
}
