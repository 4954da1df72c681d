package task

import (
	"context"
	"log"
	"time"

	"gmc_dev_v1_202608/internal/service"

	"github.com/robfig/cron/v3"
)

// ==================== TokenRefreshTask Token 保活任务 ====================

// TokenRefreshTask 周期性刷新即将过期的 Google OAuth Token。
// Google access_token 有效期约 1 小时，每 40 分钟提前续期一次，
// 避免同步和测量任务在执行中途撞上过期 Token。
type TokenRefreshTask struct {
	tokenService *service.TokenService
	cron         *cron.Cron

	// 提前刷新窗口：距过期小于该时长的 Token 都会被续期
	refreshWindow time.Duration
}

// NewTokenRefreshTask 创建 Token 保活任务
func NewTokenRefreshTask(tokenService *service.TokenService) *TokenRefreshTask {
	return &TokenRefreshTask{
		tokenService:  tokenService,
		cron:          cron.New(cron.WithSeconds()), // 支持秒级控制
		refreshWindow: 15 * time.Minute,
	}
}

// Start 启动定时任务
func (t *TokenRefreshTask) Start() {
	// 首次执行
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		log.Println("[Task] 服务启动，正在执行首次 Token 检查...")
		t.refreshJob(ctx)
	}()

	// 定时策略
	_, err := t.cron.AddFunc("0 0/40 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		t.refreshJob(ctx)
	})

	if err != nil {
		log.Fatalf("无法启动 Token 定时任务: %v", err)
	}

	t.cron.Start()
	log.Println("Token 保活任务已启动 (每40分钟检查一次)")
}

// Stop 停止任务
func (t *TokenRefreshTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	log.Println("[Task] Token 保活任务已停止")
}

// refreshJob 刷新即将过期的账户 Token
func (t *TokenRefreshTask) refreshJob(ctx context.Context) {
	refreshed, failed := t.tokenService.RefreshExpiring(ctx, t.refreshWindow)
	if refreshed == 0 && failed == 0 {
		return
	}
	log.Printf("[Cron] 本轮 Token 刷新完成: 成功 %d, 失败 %d", refreshed, failed)
}
