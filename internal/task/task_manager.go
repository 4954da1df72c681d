package task

import (
	"log"

	"gmc_dev_v1_202608/internal/service"
)

// ==================== TaskManager 定时任务管理器 ====================

// TaskManager 统一管理后台定时任务
// 管理范围：Token 保活、目录同步、效果测量
type TaskManager struct {
	tokenTask  *TokenRefreshTask
	syncTask   *CatalogSyncTask
	impactTask *ImpactMeasureTask
}

// TaskManagerDeps 任务管理器依赖
type TaskManagerDeps struct {
	TokenService  *service.TokenService
	SyncService   *service.SyncService
	ImpactService *service.ImpactService
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	TokenEnabled  bool
	SyncEnabled   bool
	ImpactEnabled bool
}

// DefaultConfig 默认配置
func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		TokenEnabled:  true,
		SyncEnabled:   true,
		ImpactEnabled: true,
	}
}

// NewTaskManager 创建任务管理器
func NewTaskManager(deps *TaskManagerDeps, cfg *TaskManagerConfig) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	tm := &TaskManager{}

	// Token 保活任务
	if cfg.TokenEnabled && deps.TokenService != nil {
		tm.tokenTask = NewTokenRefreshTask(deps.TokenService)
	}

	// 目录同步任务
	if cfg.SyncEnabled && deps.SyncService != nil {
		tm.syncTask = NewCatalogSyncTask(deps.SyncService)
	}

	// 效果测量任务
	if cfg.ImpactEnabled && deps.ImpactService != nil {
		tm.impactTask = NewImpactMeasureTask(deps.ImpactService)
	}

	return tm
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务
func (tm *TaskManager) Start() {
	log.Println("[TaskManager] 正在启动后台定时任务...")

	if tm.tokenTask != nil {
		tm.tokenTask.Start()
	}
	if tm.syncTask != nil {
		tm.syncTask.Start()
	}
	if tm.impactTask != nil {
		tm.impactTask.Start()
	}

	log.Println("[TaskManager] 后台定时任务已全部启动")
}

// Stop 停止所有任务
func (tm *TaskManager) Stop() {
	log.Println("[TaskManager] 正在停止后台定时任务...")

	if tm.tokenTask != nil {
		tm.tokenTask.Stop()
	}
	if tm.syncTask != nil {
		tm.syncTask.Stop()
	}
	if tm.impactTask != nil {
		tm.impactTask.Stop()
	}

	log.Println("[TaskManager] 后台定时任务已全部停止")
}

// ==================== 手动触发接口 ====================

// TriggerFullSync 触发一次全量同步
func (tm *TaskManager) TriggerFullSync() error {
	if tm.syncTask == nil {
		return ErrTaskDisabled
	}
	tm.syncTask.SyncAllNow()
	return nil
}

// TriggerMeasure 触发一次效果测量
func (tm *TaskManager) TriggerMeasure() error {
	if tm.impactTask == nil {
		return ErrTaskDisabled
	}
	tm.impactTask.MeasureNow()
	return nil
}

// ==================== 状态查询 ====================

// Status 获取任务状态
func (tm *TaskManager) Status() map[string]bool {
	return map[string]bool{
		"token":  tm.tokenTask != nil,
		"sync":   tm.syncTask != nil,
		"impact": tm.impactTask != nil,
	}
}

// ==================== 错误定义 ====================

type TaskError string

func (e TaskError) Error() string { return string(e) }

const (
	ErrTaskDisabled TaskError = "task is disabled"
)
