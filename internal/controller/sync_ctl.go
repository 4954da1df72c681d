package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gmc_dev_v1_202608/internal/middleware"
	"gmc_dev_v1_202608/internal/service"
)

// SyncController 手动同步触发
type SyncController struct {
	syncService *service.SyncService
}

func NewSyncController(s *service.SyncService) *SyncController {
	return &SyncController{syncService: s}
}

// SyncMerchantAccount
// @Summary 同步 Merchant Center 账号
// @Description 全量拉取商品目录与四个窗口的免费流量指标
// @Tags Sync (同步模块)
// @Produce json
// @Security BearerAuth
// @Param id path int true "账号 ID"
// @Success 200 {object} dto.SyncResultResp
// @Failure 429 {object} map[string]interface{} "限流中"
// @Router /api/accounts/merchant/{id}/sync [post]
func (ctrl *SyncController) SyncMerchantAccount(c *gin.Context) {
	accountID := parseID(c, "id")
	if accountID == 0 {
		return
	}

	userID := middleware.GetUserID(c)
	result, err := ctrl.syncService.SyncMerchantAccount(c.Request.Context(), userID, accountID)
	if err != nil {
		status := service.StatusOf(err)
		c.JSON(status, gin.H{"code": status, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "同步完成",
		"data":    result,
	})
}

// SyncAdsAccount
// @Summary 同步 Ads 账号付费指标
// @Description 按 offer_id 回写到关联 Merchant 账号的商品上
// @Tags Sync (同步模块)
// @Produce json
// @Security BearerAuth
// @Param id path int true "账号 ID"
// @Success 200 {object} dto.SyncResultResp
// @Failure 409 {object} map[string]interface{} "未关联 Merchant 账号"
// @Failure 429 {object} map[string]interface{} "限流中"
// @Router /api/accounts/ads/{id}/sync [post]
func (ctrl *SyncController) SyncAdsAccount(c *gin.Context) {
	accountID := parseID(c, "id")
	if accountID == 0 {
		return
	}

	userID := middleware.GetUserID(c)
	result, err := ctrl.syncService.SyncAdsAccount(c.Request.Context(), userID, accountID)
	if err != nil {
		status := service.StatusOf(err)
		c.JSON(status, gin.H{"code": status, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "同步完成",
		"data":    result,
	})
}
