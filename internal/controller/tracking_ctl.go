package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gmc_dev_v1_202608/internal/api/dto"
	"gmc_dev_v1_202608/internal/middleware"
	"gmc_dev_v1_202608/internal/service"
)

// TrackingController 标题变更追踪与回滚
type TrackingController struct {
	trackingService *service.TrackingService
}

func NewTrackingController(s *service.TrackingService) *TrackingController {
	return &TrackingController{trackingService: s}
}

// List
// @Summary 标题变更列表
// @Tags Tracking (追踪模块)
// @Produce json
// @Security BearerAuth
// @Param account_id query int false "Merchant 账号 ID"
// @Param product_id query int false "商品 ID"
// @Param impact_status query string false "影响状态" Enums(pending, positive, neutral, negative)
// @Param only_pending query bool false "仅看未测量"
// @Param page query int false "页码"
// @Param page_size query int false "每页条数"
// @Success 200 {object} dto.TitleChangeListResp
// @Router /api/tracking [get]
func (ctrl *TrackingController) List(c *gin.Context) {
	var req dto.TitleChangeListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}

	userID := middleware.GetUserID(c)
	resp, err := ctrl.trackingService.ListChanges(c.Request.Context(), userID, &req)
	if err != nil {
		status := service.StatusOf(err)
		c.JSON(status, gin.H{"code": status, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Get
// @Summary 变更详情
// @Tags Tracking (追踪模块)
// @Produce json
// @Security BearerAuth
// @Param id path int true "变更 ID"
// @Success 200 {object} dto.TitleChangeResp
// @Failure 404 {object} map[string]interface{} "变更不存在"
// @Router /api/tracking/{id} [get]
func (ctrl *TrackingController) Get(c *gin.Context) {
	changeID := parseID(c, "id")
	if changeID == 0 {
		return
	}

	userID := middleware.GetUserID(c)
	change, err := ctrl.trackingService.GetChange(c.Request.Context(), userID, changeID)
	if err != nil {
		status := service.StatusOf(err)
		c.JSON(status, gin.H{"code": status, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    change,
	})
}

// Stats
// @Summary 影响状态统计
// @Tags Tracking (追踪模块)
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.TrackingStatsResp
// @Router /api/tracking/stats [get]
func (ctrl *TrackingController) Stats(c *gin.Context) {
	userID := middleware.GetUserID(c)

	stats, err := ctrl.trackingService.Stats(c.Request.Context(), userID)
	if err != nil {
		status := service.StatusOf(err)
		c.JSON(status, gin.H{"code": status, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    stats,
	})
}

// Rollback
// @Summary 回滚标题变更
// @Description 恢复 Google 目录上的旧标题，每条变更只能回滚一次
// @Tags Tracking (追踪模块)
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "变更 ID"
// @Param body body dto.RollbackRequest false "回滚原因"
// @Success 200 {object} dto.RollbackResponse
// @Failure 404 {object} map[string]interface{} "变更不存在"
// @Failure 409 {object} map[string]interface{} "已回滚过"
// @Router /api/tracking/{id}/rollback [post]
func (ctrl *TrackingController) Rollback(c *gin.Context) {
	changeID := parseID(c, "id")
	if changeID == 0 {
		return
	}

	var req dto.RollbackRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}

	userID := middleware.GetUserID(c)
	resp, err := ctrl.trackingService.Rollback(c.Request.Context(), userID, changeID, req.Reason)
	if err != nil {
		status := service.StatusOf(err)
		c.JSON(status, gin.H{"code": status, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "回滚成功",
		"data":    resp,
	})
}
