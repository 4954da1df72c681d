package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gmc_dev_v1_202608/internal/api/dto"
	"gmc_dev_v1_202608/internal/middleware"
	"gmc_dev_v1_202608/internal/service"
)

// OptimizeController 标题优化
type OptimizeController struct {
	optimizeService *service.OptimizeService
}

func NewOptimizeController(s *service.OptimizeService) *OptimizeController {
	return &OptimizeController{optimizeService: s}
}

// Suggest
// @Summary 生成标题建议
// @Description 调用 AI 为商品生成 3 条优化标题，每次调用记审计日志
// @Tags Optimize (优化模块)
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.SuggestTitlesRequest true "商品 ID"
// @Success 200 {object} dto.SuggestTitlesResponse
// @Failure 404 {object} map[string]interface{} "商品不存在"
// @Failure 412 {object} map[string]interface{} "AI 未配置"
// @Router /api/optimize/suggest [post]
func (ctrl *OptimizeController) Suggest(c *gin.Context) {
	var req dto.SuggestTitlesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}

	userID := middleware.GetUserID(c)
	resp, err := ctrl.optimizeService.SuggestTitles(c.Request.Context(), userID, req.ProductID)
	if err != nil {
		status := service.StatusOf(err)
		c.JSON(status, gin.H{"code": status, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    resp,
	})
}

// Apply
// @Summary 应用新标题
// @Description 推送新标题到 Google 目录，成功后创建变更记录并进入 15 天观察期
// @Tags Optimize (优化模块)
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.ApplyTitleRequest true "新标题"
// @Success 200 {object} dto.ApplyTitleResponse
// @Failure 400 {object} map[string]interface{} "标题不合法/无变化"
// @Failure 404 {object} map[string]interface{} "商品不存在"
// @Router /api/optimize/apply [post]
func (ctrl *OptimizeController) Apply(c *gin.Context) {
	var req dto.ApplyTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}

	userID := middleware.GetUserID(c)
	resp, err := ctrl.optimizeService.ApplyTitle(c.Request.Context(), userID, &req)
	if err != nil {
		status := service.StatusOf(err)
		c.JSON(status, gin.H{"code": status, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "标题已应用",
		"data":    resp,
	})
}
