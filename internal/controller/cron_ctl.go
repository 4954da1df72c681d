package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"gmc_dev_v1_202608/internal/service"
)

// CronController 外部调度器入口（共享密钥鉴权，不走 JWT）
type CronController struct {
	impactService *service.ImpactService
	cronSecret    string
}

func NewCronController(impactService *service.ImpactService, cronSecret string) *CronController {
	return &CronController{
		impactService: impactService,
		cronSecret:    cronSecret,
	}
}

// checkSecret 校验 Authorization: Bearer $CRON_SECRET
// 未配置密钥时拒绝所有请求，避免裸奔
func (ctrl *CronController) checkSecret(c *gin.Context) bool {
	if ctrl.cronSecret == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "CRON_SECRET 未配置"})
		return false
	}
	authHeader := c.GetHeader("Authorization")
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" || token != ctrl.cronSecret {
		c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "未授权"})
		return false
	}
	return true
}

// MeasureImpact
// @Summary 触发一轮影响测量
// @Description 测量所有满 15 天观察期的标题变更，供外部调度器调用
// @Tags Cron (调度模块)
// @Produce json
// @Param Authorization header string true "Bearer CRON_SECRET"
// @Success 200 {object} dto.MeasureRunResp
// @Failure 401 {object} map[string]interface{} "密钥错误"
// @Failure 409 {object} map[string]interface{} "已有测量在执行"
// @Router /api/cron/measure-impact [post]
func (ctrl *CronController) MeasureImpact(c *gin.Context) {
	if !ctrl.checkSecret(c) {
		return
	}

	result, err := ctrl.impactService.MeasurePending(c.Request.Context())
	if err != nil {
		status := service.StatusOf(err)
		c.JSON(status, gin.H{"code": status, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "测量完成",
		"data":    result,
	})
}
