package controller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"gmc_dev_v1_202608/internal/middleware"
	"gmc_dev_v1_202608/internal/service"
)

// AIController AI 用量统计
type AIController struct {
	aiService *service.AIService
}

func NewAIController(s *service.AIService) *AIController {
	return &AIController{aiService: s}
}

// Usage
// @Summary AI 用量汇总
// @Description 统计当前用户时间段内的调用次数、token 消耗与成功率
// @Tags AI (用量模块)
// @Produce json
// @Security BearerAuth
// @Param days query int false "统计最近 N 天，默认 30"
// @Success 200 {object} repository.AIUsageStats
// @Router /api/ai/usage [get]
func (ctrl *AIController) Usage(c *gin.Context) {
	userID := middleware.GetUserID(c)

	days := 30
	if daysStr := c.Query("days"); daysStr != "" {
		if n, err := strconv.Atoi(daysStr); err == nil && n > 0 && n <= 365 {
			days = n
		}
	}
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	stats, err := ctrl.aiService.Usage(c.Request.Context(), userID, start, end)
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

// DailyUsage
// @Summary AI 每日用量
// @Tags AI (用量模块)
// @Produce json
// @Security BearerAuth
// @Param days query int false "统计最近 N 天，默认 30"
// @Success 200 {array} repository.DailyUsageStats
// @Router /api/ai/usage/daily [get]
func (ctrl *AIController) DailyUsage(c *gin.Context) {
	userID := middleware.GetUserID(c)

	days := 30
	if daysStr := c.Query("days"); daysStr != "" {
		if n, err := strconv.Atoi(daysStr); err == nil && n > 0 {
			days = n
		}
	}

	stats, err := ctrl.aiService.DailyUsage(c.Request.Context(), userID, days)
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
