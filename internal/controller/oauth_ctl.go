package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gmc_dev_v1_202608/internal/api/dto"
	"gmc_dev_v1_202608/internal/middleware"
	"gmc_dev_v1_202608/internal/service"
)

// OAuthController Google 账号连接流程
type OAuthController struct {
	oauthService *service.OAuthService
}

func NewOAuthController(s *service.OAuthService) *OAuthController {
	return &OAuthController{oauthService: s}
}

// Connect
// @Summary 生成 Google 授权链接
// @Description 为当前用户生成 Merchant Center 或 Ads 的 OAuth 授权跳转链接
// @Tags OAuth (授权模块)
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.ConnectRequest true "账号类型 merchant/ads"
// @Success 200 {object} dto.ConnectResponse
// @Failure 412 {object} map[string]interface{} "未配置凭据"
// @Router /api/oauth/google/connect [post]
func (ctrl *OAuthController) Connect(c *gin.Context) {
	var req dto.ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}

	userID := middleware.GetUserID(c)
	resp, err := ctrl.oauthService.StartConnect(c.Request.Context(), userID, req.AccountType)
	if err != nil {
		status := service.StatusOf(err)
		c.JSON(status, gin.H{"code": status, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "获取成功",
		"data":    resp,
	})
}

// Callback
// @Summary Google 授权回调
// @Description 接收 Google 返回的 code 和 state，换取 Token 并入库已授权的账号
// @Tags OAuth (授权模块)
// @Produce json
// @Param code query string true "授权码"
// @Param state query string true "安全校验码"
// @Success 200 {object} map[string]interface{} "授权成功信息"
// @Failure 400 {object} map[string]interface{} "拒绝授权/state 无效"
// @Router /api/oauth/google/callback [get]
func (ctrl *OAuthController) Callback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	errParam := c.Query("error")

	if errParam != "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "用户拒绝了授权", "google_msg": errParam})
		return
	}
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "缺少必要参数 code 或 state"})
		return
	}

	result, err := ctrl.oauthService.HandleCallback(c.Request.Context(), code, state)
	if err != nil {
		status := service.StatusOf(err)
		c.JSON(status, gin.H{"code": status, "message": "授权失败: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "账号连接成功",
		"data":    result,
	})
}
