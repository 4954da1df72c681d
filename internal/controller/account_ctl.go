package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gmc_dev_v1_202608/internal/api/dto"
	"gmc_dev_v1_202608/internal/middleware"
	"gmc_dev_v1_202608/internal/service"
)

// AccountController 已连接账号管理
type AccountController struct {
	accountService *service.AccountService
}

func NewAccountController(s *service.AccountService) *AccountController {
	return &AccountController{accountService: s}
}

// ListMerchantAccounts
// @Summary 已连接的 Merchant Center 账号列表
// @Tags Account (账号模块)
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.MerchantAccountResp
// @Router /api/accounts/merchant [get]
func (ctrl *AccountController) ListMerchantAccounts(c *gin.Context) {
	userID := middleware.GetUserID(c)

	accounts, err := ctrl.accountService.ListMerchantAccounts(c.Request.Context(), userID)
	if err != nil {
		status := service.StatusOf(err)
		c.JSON(status, gin.H{"code": status, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    accounts,
	})
}

// ListAdsAccounts
// @Summary 已连接的 Ads 账号列表
// @Tags Account (账号模块)
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.AdsAccountResp
// @Router /api/accounts/ads [get]
func (ctrl *AccountController) ListAdsAccounts(c *gin.Context) {
	userID := middleware.GetUserID(c)

	accounts, err := ctrl.accountService.ListAdsAccounts(c.Request.Context(), userID)
	if err != nil {
		status := service.StatusOf(err)
		c.JSON(status, gin.H{"code": status, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    accounts,
	})
}

// LinkAdsAccount
// @Summary 关联 Ads 账号与 Merchant Center 账号
// @Description merchant_account_id 传 null 时解除关联
// @Tags Account (账号模块)
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Ads 账号 ID"
// @Param body body dto.LinkAdsAccountRequest true "目标 Merchant 账号"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{} "账号不存在"
// @Router /api/accounts/ads/{id}/link [put]
func (ctrl *AccountController) LinkAdsAccount(c *gin.Context) {
	adsAccountID := parseID(c, "id")
	if adsAccountID == 0 {
		return
	}

	var req dto.LinkAdsAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}

	userID := middleware.GetUserID(c)
	if err := ctrl.accountService.LinkAdsAccount(c.Request.Context(), userID, adsAccountID, req.MerchantAccountID); err != nil {
		status := service.StatusOf(err)
		c.JSON(status, gin.H{"code": status, "message": err.Error()})
		return
	}

	message := "关联成功"
	if req.MerchantAccountID == nil {
		message = "已解除关联"
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": message,
	})
}

// DisconnectMerchantAccount
// @Summary 断开 Merchant Center 账号
// @Description 置 is_active=false 并尽力撤销 Google 侧授权，历史数据保留
// @Tags Account (账号模块)
// @Produce json
// @Security BearerAuth
// @Param id path int true "账号 ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{} "账号不存在"
// @Router /api/accounts/merchant/{id} [delete]
func (ctrl *AccountController) DisconnectMerchantAccount(c *gin.Context) {
	accountID := parseID(c, "id")
	if accountID == 0 {
		return
	}

	userID := middleware.GetUserID(c)
	if err := ctrl.accountService.DisconnectMerchantAccount(c.Request.Context(), userID, accountID); err != nil {
		status := service.StatusOf(err)
		c.JSON(status, gin.H{"code": status, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "账号已断开",
	})
}

// DisconnectAdsAccount
// @Summary 断开 Ads 账号
// @Tags Account (账号模块)
// @Produce json
// @Security BearerAuth
// @Param id path int true "账号 ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{} "账号不存在"
// @Router /api/accounts/ads/{id} [delete]
func (ctrl *AccountController) DisconnectAdsAccount(c *gin.Context) {
	accountID := parseID(c, "id")
	if accountID == 0 {
		return
	}

	userID := middleware.GetUserID(c)
	if err := ctrl.accountService.DisconnectAdsAccount(c.Request.Context(), userID, accountID); err != nil {
		status := service.StatusOf(err)
		c.JSON(status, gin.H{"code": status, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "账号已断开",
	})
}
