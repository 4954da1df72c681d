package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gmc_dev_v1_202608/internal/api/dto"
	"gmc_dev_v1_202608/internal/middleware"
	"gmc_dev_v1_202608/internal/service"
)

// CredentialController Google OAuth 客户端凭据管理
type CredentialController struct {
	credService *service.CredentialService
}

func NewCredentialController(s *service.CredentialService) *CredentialController {
	return &CredentialController{credService: s}
}

// Save
// @Summary 保存 Google OAuth 客户端凭据
// @Description Client ID/Secret 校验格式后加密入库，重复保存覆盖旧值
// @Tags Credential (凭据模块)
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.SaveCredentialRequest true "Client ID 与 Secret"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{} "格式错误"
// @Router /api/credentials [post]
func (ctrl *CredentialController) Save(c *gin.Context) {
	var req dto.SaveCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}

	userID := middleware.GetUserID(c)
	if err := ctrl.credService.Save(c.Request.Context(), userID, &req); err != nil {
		status := service.StatusOf(err)
		c.JSON(status, gin.H{"code": status, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "凭据已保存",
	})
}

// Get
// @Summary 查询凭据（脱敏）
// @Tags Credential (凭据模块)
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.CredentialInfo
// @Router /api/credentials [get]
func (ctrl *CredentialController) Get(c *gin.Context) {
	userID := middleware.GetUserID(c)

	info, err := ctrl.credService.Get(c.Request.Context(), userID)
	if err != nil {
		status := service.StatusOf(err)
		c.JSON(status, gin.H{"code": status, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    info,
	})
}

// Delete
// @Summary 删除凭据
// @Tags Credential (凭据模块)
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/credentials [delete]
func (ctrl *CredentialController) Delete(c *gin.Context) {
	userID := middleware.GetUserID(c)

	if err := ctrl.credService.Delete(c.Request.Context(), userID); err != nil {
		status := service.StatusOf(err)
		c.JSON(status, gin.H{"code": status, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "凭据已删除",
	})
}
