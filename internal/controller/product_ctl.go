package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gmc_dev_v1_202608/internal/api/dto"
	"gmc_dev_v1_202608/internal/middleware"
	"gmc_dev_v1_202608/internal/service"
)

// ProductController 商品查询
type ProductController struct {
	productService *service.ProductService
}

func NewProductController(s *service.ProductService) *ProductController {
	return &ProductController{productService: s}
}

// List
// @Summary 商品列表
// @Description 分页查询，支持按账号/优化状态过滤、标题关键词搜索与点击量排序
// @Tags Product (商品模块)
// @Produce json
// @Security BearerAuth
// @Param account_id query int false "Merchant 账号 ID"
// @Param status query string false "优化状态" Enums(original, testing, optimized, rolled_back)
// @Param keyword query string false "标题/offer_id 关键词"
// @Param sort_by query string false "排序字段" Enums(clicks_14d, clicks_30d, impressions_30d, updated_at)
// @Param page query int false "页码"
// @Param page_size query int false "每页条数"
// @Success 200 {object} dto.ProductListResp
// @Router /api/products [get]
func (ctrl *ProductController) List(c *gin.Context) {
	var req dto.ProductListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}

	userID := middleware.GetUserID(c)
	resp, err := ctrl.productService.List(c.Request.Context(), userID, &req)
	if err != nil {
		status := service.StatusOf(err)
		c.JSON(status, gin.H{"code": status, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Get
// @Summary 商品详情
// @Tags Product (商品模块)
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品 ID"
// @Success 200 {object} dto.ProductResp
// @Failure 404 {object} map[string]interface{} "商品不存在"
// @Router /api/products/{id} [get]
func (ctrl *ProductController) Get(c *gin.Context) {
	productID := parseID(c, "id")
	if productID == 0 {
		return
	}

	userID := middleware.GetUserID(c)
	product, err := ctrl.productService.Get(c.Request.Context(), userID, productID)
	if err != nil {
		status := service.StatusOf(err)
		c.JSON(status, gin.H{"code": status, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    product,
	})
}

// History
// @Summary 商品标题变更历史
// @Tags Product (商品模块)
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品 ID"
// @Success 200 {array} dto.TitleChangeResp
// @Failure 404 {object} map[string]interface{} "商品不存在"
// @Router /api/products/{id}/history [get]
func (ctrl *ProductController) History(c *gin.Context) {
	productID := parseID(c, "id")
	if productID == 0 {
		return
	}

	userID := middleware.GetUserID(c)
	changes, err := ctrl.productService.History(c.Request.Context(), userID, productID)
	if err != nil {
		status := service.StatusOf(err)
		c.JSON(status, gin.H{"code": status, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    changes,
	})
}

// Stats
// @Summary 账号商品优化状态统计
// @Tags Product (商品模块)
// @Produce json
// @Security BearerAuth
// @Param id path int true "Merchant 账号 ID"
// @Success 200 {object} dto.ProductStatsResp
// @Failure 404 {object} map[string]interface{} "账号不存在"
// @Router /api/accounts/merchant/{id}/products/stats [get]
func (ctrl *ProductController) Stats(c *gin.Context) {
	accountID := parseID(c, "id")
	if accountID == 0 {
		return
	}

	userID := middleware.GetUserID(c)
	stats, err := ctrl.productService.Stats(c.Request.Context(), userID, accountID)
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
