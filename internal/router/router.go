package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"gmc_dev_v1_202608/internal/controller"
	"gmc_dev_v1_202608/internal/middleware"

	_ "gmc_dev_v1_202608/docs"
)

// Controllers 路由依赖的全部控制器
type Controllers struct {
	Auth       *controller.AuthController
	Credential *controller.CredentialController
	OAuth      *controller.OAuthController
	Account    *controller.AccountController
	Sync       *controller.SyncController
	Product    *controller.ProductController
	Optimize   *controller.OptimizeController
	Tracking   *controller.TrackingController
	AI         *controller.AIController
	Cron       *controller.CronController
}

// SetupRouter 创建 gin 引擎并注册路由
func SetupRouter(ctrls *Controllers) *gin.Engine {
	r := gin.Default()
	InitRoutes(r, ctrls)
	return r
}

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine, ctrls *Controllers) {
	// 1. CORS（前端独立部署）
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}))

	// 2. Swagger 文档路由
	// 访问 http://localhost:8080/swagger/index.html 即可查看
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 3. API 路由组
	api := r.Group("/api")
	{
		// auth 认证组（无需登录）
		auth := api.Group("/auth")
		{
			auth.POST("/register", ctrls.Auth.Register)
			auth.POST("/login", ctrls.Auth.Login)
			auth.POST("/refresh", ctrls.Auth.RefreshToken)
		}

		// Google 授权回调（Google 重定向过来，无 JWT）
		// state 在缓存中绑定了发起授权的用户
		api.GET("/oauth/google/callback", ctrls.OAuth.Callback)

		// cron 调度入口（共享密钥鉴权）
		api.POST("/cron/measure-impact", ctrls.Cron.MeasureImpact)

		// 以下全部需要登录
		authed := api.Group("")
		authed.Use(middleware.JWTAuth(), middleware.AuditContext())
		{
			// 用户
			authed.GET("/auth/profile", ctrls.Auth.Profile)
			authed.PUT("/auth/password", ctrls.Auth.ChangePassword)

			// OAuth 客户端凭据
			credentials := authed.Group("/credentials")
			{
				credentials.GET("", ctrls.Credential.Get)
				credentials.POST("", ctrls.Credential.Save)
				credentials.DELETE("", ctrls.Credential.Delete)
			}

			// 发起 Google 账号连接
			authed.POST("/oauth/google/connect", ctrls.OAuth.Connect)

			// 账号管理
			accounts := authed.Group("/accounts")
			{
				accounts.GET("/merchant", ctrls.Account.ListMerchantAccounts)
				accounts.DELETE("/merchant/:id", ctrls.Account.DisconnectMerchantAccount)
				accounts.GET("/merchant/:id/products/stats", ctrls.Product.Stats)
				accounts.POST("/merchant/:id/sync",
					middleware.SyncRateLimit(middleware.SyncTypeMerchant, 0),
					ctrls.Sync.SyncMerchantAccount)

				accounts.GET("/ads", ctrls.Account.ListAdsAccounts)
				accounts.DELETE("/ads/:id", ctrls.Account.DisconnectAdsAccount)
				accounts.PUT("/ads/:id/link", ctrls.Account.LinkAdsAccount)
				accounts.POST("/ads/:id/sync",
					middleware.SyncRateLimit(middleware.SyncTypeAds, 0),
					ctrls.Sync.SyncAdsAccount)
			}

			// 商品
			products := authed.Group("/products")
			{
				products.GET("", ctrls.Product.List)
				products.GET("/:id", ctrls.Product.Get)
				products.GET("/:id/history", ctrls.Product.History)
			}

			// 标题优化
			optimize := authed.Group("/optimize")
			{
				optimize.POST("/suggest", ctrls.Optimize.Suggest)
				optimize.POST("/apply", ctrls.Optimize.Apply)
			}

			// 变更追踪
			tracking := authed.Group("/tracking")
			{
				tracking.GET("", ctrls.Tracking.List)
				tracking.GET("/stats", ctrls.Tracking.Stats)
				tracking.GET("/:id", ctrls.Tracking.Get)
				tracking.POST("/:id/rollback", ctrls.Tracking.Rollback)
			}

			// AI 用量
			ai := authed.Group("/ai")
			{
				ai.GET("/usage", ctrls.AI.Usage)
				ai.GET("/usage/daily", ctrls.AI.DailyUsage)
			}
		}
	}
}
