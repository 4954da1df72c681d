package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gmc_dev_v1_202608/internal/controller"
	"gmc_dev_v1_202608/internal/middleware"
	"gmc_dev_v1_202608/internal/model"
	"gmc_dev_v1_202608/internal/repository"
	"gmc_dev_v1_202608/internal/router"
	"gmc_dev_v1_202608/internal/service"
	"gmc_dev_v1_202608/internal/task"
	"gmc_dev_v1_202608/pkg/database"
	"gmc_dev_v1_202608/pkg/google"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	// 0. 加载环境变量（.env 不存在则静默跳过，生产环境直接读系统变量）
	_ = godotenv.Load()

	// 1. 初始化数据库
	db := initDatabase()

	// 2. 初始化依赖
	deps := initDependencies(db)

	// 3. 启动定时任务
	tm := initTasks(deps)
	defer tm.Stop()

	// 4. 初始化路由
	r := router.SetupRouter(deps.Controllers)

	// 5. 启动服务
	startServer(r)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Repos       *Repositories
	Controllers *router.Controllers
	Services    *Services
}

// Repositories 仓库集合
type Repositories struct {
	User        repository.UserRepository
	Credential  repository.CredentialRepository
	Merchant    repository.MerchantAccountRepository
	Ads         repository.AdsAccountRepository
	Product     repository.ProductRepository
	TitleChange repository.TitleChangeRepository
	AiCallLog   repository.AICallLogRepository
}

// Services 服务集合
type Services struct {
	Auth       *service.AuthService
	Credential *service.CredentialService
	Token      *service.TokenService
	OAuth      *service.OAuthService
	Account    *service.AccountService
	Sync       *service.SyncService
	Product    *service.ProductService
	AI         *service.AIService
	Optimize   *service.OptimizeService
	Impact     *service.ImpactService
	Tracking   *service.TrackingService
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase() *gorm.DB {
	dsn := getEnv("DATABASE_URL",
		"host=localhost user=postgres password=postgres dbname=gmc_dashboard port=5432 sslmode=disable TimeZone=UTC")

	db := database.InitDB(dsn,
		// User
		&model.SysUser{}, &model.UserCredential{},
		// Account
		&model.MerchantAccount{}, &model.AdsAccount{},
		// Catalog
		&model.Product{},
		// Tracking
		&model.TitleChange{}, &model.AICallLog{},
	)

	// 审计回调：Create 时自动补全操作人
	middleware.RegisterAuditCallbacks(db)

	return db
}

// initDependencies 初始化所有依赖
func initDependencies(db *gorm.DB) *Dependencies {
	// -------- JWT 配置 --------
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg := middleware.DefaultJWTConfig()
		cfg.SecretKey = secret
		middleware.SetJWTConfig(cfg)
	} else {
		log.Println("警告: JWT_SECRET 未设置，正在使用默认签名密钥")
	}

	// -------- Repo 层 --------
	repos := initRepositories(db)

	// -------- Google API 客户端 --------
	merchantClient := google.NewMerchantClient()
	adsClient := google.NewAdsClient(getEnv("GOOGLE_ADS_DEVELOPER_TOKEN", ""))

	// -------- 业务服务 --------
	services := &Services{}

	services.Auth = service.NewAuthService(repos.User)
	services.Credential = service.NewCredentialService(repos.Credential, getEnv("GOOGLE_REDIRECT_URI", ""))
	services.Token = service.NewTokenService(services.Credential, repos.Merchant, repos.Ads)
	services.OAuth = service.NewOAuthService(services.Credential, repos.Merchant, repos.Ads, merchantClient, adsClient)
	services.Account = service.NewAccountService(services.Credential, repos.Merchant, repos.Ads)
	services.Sync = service.NewSyncService(services.Token, repos.Merchant, repos.Ads, repos.Product, merchantClient, adsClient)
	services.Product = service.NewProductService(repos.Merchant, repos.Product, repos.TitleChange)
	services.AI = service.NewAIService(
		getEnv("ANTHROPIC_API_KEY", ""),
		getEnv("GEMINI_API_KEY", ""),
		getEnv("GEMINI_MODEL", ""),
		repos.AiCallLog,
	)
	services.Optimize = service.NewOptimizeService(db, services.AI, services.Token, repos.Merchant, repos.Product, repos.TitleChange, merchantClient)
	services.Impact = service.NewImpactService(services.Token, repos.Merchant, repos.Product, repos.TitleChange, merchantClient)
	services.Tracking = service.NewTrackingService(services.Token, repos.Merchant, repos.Product, repos.TitleChange, merchantClient)

	// -------- Controller 层 --------
	controllers := initControllers(services)

	return &Dependencies{
		DB:          db,
		Repos:       repos,
		Controllers: controllers,
		Services:    services,
	}
}

// initRepositories 初始化所有仓库
func initRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:        repository.NewUserRepository(db),
		Credential:  repository.NewCredentialRepository(db),
		Merchant:    repository.NewMerchantAccountRepository(db),
		Ads:         repository.NewAdsAccountRepository(db),
		Product:     repository.NewProductRepository(db),
		TitleChange: repository.NewTitleChangeRepository(db),
		AiCallLog:   repository.NewAICallLogRepository(db),
	}
}

// initControllers 初始化所有控制器
func initControllers(svc *Services) *router.Controllers {
	return &router.Controllers{
		Auth:       controller.NewAuthController(svc.Auth),
		Credential: controller.NewCredentialController(svc.Credential),
		OAuth:      controller.NewOAuthController(svc.OAuth),
		Account:    controller.NewAccountController(svc.Account),
		Sync:       controller.NewSyncController(svc.Sync),
		Product:    controller.NewProductController(svc.Product),
		Optimize:   controller.NewOptimizeController(svc.Optimize),
		Tracking:   controller.NewTrackingController(svc.Tracking),
		AI:         controller.NewAIController(svc.AI),
		Cron:       controller.NewCronController(svc.Impact, getEnv("CRON_SECRET", "")),
	}
}

// ==================== 定时任务 ====================

// initTasks 初始化定时任务
func initTasks(deps *Dependencies) *task.TaskManager {
	tm := task.NewTaskManager(&task.TaskManagerDeps{
		TokenService:  deps.Services.Token,
		SyncService:   deps.Services.Sync,
		ImpactService: deps.Services.Impact,
	}, nil)

	tm.Start()
	return tm
}

// ==================== 服务启动 ====================

// startServer 启动服务
func startServer(r *gin.Engine) {
	port := getEnv("SERVER_PORT", "8080")

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		log.Printf("服务启动在 :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 优雅关闭，最多等待 30 秒
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("服务强制关闭: %v", err)
	}

	log.Println("服务已退出")
}

// ==================== 工具函数 ====================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
