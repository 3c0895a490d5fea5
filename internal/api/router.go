package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"flavor-remix/internal/api/handlers/health"
	substitutionHandler "flavor-remix/internal/api/handlers/substitution"
	"flavor-remix/internal/api/middleware"
	"flavor-remix/internal/core/cache"
	"flavor-remix/internal/core/flavordb"
	"flavor-remix/internal/core/profile"
	"flavor-remix/internal/core/recipedb"
	"flavor-remix/internal/core/substitution"
	"flavor-remix/internal/infrastructure/config"
	"flavor-remix/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// 請求層級超時
	timeoutDuration = 60 * time.Second
	// 請求體大小限制 (1MB)；純 JSON 查詢不需要更大
	maxBodySize = 1 << 20
)

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, cacheManager *cache.Manager, redisCache *cache.RedisCache) (*gin.Engine, error) {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 創建路由引擎
	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New()) // 自動生成請求 ID

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制
	router.Use(middleware.BodySizeLimit(maxBodySize))

	// 請求去重
	router.Use(middleware.Deduplication(cfg))

	// 限流
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	common.LogInfo("Initializing services",
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
		zap.String("flavordb", cfg.FlavorDB.BaseURL),
		zap.String("recipedb", cfg.RecipeDB.BaseURL),
	)

	// 初始化上游客戶端
	flavorClient := flavordb.NewClient(&cfg.FlavorDB)
	recipeClient := recipedb.NewClient(&cfg.RecipeDB)

	// 初始化 profile 服務
	profileSvc := profile.NewService(cfg, flavorClient, cacheManager, redisCache)
	if profileSvc == nil {
		common.LogError("Failed to initialize profile service")
		return nil, fmt.Errorf("failed to initialize profile service")
	}

	// 初始化替代排序器
	ranker := substitution.NewRanker(cfg, profileSvc, profileSvc, recipeClient)
	if ranker == nil {
		common.LogError("Failed to initialize ranker")
		return nil, fmt.Errorf("failed to initialize ranker")
	}

	common.LogInfo("Substitution services initialized successfully",
		zap.Bool("cache_manager_initialized", cacheManager != nil),
		zap.String("environment", cfg.App.Env),
	)

	// 全局中間件：設置超時和服務
	router.Use(func(c *gin.Context) {
		// 設置請求超時
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()

		// 創建新的請求上下文
		c.Request = c.Request.WithContext(ctx)

		// 設置配置與快取（健康檢查用）
		c.Set("config", cfg)
		c.Set("cache_manager", cacheManager)

		// 處理請求
		c.Next()

		// 檢查是否超時
		if ctx.Err() == context.DeadlineExceeded {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetHeader("X-Request-ID")),
				zap.Duration("timeout", timeoutDuration),
			)
			c.JSON(http.StatusGatewayTimeout, gin.H{
				"error": "Request timeout",
				"code":  common.ErrCodeRequestTimeout,
				"details": gin.H{
					"timeout": timeoutDuration.String(),
				},
			})
			c.Abort()
			return
		}
	})

	// 健康檢查路由
	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	// API 路由組
	api := router.Group("/api/v1")
	{
		handler := substitutionHandler.NewHandler(ranker, profileSvc)

		// 風味資料查詢
		flavorGroup := api.Group("/flavor")
		{
			flavorGroup.GET("/profile", handler.HandleProfile)
		}

		// 替代建議
		substitutionGroup := api.Group("/substitution")
		{
			// 兩個食材的相似度比較
			substitutionGroup.POST("/compare", handler.HandleCompare)

			// 對目標食材排序候選替代
			substitutionGroup.POST("/substitutes", handler.HandleSubstitutes)

			// 整道菜模式：先定位食譜食材再排序
			substitutionGroup.POST("/replace", handler.HandleReplace)
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.Bool("cache_manager_initialized", cacheManager != nil),
		zap.Duration("timeout", timeoutDuration),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router, nil
}
