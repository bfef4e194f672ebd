package api

import (
	"fmt"
	"net/http"
	"time"

	affiliateHandler "freshsense/internal/api/handlers/affiliate"
	freshnessHandler "freshsense/internal/api/handlers/freshness"
	"freshsense/internal/api/handlers/health"
	"freshsense/internal/api/middleware"
	"freshsense/internal/core/affiliate"
	"freshsense/internal/core/cache"
	"freshsense/internal/core/freshness"
	"freshsense/internal/infrastructure/config"
	"freshsense/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 請求超時
const timeoutDuration = 120 * time.Second

// Dependencies 路由需要的服務
type Dependencies struct {
	Linker    *affiliate.Linker
	Tracker   *affiliate.Tracker
	Cache     *cache.Manager
	Freshness *freshness.Service // Edge Function 未啟用時為 nil
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	if deps.Linker == nil || deps.Tracker == nil {
		return nil, fmt.Errorf("linker and tracker are required")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New()) // 自動生成請求 ID
	router.Use(middleware.Logger())

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.CORS.AllowOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))

	// 請求體大小限制
	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes, cfg.App.Debug))
	router.Use(middleware.Timeout(timeoutDuration))

	// 健康檢查路由
	healthHandler := health.NewHandler(cfg.App.Version, deps.Linker, deps.Tracker, deps.Cache)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	// API 路由組
	api := router.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.Burst))
	}
	{
		affiliateHandler.NewHandler(deps.Linker, deps.Tracker, cfg.App.Debug).
			Register(api.Group("/affiliate"))

		// 避免 nil *Service 變成非 nil 介面值
		var analyzer freshnessHandler.Analyzer
		if deps.Freshness != nil {
			analyzer = deps.Freshness
		}
		freshnessGroup := api.Group("/freshness")
		freshnessGroup.Use(middleware.NewDeduplicator(cfg.DedupWindow).Middleware())
		freshnessGroup.POST("/analyze", freshnessHandler.NewHandler(analyzer, cfg.App.Debug).HandleAnalyze)
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("freshness_enabled", deps.Freshness != nil),
		zap.Bool("cache_enabled", deps.Cache != nil && cfg.Cache.Enabled),
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		zap.Duration("timeout", timeoutDuration),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)

	return router, nil
}
