package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"freshsense/internal/api"
	"freshsense/internal/core/affiliate"
	"freshsense/internal/core/cache"
	"freshsense/internal/core/freshness"
	"freshsense/internal/core/image"
	"freshsense/internal/infrastructure/config"
	"freshsense/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	// 載入設定（.env 不存在時只讀環境變數）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel, cfg.LogDir); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("affiliate_tag", cfg.Affiliate.Tag),
		zap.Bool("edge_enabled", cfg.Edge.Enabled),
		zap.String("edge_anon_key", config.MaskSecret(cfg.Edge.AnonKey)),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
	)

	linker, err := affiliate.NewLinker(cfg.LinkerConfig())
	if err != nil {
		common.LogFatal("Failed to initialize affiliate linker", zap.Error(err))
	}

	// 啟動時先跑一次自我測試
	if suite := linker.RunTests(); !suite.Passed() {
		common.LogWarn("Affiliate self-test reported failures",
			zap.Int("failed", suite.FailedTests),
			zap.Int("total", suite.TotalTests),
		)
	}

	sink, closeSink := newClickSink(cfg)
	defer closeSink()

	tracker := affiliate.NewTracker(sink, cfg.TrackerConfig())
	defer tracker.Close()

	cacheManager := cache.NewManager(cfg.CacheManagerConfig())
	defer cacheManager.Close()

	deps := api.Dependencies{
		Linker:  linker,
		Tracker: tracker,
		Cache:   cacheManager,
	}
	if cfg.Edge.Enabled {
		edge, err := freshness.NewEdgeClient(cfg.EdgeOptions())
		if err != nil {
			common.LogFatal("Failed to initialize edge client", zap.Error(err))
		}
		deps.Freshness = freshness.NewService(
			image.NewValidator(cfg.Image.MaxSizeBytes),
			image.NewProcessor(cfg.CompressOptions()),
			cacheManager, edge, linker,
		)
	}

	router, err := api.SetupRouter(cfg, deps)
	if err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
	}

	common.LogInfo("Server exited")
}

// newClickSink Redis 啟用且可連線時使用 Redis，否則退回記憶體計數
func newClickSink(cfg *config.Config) (affiliate.ClickSink, func()) {
	if !cfg.Redis.Enabled {
		return affiliate.NewMemorySink(), func() {}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sink, err := affiliate.NewRedisSink(ctx, cfg.RedisOptions())
	if err != nil {
		common.LogWarn("Redis unavailable, falling back to in-memory click counts",
			zap.Error(err),
			zap.String("addr", cfg.Redis.Addr),
		)
		return affiliate.NewMemorySink(), func() {}
	}

	common.LogInfo("Redis click sink connected", zap.String("addr", cfg.Redis.Addr))
	return sink, func() {
		if err := sink.Close(); err != nil {
			common.LogWarn("Failed to close redis client", zap.Error(err))
		}
	}
}
