package health

import (
	"net/http"
	"runtime"
	"time"

	"freshsense/internal/core/affiliate"
	"freshsense/internal/core/cache"
	"freshsense/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status            string                   `json:"status"`
	Timestamp         time.Time                `json:"timestamp"`
	Version           string                   `json:"version"`
	Runtime           map[string]interface{}   `json:"runtime"`
	AffiliateTracking bool                     `json:"affiliate_tracking"` // 示範商品連結是否帶有聯盟標籤
	Tracker           *affiliate.TrackerStatus `json:"tracker,omitempty"`
	Cache             *cache.Stats             `json:"cache,omitempty"`
}

// Handler 健康檢查處理程序
type Handler struct {
	version string
	linker  *affiliate.Linker
	tracker *affiliate.Tracker
	cache   *cache.Manager
}

// NewHandler 創建健康檢查處理程序，tracker 與 cache 可為 nil
func NewHandler(version string, linker *affiliate.Linker, tracker *affiliate.Tracker, cacheManager *cache.Manager) *Handler {
	return &Handler{
		version: version,
		linker:  linker,
		tracker: tracker,
		cache:   cacheManager,
	}
}

// HealthCheck 健康檢查處理器
func (h *Handler) HealthCheck(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}

	if h.linker != nil {
		response.AffiliateTracking = h.linker.QuickTrackingCheck()
	}
	if h.tracker != nil {
		status := h.tracker.Status()
		response.Tracker = &status
	}
	if h.cache != nil {
		stats := h.cache.GetStats()
		response.Cache = &stats
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 就緒檢查處理器，聯盟連結自我測試未通過時返回 503
func (h *Handler) ReadinessCheck(c *gin.Context) {
	suite := h.linker.RunTests()
	if !suite.Passed() {
		common.LogWarn("Readiness check failed", zap.Int("failed_tests", suite.FailedTests))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":       "not_ready",
			"failed_tests": suite.FailedTests,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
