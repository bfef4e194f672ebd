package middleware

import (
	"fmt"
	"math"
	"sync"
	"time"

	"freshsense/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimiter 以用戶端 IP 為鍵的令牌桶限流器
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter 創建新的限流器，window 內平均允許 requests 次請求
func NewRateLimiter(requests int, window time.Duration, burst int) *RateLimiter {
	if burst <= 0 {
		burst = requests
	}
	return &RateLimiter{
		limiters: make(map[string]*clientLimiter),
		limit:    rate.Limit(float64(requests) / window.Seconds()),
		burst:    burst,
		idleTTL:  10 * window,
		now:      time.Now,
	}
}

// Allow 檢查是否允許請求
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entry, ok := rl.limiters[key]
	if !ok {
		rl.evictIdle(now)
		entry = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// evictIdle 移除長時間未出現的用戶端，呼叫端須持有鎖
func (rl *RateLimiter) evictIdle(now time.Time) {
	for key, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) > rl.idleTTL {
			delete(rl.limiters, key)
		}
	}
}

// retryAfter 下一個令牌可用前的秒數
func (rl *RateLimiter) retryAfter() int {
	if rl.limit <= 0 {
		return 1
	}
	return int(math.Ceil(1 / float64(rl.limit)))
}

// RateLimit 限流中間件
func RateLimit(requests int, window time.Duration, burst int) gin.HandlerFunc {
	limiter := NewRateLimiter(requests, window, burst)

	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			common.LogInfo("Rate limit exceeded",
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			)

			c.Header("Retry-After", fmt.Sprintf("%d", limiter.retryAfter()))
			common.WriteErrorResponse(c, common.ErrTooManyRequests, false)
			return
		}

		c.Next()
	}
}
