package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"freshsense/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deduplicator 在時間窗內拒絕完全相同的 POST 請求
type Deduplicator struct {
	mu       sync.Mutex
	requests map[string]time.Time
	window   time.Duration
	now      func() time.Time
}

// NewDeduplicator 創建請求去重器
func NewDeduplicator(window time.Duration) *Deduplicator {
	if window <= 0 {
		window = time.Second
	}
	return &Deduplicator{
		requests: make(map[string]time.Time),
		window:   window,
		now:      time.Now,
	}
}

// seen 記錄指紋並回報是否為時間窗內的重複請求
func (d *Deduplicator) seen(fingerprint string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, exists := d.requests[fingerprint]; exists && now.Sub(last) <= d.window {
		return true
	}

	// 寫入前順便清掉過期指紋
	if len(d.requests) > 1024 {
		for k, t := range d.requests {
			if now.Sub(t) > 10*d.window {
				delete(d.requests, k)
			}
		}
	}
	d.requests[fingerprint] = now
	return false
}

// Middleware 請求去重中間件，指紋為 method + path + client IP + body 雜湊
func (d *Deduplicator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 只處理 POST 請求
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		fingerprint := c.Request.Method + ":" + c.Request.URL.Path + ":" + c.ClientIP()
		if c.Request.Body != nil {
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					common.WriteErrorResponse(c, common.ErrPayloadTooLarge.WithDetail(err), false)
					return
				}
				common.LogError("Failed to read request body", zap.Error(err))
				common.WriteErrorResponse(c, common.ErrInvalidRequest.WithDetail(err), false)
				return
			}

			hash := sha256.Sum256(body)
			fingerprint += ":" + hex.EncodeToString(hash[:])

			// 恢復請求體
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		if d.seen(fingerprint) {
			common.LogWarn("Duplicate request rejected",
				zap.String("path", c.Request.URL.Path),
				zap.String("ip", c.ClientIP()),
			)
			common.WriteErrorResponse(c, common.ErrTooManyRequests, false)
			return
		}

		c.Next()
	}
}
