package middleware

import (
	"time"

	"freshsense/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Logger 日誌中間件，需註冊在 requestid 之後
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		requestID := requestid.Get(c)

		// 讓下游服務的日誌帶上同一個請求 ID
		c.Request = c.Request.WithContext(common.WithRequestID(c.Request.Context(), requestID))

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.String("ip", c.ClientIP()),
			zap.String("user-agent", c.Request.UserAgent()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", requestID),
		}

		// 添加錯誤信息（如果有）
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		// 根據狀態碼記錄不同級別的日誌
		switch {
		case status >= 500:
			common.LogError("伺服器錯誤",
				append(fields, zap.String("error_type", "server_error"))...,
			)
		case status >= 400:
			common.LogWarn("用戶端錯誤",
				append(fields, zap.String("error_type", "client_error"))...,
			)
		default:
			common.LogInfo("請求完成", fields...)
		}
	}
}

// Recovery 恢復中間件
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				common.LogError("Panic recovered",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
				)
				common.WriteErrorResponse(c, common.ErrInternalError, false)
			}
		}()

		c.Next()
	}
}
