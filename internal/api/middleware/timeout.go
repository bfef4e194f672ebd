package middleware

import (
	"context"
	"errors"
	"time"

	"freshsense/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Timeout 為請求設定截止時間，處理器尚未寫出回應時返回 504
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", requestid.Get(c)),
				zap.Duration("timeout", d),
			)
			common.WriteErrorResponse(c, common.ErrGatewayTimeout, false)
		}
	}
}
