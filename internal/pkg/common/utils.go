package common

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

type requestIDKey struct{}

// WithRequestID 將請求 ID 放入 context
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom 取得 context 中的請求 ID
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// WriteErrorResponse 寫入錯誤響應並中止後續處理
// debug 為 true 時附上原始錯誤訊息
func WriteErrorResponse(c *gin.Context, err error, debug bool) {
	resp := ErrorResponse{
		Code:    CodeOf(err),
		Message: err.Error(),
	}

	var ce *CustomError
	if errors.As(err, &ce) {
		resp.Message = ce.Message
		if debug && ce.Err != nil {
			resp.Details = ce.Err.Error()
		}
	}

	c.AbortWithStatusJSON(StatusOf(err), resp)
}
