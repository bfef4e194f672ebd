package freshness

import (
	"context"
	"errors"
	"net/http"

	"freshsense/internal/core/freshness"
	"freshsense/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AnalyzeRequest 鮮度分析請求
type AnalyzeRequest struct {
	Image string `json:"image" binding:"required"` // data:image/...;base64,...
}

// Analyzer 鮮度分析服務
type Analyzer interface {
	Analyze(ctx context.Context, imageDataURI string) (*freshness.Result, error)
}

// Handler 鮮度分析處理程序
type Handler struct {
	service Analyzer
	debug   bool
}

// NewHandler 創建鮮度分析處理程序，service 為 nil 時端點返回 503
func NewHandler(service Analyzer, debug bool) *Handler {
	return &Handler{service: service, debug: debug}
}

// HandleAnalyze 分析食物圖片並附上購物連結
func (h *Handler) HandleAnalyze(c *gin.Context) {
	requestID := requestid.Get(c)

	if h.service == nil {
		common.WriteErrorResponse(c, common.ErrServiceUnavailable.WithDetail(
			errors.New("freshness analysis is not configured")), h.debug)
		return
	}

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			common.WriteErrorResponse(c, common.ErrPayloadTooLarge.WithDetail(err), h.debug)
			return
		}
		common.LogWarn("請求格式無效", zap.Error(err), zap.String("request_id", requestID))
		common.WriteErrorResponse(c, common.ErrInvalidRequest.WithDetail(err), h.debug)
		return
	}

	common.LogInfo("開始處理鮮度分析請求",
		zap.String("request_id", requestID),
		zap.Int("image_length", len(req.Image)),
	)

	result, err := h.service.Analyze(c.Request.Context(), req.Image)
	if err != nil {
		common.LogError("鮮度分析失敗", zap.Error(err), zap.String("request_id", requestID))
		common.WriteErrorResponse(c, err, h.debug)
		return
	}

	common.LogInfo("鮮度分析完成",
		zap.String("request_id", requestID),
		zap.String("identified_food", result.Analysis.IdentifiedFood),
		zap.Bool("cached", result.Cached),
	)
	c.JSON(http.StatusOK, result)
}
