package freshness

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"freshsense/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Analyzer 食物圖片鮮度分析
type Analyzer interface {
	Analyze(ctx context.Context, imageDataURI string) (*Analysis, error)
}

// EdgeOptions Edge Function 連線設定
type EdgeOptions struct {
	BaseURL string
	AnonKey string
	Timeout time.Duration
}

// EdgeClient 呼叫 analyze-food Edge Function
type EdgeClient struct {
	client *resty.Client
}

// NewEdgeClient 創建 Edge Function 客戶端
func NewEdgeClient(opts EdgeOptions) (*EdgeClient, error) {
	if opts.BaseURL == "" {
		return nil, common.ErrInvalidArgument.WithDetail(errors.New("edge function base url is required"))
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "application/json")
	if opts.AnonKey != "" {
		client.SetHeader("Authorization", fmt.Sprintf("Bearer %s", opts.AnonKey)).
			SetHeader("apikey", opts.AnonKey)
	}

	return &EdgeClient{client: client}, nil
}

// edgeError Edge Function 失敗時的回應
type edgeError struct {
	Error string `json:"error"`
}

// Analyze 實作 Analyzer
func (c *EdgeClient) Analyze(ctx context.Context, imageDataURI string) (analysis *Analysis, err error) {
	start := time.Now()
	defer func() {
		common.LogAnalyzerCall(time.Since(start), err, common.RequestIDFrom(ctx))
	}()

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"image": imageDataURI}).
		Post("/functions/v1/analyze-food")
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, common.ErrGatewayTimeout.WithDetail(fmt.Errorf("analyze-food timed out: %w", err))
		}
		return nil, common.ErrAnalyzerError.WithDetail(fmt.Errorf("failed to send request to analyze-food: %w", err))
	}

	if resp.StatusCode() != http.StatusOK {
		var body edgeError
		msg := resp.String()
		if common.ParseJSONBytes(resp.Body(), &body) == nil && body.Error != "" {
			msg = body.Error
		}
		return nil, common.ErrAnalyzerError.WithDetail(
			fmt.Errorf("analyze-food returned status %d: %s", resp.StatusCode(), msg))
	}

	return ParseAnalysis(resp.String()), nil
}

// ParseAnalysis 解析模型輸出，容忍 markdown 包裝，解析失敗時返回 FallbackAnalysis
func ParseAnalysis(raw string) *Analysis {
	var analysis Analysis
	if err := common.ParseJSON(common.ExtractJSONObject(raw), &analysis); err != nil {
		common.LogWarn("Failed to parse analysis response", zap.Error(err), zap.Int("length", len(raw)))
		return FallbackAnalysis()
	}
	analysis.applyDefaults()
	return &analysis
}
