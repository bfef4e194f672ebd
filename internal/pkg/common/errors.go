package common

import (
	"errors"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code    string `json:"code"`              // 錯誤代碼
	Message string `json:"message"`           // 錯誤信息
	Details string `json:"details,omitempty"` // 詳細信息（僅在開發模式顯示）
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap 返回原始錯誤
func (e *CustomError) Unwrap() error {
	return e.Err
}

// Is 以錯誤代碼比對，讓 errors.Is 可匹配同代碼的包裝錯誤
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	return ok && t.Code == e.Code
}

// WithDetail 以相同代碼建立帶原始錯誤的副本
func (e *CustomError) WithDetail(err error) *CustomError {
	return NewError(e.Code, e.Message, e.Status, err)
}

// StatusOf 取得錯誤對應的 HTTP 狀態碼，非 CustomError 回傳 500
func StatusOf(err error) int {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Status
	}
	return http.StatusInternalServerError
}

// CodeOf 取得錯誤代碼，非 CustomError 回傳 INTERNAL_ERROR
func CodeOf(err error) string {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrCodeInternalError
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest   = "INVALID_REQUEST"    // 400
	ErrCodeInvalidArgument  = "INVALID_ARGUMENT"   // 400
	ErrCodeUnauthorized     = "UNAUTHORIZED"       // 401
	ErrCodeForbidden        = "FORBIDDEN"          // 403
	ErrCodeNotFound         = "NOT_FOUND"          // 404
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED" // 405
	ErrCodeRequestTimeout   = "REQUEST_TIMEOUT"    // 408
	ErrCodeConflict         = "CONFLICT"           // 409
	ErrCodePayloadTooLarge  = "PAYLOAD_TOO_LARGE"  // 413
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"  // 429

	// 服務器錯誤 (5xx)
	ErrCodeInternalError      = "INTERNAL_ERROR"      // 500
	ErrCodeNotImplemented     = "NOT_IMPLEMENTED"     // 501
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503
	ErrCodeGatewayTimeout     = "GATEWAY_TIMEOUT"     // 504
)

// 預定義錯誤
var (
	// 客戶端錯誤
	ErrInvalidRequest   = NewError(ErrCodeInvalidRequest, "無效的請求", http.StatusBadRequest, nil)
	ErrInvalidArgument  = NewError(ErrCodeInvalidArgument, "無效的參數", http.StatusBadRequest, nil)
	ErrUnauthorized     = NewError(ErrCodeUnauthorized, "未授權的訪問", http.StatusUnauthorized, nil)
	ErrForbidden        = NewError(ErrCodeForbidden, "禁止訪問", http.StatusForbidden, nil)
	ErrNotFound         = NewError(ErrCodeNotFound, "資源不存在", http.StatusNotFound, nil)
	ErrMethodNotAllowed = NewError(ErrCodeMethodNotAllowed, "不支持的請求方法", http.StatusMethodNotAllowed, nil)
	ErrRequestTimeout   = NewError(ErrCodeRequestTimeout, "請求超時", http.StatusRequestTimeout, nil)
	ErrConflict         = NewError(ErrCodeConflict, "資源衝突", http.StatusConflict, nil)
	ErrPayloadTooLarge  = NewError(ErrCodePayloadTooLarge, "請求體過大", http.StatusRequestEntityTooLarge, nil)
	ErrTooManyRequests  = NewError(ErrCodeTooManyRequests, "請求過於頻繁", http.StatusTooManyRequests, nil)

	// 服務器錯誤
	ErrInternalError      = NewError(ErrCodeInternalError, "服務器內部錯誤", http.StatusInternalServerError, nil)
	ErrNotImplemented     = NewError(ErrCodeNotImplemented, "功能未實現", http.StatusNotImplemented, nil)
	ErrServiceUnavailable = NewError(ErrCodeServiceUnavailable, "服務暫時不可用", http.StatusServiceUnavailable, nil)
	ErrGatewayTimeout     = NewError(ErrCodeGatewayTimeout, "網關超時", http.StatusGatewayTimeout, nil)

	// 業務錯誤
	ErrInvalidImageFormat = NewError("INVALID_IMAGE_FORMAT", "無效的圖片格式", http.StatusBadRequest, nil)
	ErrInvalidImageSize   = NewError("INVALID_IMAGE_SIZE", "圖片大小超出限制", http.StatusBadRequest, nil)
	ErrInvalidImageType   = NewError("INVALID_IMAGE_TYPE", "不支持的圖片類型", http.StatusBadRequest, nil)
	ErrCacheFull          = NewError("CACHE_FULL", "緩存已滿", http.StatusServiceUnavailable, nil)
	ErrCacheDisabled      = NewError("CACHE_DISABLED", "緩存已禁用", http.StatusServiceUnavailable, nil)
	ErrCacheMiss          = NewError("CACHE_MISS", "緩存未命中", http.StatusNotFound, nil)
	ErrAnalyzerError      = NewError("ANALYZER_ERROR", "鮮度分析服務錯誤", http.StatusBadGateway, nil)
)
