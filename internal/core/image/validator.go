package image

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"strings"

	_ "image/gif"  // 支援 GIF
	_ "image/jpeg" // 支援 JPEG
	_ "image/png"  // 支援 PNG

	"freshsense/internal/pkg/common"

	_ "golang.org/x/image/webp" // 支援 WebP
)

// DefaultMaxSizeBytes 預設圖片大小上限
const DefaultMaxSizeBytes int64 = 10 * 1024 * 1024

// Info 通過驗證的圖片資訊
type Info struct {
	Format    string `json:"format"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	SizeBytes int    `json:"size_bytes"`
}

// Validator 驗證上傳的 data URI 圖片
type Validator struct {
	maxSizeBytes int64
}

// NewValidator 創建圖片驗證器
func NewValidator(maxSizeBytes int64) *Validator {
	if maxSizeBytes <= 0 {
		maxSizeBytes = DefaultMaxSizeBytes
	}
	return &Validator{maxSizeBytes: maxSizeBytes}
}

// Validate 驗證 data:image/...;base64, 格式的圖片，只讀取圖片標頭
func (v *Validator) Validate(dataURI string) (*Info, error) {
	if !strings.HasPrefix(dataURI, "data:image/") {
		return nil, common.ErrInvalidImageFormat.WithDetail(fmt.Errorf("image must be a data:image/ URI"))
	}

	header, payload, ok := strings.Cut(dataURI, ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return nil, common.ErrInvalidImageFormat.WithDetail(fmt.Errorf("invalid base64 data format"))
	}

	// base64 解碼後大小約為 3/4
	if int64(base64.StdEncoding.DecodedLen(len(payload))) > v.maxSizeBytes+2 {
		return nil, common.ErrInvalidImageSize.WithDetail(
			fmt.Errorf("image size exceeds maximum limit of %d bytes", v.maxSizeBytes))
	}

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, common.ErrInvalidImageFormat.WithDetail(fmt.Errorf("failed to decode base64 data: %w", err))
	}
	if int64(len(decoded)) > v.maxSizeBytes {
		return nil, common.ErrInvalidImageSize.WithDetail(
			fmt.Errorf("image size exceeds maximum limit of %d bytes", v.maxSizeBytes))
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(decoded))
	if err != nil {
		return nil, common.ErrInvalidImageType.WithDetail(fmt.Errorf("failed to decode image: %w", err))
	}
	if !isSupportedFormat(format) {
		return nil, common.ErrInvalidImageType.WithDetail(fmt.Errorf("unsupported image format: %s", format))
	}

	return &Info{
		Format:    format,
		Width:     cfg.Width,
		Height:    cfg.Height,
		SizeBytes: len(decoded),
	}, nil
}

// isSupportedFormat 檢查圖片格式是否支援
func isSupportedFormat(format string) bool {
	supportedFormats := map[string]bool{
		"jpeg": true,
		"png":  true,
		"gif":  true,
		"webp": true,
	}
	return supportedFormats[format]
}
