package image

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"strings"

	"freshsense/internal/pkg/common"

	"golang.org/x/image/draw"
)

// 壓縮預設值
const (
	DefaultMaxWidth        = 1280
	DefaultMaxHeight       = 720
	DefaultQuality         = 80
	DefaultMaxEncodedBytes = 500 * 1024
	minQuality             = 10
	qualityStep            = 10
)

// CompressOptions 上傳圖片壓縮設定
type CompressOptions struct {
	MaxWidth        int
	MaxHeight       int
	Quality         int
	MaxEncodedBytes int
}

// DefaultCompressOptions 返回預設壓縮設定
func DefaultCompressOptions() CompressOptions {
	return CompressOptions{
		MaxWidth:        DefaultMaxWidth,
		MaxHeight:       DefaultMaxHeight,
		Quality:         DefaultQuality,
		MaxEncodedBytes: DefaultMaxEncodedBytes,
	}
}

// Processed 壓縮後送往分析器的圖片
type Processed struct {
	DataURI string
	Info    Info
}

// Processor 縮放並重新編碼上傳圖片為 JPEG
type Processor struct {
	opts CompressOptions
}

// NewProcessor 創建圖片處理器，未設定的欄位使用預設值
func NewProcessor(opts CompressOptions) *Processor {
	def := DefaultCompressOptions()
	if opts.MaxWidth <= 0 {
		opts.MaxWidth = def.MaxWidth
	}
	if opts.MaxHeight <= 0 {
		opts.MaxHeight = def.MaxHeight
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = def.Quality
	}
	if opts.MaxEncodedBytes <= 0 {
		opts.MaxEncodedBytes = def.MaxEncodedBytes
	}
	return &Processor{opts: opts}
}

// ProcessImage 等比例縮小至上限內，再以 JPEG 編碼
// 編碼後超過上限時逐步降低品質，直到 minQuality 為止
func (p *Processor) ProcessImage(dataURI string) (*Processed, error) {
	_, payload, ok := strings.Cut(dataURI, ",")
	if !ok {
		return nil, common.ErrInvalidImageFormat.WithDetail(fmt.Errorf("invalid base64 data format"))
	}
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, common.ErrInvalidImageFormat.WithDetail(fmt.Errorf("failed to decode base64 data: %w", err))
	}

	src, _, err := image.Decode(bytes.NewReader(decoded))
	if err != nil {
		return nil, common.ErrInvalidImageType.WithDetail(fmt.Errorf("failed to decode image: %w", err))
	}

	bounds := src.Bounds()
	width, height := FitWithin(bounds.Dx(), bounds.Dy(), p.opts.MaxWidth, p.opts.MaxHeight)

	// JPEG 不支援透明，先鋪白底
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	for quality := p.opts.Quality; ; quality -= qualityStep {
		buf.Reset()
		if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
			return nil, common.ErrInternalError.WithDetail(fmt.Errorf("failed to encode image as JPEG: %w", err))
		}
		if buf.Len() <= p.opts.MaxEncodedBytes || quality-qualityStep < minQuality {
			break
		}
	}

	return &Processed{
		DataURI: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Info: Info{
			Format:    "jpeg",
			Width:     width,
			Height:    height,
			SizeBytes: buf.Len(),
		},
	}, nil
}

// FitWithin 計算等比例縮放後的尺寸，不放大
func FitWithin(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}
	ratio := math.Min(float64(maxWidth)/float64(width), float64(maxHeight)/float64(height))
	w := int(math.Round(float64(width) * ratio))
	h := int(math.Round(float64(height) * ratio))
	return max(w, 1), max(h, 1)
}
