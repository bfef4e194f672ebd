package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger 全局日誌實例，InitLogger 之前為 no-op
	Logger  = zap.NewNop()
	LogMode string // 只宣告，不初始化

	// 定義日誌級別的顏色
	levelColors = map[zapcore.Level]string{
		zapcore.DebugLevel: "\033[36m", // 青色
		zapcore.InfoLevel:  "\033[32m", // 綠色
		zapcore.WarnLevel:  "\033[33m", // 黃色
		zapcore.ErrorLevel: "\033[31m", // 紅色
		zapcore.FatalLevel: "\033[35m", // 紫色
	}
	resetColor = "\033[0m"

	// concise 模式下仍會輸出的訊息
	conciseMessages = map[string]bool{
		"請求完成":                    true,
		"啟動應用":                    true,
		"Server exited":           true,
		"Shutting down server...": true,
	}
)

// 自定義編碼器配置
func getEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "", // 移除 logger 名稱
		CallerKey:      "", // 移除調用者信息
		MessageKey:     "msg",
		StacktraceKey:  "", // 移除堆棧跟踪
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    customLevelEncoder,
		EncodeTime:     customTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   nil, // 移除調用者編碼器
	}
}

// 自定義時間格式
func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05.000")) // 添加毫秒級別的時間戳
}

// 自定義級別編碼器（添加顏色）
func customLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	color := levelColors[l]
	level := l.String()
	// 統一級別顯示長度
	switch l {
	case zapcore.DebugLevel:
		level = "DBG"
	case zapcore.InfoLevel:
		level = "INF"
	case zapcore.WarnLevel:
		level = "WRN"
	case zapcore.ErrorLevel:
		level = "ERR"
	case zapcore.FatalLevel:
		level = "FAT"
	}
	enc.AppendString(color + level + resetColor)
}

// ParseLevel 將設定字串轉為日誌級別，未知值回退為 info
func ParseLevel(logLevel string) zapcore.Level {
	switch strings.ToLower(logLevel) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// InitLogger 初始化日誌系統
// logDir 為空時只輸出到 console（CLI 使用）
func InitLogger(logLevel string, logDir string) error {
	level := ParseLevel(logLevel)

	// 讀取 LOG_MODE（必須在 .env 載入後）
	LogMode = os.Getenv("LOG_MODE")

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(getEncoderConfig()),
		zapcore.AddSync(os.Stdout),
		level,
	)
	cores := []zapcore.Core{consoleCore}

	if logDir != "" {
		// 創建日誌目錄
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}

		logFile, err := os.OpenFile(filepath.Join(logDir, "app.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}

		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(getEncoderConfig()),
			zapcore.AddSync(logFile),
			level,
		))
	}

	Logger = zap.New(zapcore.NewTee(cores...),
		zap.AddCallerSkip(1),
		zap.Fields(
			zap.String("service", "freshsense"),
		),
	)

	// 替換全局 logger
	zap.ReplaceGlobals(Logger)

	return nil
}

// filterImageFields 過濾掉包含圖片數據的字段
func filterImageFields(fields []zap.Field) []zap.Field {
	filtered := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		if field.Key == "image" ||
			strings.Contains(field.Key, "image_data") ||
			strings.Contains(field.Key, "base64") {
			continue
		}
		filtered = append(filtered, field)
	}
	return filtered
}

// LogInfo 記錄信息日誌
func LogInfo(msg string, fields ...zap.Field) {
	if LogMode == "concise" && !conciseMessages[msg] {
		return
	}
	Logger.Info(msg, filterImageFields(fields)...)
}

// LogError 記錄錯誤日誌
func LogError(msg string, fields ...zap.Field) {
	Logger.Error(msg, filterImageFields(fields)...)
}

// LogWarn 記錄警告日誌
func LogWarn(msg string, fields ...zap.Field) {
	Logger.Warn(msg, filterImageFields(fields)...)
}

// LogDebug 記錄調試日誌
func LogDebug(msg string, fields ...zap.Field) {
	Logger.Debug(msg, filterImageFields(fields)...)
}

// LogFatal 記錄致命錯誤日誌
func LogFatal(msg string, fields ...zap.Field) {
	Logger.Fatal(msg, fields...)
}

// Sync 同步日誌緩衝
func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

// LogCacheHit 記錄快取命中
func LogCacheHit(cacheType string) {
	LogInfo("快取命中", zap.String("類型", cacheType))
}

// LogCacheMiss 記錄快取未命中
func LogCacheMiss(cacheType string) {
	LogInfo("快取未命中", zap.String("類型", cacheType))
}

// LogAnalyzerCall 記錄鮮度分析服務調用
func LogAnalyzerCall(duration time.Duration, err error, requestID string) {
	if err != nil {
		LogError("鮮度分析請求失敗",
			zap.Error(err),
			zap.Duration("耗時", duration),
			zap.String("request_id", requestID),
		)
		return
	}
	LogInfo("鮮度分析請求成功",
		zap.Duration("耗時", duration),
		zap.String("request_id", requestID),
	)
}

// LogAffiliateEvent 記錄聯盟連結相關事件
func LogAffiliateEvent(msg string, ingredient string, linkType string, fields ...zap.Field) {
	fields = append([]zap.Field{
		zap.String("ingredient", ingredient),
		zap.String("link_type", linkType),
	}, fields...)
	LogInfo(msg, fields...)
}
