package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"freshsense/internal/core/affiliate"
	"freshsense/internal/core/cache"
	"freshsense/internal/core/freshness"
	"freshsense/internal/core/image"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	Affiliate   AffiliateConfig `mapstructure:"affiliate"`
	Edge        EdgeConfig      `mapstructure:"edge"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Tracking    TrackingConfig  `mapstructure:"tracking"`
	Redis       RedisConfig     `mapstructure:"redis"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Image       ImageConfig     `mapstructure:"image"`
	CORS        CORSConfig      `mapstructure:"cors"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	LogLevel    string          `mapstructure:"log_level"`
	LogDir      string          `mapstructure:"log_dir"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

// AffiliateConfig 聯盟連結設定
type AffiliateConfig struct {
	Tag            string `mapstructure:"tag"`
	RefParam       string `mapstructure:"ref_param"`
	BaseURL        string `mapstructure:"base_url"`
	FreshBaseURL   string `mapstructure:"fresh_base_url"`
	ProductBaseURL string `mapstructure:"product_base_url"`
	VendorDomain   string `mapstructure:"vendor_domain"`
}

// EdgeConfig 鮮度分析 Edge Function 設定
type EdgeConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	AnonKey string        `mapstructure:"anon_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// TrackingConfig 點擊追蹤隊列設定
type TrackingConfig struct {
	Workers       int           `mapstructure:"workers"`
	QueueSize     int           `mapstructure:"queue_size"`
	RecordTimeout time.Duration `mapstructure:"record_timeout"`
}

// RedisConfig Redis 點擊計數設定
type RedisConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
	Burst    int           `mapstructure:"burst"`
}

// ImageConfig 圖片配置
type ImageConfig struct {
	MaxSizeBytes    int64 `mapstructure:"max_size_bytes"`
	MaxWidth        int   `mapstructure:"max_width"`
	MaxHeight       int   `mapstructure:"max_height"`
	Quality         int   `mapstructure:"quality"`
	MaxEncodedBytes int   `mapstructure:"max_encoded_bytes"`
}

// CORSConfig 跨來源設定
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// envBindings 不帶 APP_ 前綴的環境變數
var envBindings = map[string]string{
	"affiliate.tag":       "AFFILIATE_TAG",
	"affiliate.ref_param": "AFFILIATE_REF_PARAM",
	"edge.enabled":        "EDGE_ENABLED",
	"edge.base_url":       "EDGE_FUNCTION_URL",
	"edge.anon_key":       "EDGE_ANON_KEY",
	"cache.enabled":       "CACHE_ENABLED",
	"redis.enabled":       "REDIS_ENABLED",
	"redis.addr":          "REDIS_ADDR",
	"redis.password":      "REDIS_PASSWORD",
	"rate_limit.enabled":  "RATE_LIMIT_ENABLED",
	"rate_limit.requests": "RATE_LIMIT_REQUESTS",
	"rate_limit.window":   "RATE_LIMIT_WINDOW",
	"cors.allow_origins":  "CORS_ALLOW_ORIGINS",
	"dedup_window":        "DEDUP_WINDOW",
	"log_level":           "LOG_LEVEL",
	"log_dir":             "LOG_DIR",
	"server.port":         "PORT",
}

// LoadConfig 從工作目錄的 .env 與環境變數載入設定
func LoadConfig() (*Config, error) {
	return Load(".env")
}

// Load 載入設定，envFile 不存在時只讀取環境變數
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

// MaskSecret 遮罩金鑰，只顯示前後各 4 個字符
func MaskSecret(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "freshsense")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.max_body_bytes", 15*1024*1024)

	// 聯盟連結設定
	defaults := affiliate.DefaultConfig()
	v.SetDefault("affiliate.tag", defaults.Tag)
	v.SetDefault("affiliate.ref_param", defaults.RefParam)
	v.SetDefault("affiliate.base_url", defaults.BaseURL)
	v.SetDefault("affiliate.fresh_base_url", defaults.FreshBaseURL)
	v.SetDefault("affiliate.product_base_url", defaults.ProductBaseURL)
	v.SetDefault("affiliate.vendor_domain", defaults.VendorDomain)

	// Edge Function 設定
	v.SetDefault("edge.enabled", false)
	v.SetDefault("edge.base_url", "")
	v.SetDefault("edge.anon_key", "")
	v.SetDefault("edge.timeout", "60s")

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_interval", "10m")

	// 點擊追蹤設定
	v.SetDefault("tracking.workers", 2)
	v.SetDefault("tracking.queue_size", 1000)
	v.SetDefault("tracking.record_timeout", "2s")

	// Redis 設定
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "freshsense:affiliate:clicks")
	v.SetDefault("redis.ttl", "0s")

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("rate_limit.burst", 20)

	// 圖片設定
	v.SetDefault("image.max_size_bytes", 10*1024*1024) // 10MB
	v.SetDefault("image.max_width", image.DefaultMaxWidth)
	v.SetDefault("image.max_height", image.DefaultMaxHeight)
	v.SetDefault("image.quality", image.DefaultQuality)
	v.SetDefault("image.max_encoded_bytes", image.DefaultMaxEncodedBytes)

	v.SetDefault("cors.allow_origins", []string{"*"})
	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_dir", "")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", config.Server.Port)
	}

	if err := config.LinkerConfig().Validate(); err != nil {
		return fmt.Errorf("affiliate: %w", err)
	}

	if config.Edge.Enabled {
		u, err := url.Parse(config.Edge.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("edge base url %q must be an absolute URL", config.Edge.BaseURL)
		}
	}

	// 驗證快取設定
	if config.Cache.Enabled {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	if config.Tracking.Workers <= 0 {
		return fmt.Errorf("invalid tracking workers")
	}
	if config.Tracking.QueueSize <= 0 {
		return fmt.Errorf("invalid tracking queue size")
	}

	if config.Redis.Enabled && config.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required when redis is enabled")
	}

	if config.RateLimit.Enabled && (config.RateLimit.Requests <= 0 || config.RateLimit.Window <= 0) {
		return fmt.Errorf("invalid rate limit")
	}

	if len(config.CORS.AllowOrigins) == 0 {
		return fmt.Errorf("at least one cors origin is required")
	}

	if config.Image.MaxSizeBytes <= 0 {
		return fmt.Errorf("invalid image max size")
	}
	if config.Image.MaxWidth <= 0 || config.Image.MaxHeight <= 0 {
		return fmt.Errorf("invalid image max dimensions")
	}
	if config.Image.Quality < 1 || config.Image.Quality > 100 {
		return fmt.Errorf("image quality must be between 1 and 100")
	}
	if config.Image.MaxEncodedBytes <= 0 {
		return fmt.Errorf("invalid image max encoded size")
	}
	return nil
}

// LinkerConfig 轉換為聯盟連結產生器設定
func (c *Config) LinkerConfig() affiliate.Config {
	return affiliate.Config{
		Tag:            c.Affiliate.Tag,
		RefParam:       c.Affiliate.RefParam,
		BaseURL:        c.Affiliate.BaseURL,
		FreshBaseURL:   c.Affiliate.FreshBaseURL,
		ProductBaseURL: c.Affiliate.ProductBaseURL,
		VendorDomain:   c.Affiliate.VendorDomain,
	}
}

// CacheManagerConfig 轉換為緩存設定
func (c *Config) CacheManagerConfig() cache.Config {
	return cache.Config{
		Enabled:         c.Cache.Enabled,
		MaxSize:         c.Cache.MaxSize,
		TTL:             c.Cache.TTL,
		CleanupInterval: c.Cache.CleanupInterval,
	}
}

// TrackerConfig 轉換為點擊追蹤器設定
func (c *Config) TrackerConfig() affiliate.TrackerConfig {
	return affiliate.TrackerConfig{
		Workers:       c.Tracking.Workers,
		QueueSize:     c.Tracking.QueueSize,
		RecordTimeout: c.Tracking.RecordTimeout,
	}
}

// RedisOptions 轉換為 Redis 計數設定
func (c *Config) RedisOptions() affiliate.RedisOptions {
	return affiliate.RedisOptions{
		Addr:      c.Redis.Addr,
		Password:  c.Redis.Password,
		DB:        c.Redis.DB,
		KeyPrefix: c.Redis.KeyPrefix,
		TTL:       c.Redis.TTL,
	}
}

// EdgeOptions 轉換為 Edge Function 客戶端設定
func (c *Config) EdgeOptions() freshness.EdgeOptions {
	return freshness.EdgeOptions{
		BaseURL: c.Edge.BaseURL,
		AnonKey: c.Edge.AnonKey,
		Timeout: c.Edge.Timeout,
	}
}

// CompressOptions 轉換為上傳圖片壓縮設定
func (c *Config) CompressOptions() image.CompressOptions {
	return image.CompressOptions{
		MaxWidth:        c.Image.MaxWidth,
		MaxHeight:       c.Image.MaxHeight,
		Quality:         c.Image.Quality,
		MaxEncodedBytes: c.Image.MaxEncodedBytes,
	}
}
