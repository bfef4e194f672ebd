package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"freshsense/internal/pkg/common"

	"go.uber.org/zap"
)

// Config 緩存設定
type Config struct {
	Enabled         bool
	MaxSize         int
	TTL             time.Duration
	CleanupInterval time.Duration
}

// Stats 緩存統計信息
type Stats struct {
	Enabled   bool    `json:"enabled"`
	Size      int     `json:"size"`
	MaxSize   int     `json:"max_size"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	Errors    int64   `json:"errors"`
	HitRatio  float64 `json:"hit_ratio"`
}

// Manager 以圖片雜湊為鍵的分析結果緩存
type Manager struct {
	config Config
	mu     sync.Mutex
	store  map[string]cacheEntry
	stats  cacheStats
	now    func() time.Time
	stop   chan struct{}
	once   sync.Once
}

// cacheEntry 緩存條目
type cacheEntry struct {
	value       []byte
	expiresAt   time.Time
	createdAt   time.Time
	lastAccess  time.Time
	accessCount int
}

// cacheStats 緩存統計
type cacheStats struct {
	hits      int64
	misses    int64
	evictions int64
	errors    int64
}

// NewManager 創建新的緩存管理器，停用時所有操作皆為 no-op
func NewManager(cfg Config) *Manager {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 1000
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}

	m := &Manager{
		config: cfg,
		store:  make(map[string]cacheEntry),
		now:    time.Now,
		stop:   make(chan struct{}),
	}

	if !cfg.Enabled {
		common.LogInfo("Cache disabled")
		return m
	}

	// 啟動清理過期緩存的協程
	if cfg.CleanupInterval > 0 {
		go m.startCleanup()
	}

	common.LogInfo("快取管理員已初始化",
		zap.Int("最大容量", cfg.MaxSize),
		zap.Duration("存活時間", cfg.TTL),
		zap.Duration("清理間隔", cfg.CleanupInterval),
	)
	return m
}

// Key 以內容的 SHA-256 生成緩存鍵
func Key(kind, content string) string {
	hash := sha256.Sum256([]byte(content))
	return kind + ":" + hex.EncodeToString(hash[:])
}

// Get 獲取緩存值，未命中或過期時返回 common.ErrCacheMiss
func (m *Manager) Get(_ context.Context, key string) ([]byte, error) {
	if !m.config.Enabled {
		return nil, common.ErrCacheDisabled
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.store[key]
	if !exists {
		m.stats.misses++
		common.LogCacheMiss("analysis")
		return nil, common.ErrCacheMiss
	}

	// 檢查是否過期
	if m.now().After(entry.expiresAt) {
		delete(m.store, key)
		m.stats.evictions++
		m.stats.misses++
		common.LogDebug("快取已過期", zap.String("鍵", key))
		return nil, common.ErrCacheMiss
	}

	// 更新訪問統計
	entry.lastAccess = m.now()
	entry.accessCount++
	m.store[key] = entry
	m.stats.hits++

	common.LogCacheHit("analysis")
	return entry.value, nil
}

// Set 設置緩存值
func (m *Manager) Set(_ context.Context, key string, value []byte) error {
	if !m.config.Enabled {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// 覆寫既有鍵不需要騰出空間
	if _, exists := m.store[key]; !exists && len(m.store) >= m.config.MaxSize {
		// 清理過期項目
		evicted := m.cleanupLocked()
		common.LogDebug("快取清理執行", zap.Int("清理數量", evicted))

		// 如果仍然超過大小限制，執行 LRU 清理
		if len(m.store) >= m.config.MaxSize {
			m.evictLRU()
		}

		if len(m.store) >= m.config.MaxSize {
			m.stats.errors++
			common.LogWarn("快取已滿", zap.Int("目前容量", len(m.store)))
			return common.ErrCacheFull
		}
	}

	now := m.now()
	m.store[key] = cacheEntry{
		value:      append([]byte(nil), value...),
		expiresAt:  now.Add(m.config.TTL),
		createdAt:  now,
		lastAccess: now,
	}

	common.LogDebug("快取已儲存", zap.String("鍵", key))
	return nil
}

// startCleanup 定期清理過期緩存直到 Close
func (m *Manager) startCleanup() {
	ticker := time.NewTicker(m.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			m.cleanupLocked()
			m.mu.Unlock()
		case <-m.stop:
			return
		}
	}
}

// cleanupLocked 清理過期的緩存，呼叫端須持有鎖
func (m *Manager) cleanupLocked() int {
	now := m.now()
	count := 0

	for key, entry := range m.store {
		if now.After(entry.expiresAt) {
			delete(m.store, key)
			count++
			m.stats.evictions++
		}
	}

	if count > 0 {
		common.LogInfo("Cleaned up expired cache entries",
			zap.Int("count", count),
			zap.Int64("total_evictions", m.stats.evictions),
			zap.Int("remaining_size", len(m.store)),
		)
	}
	return count
}

// evictLRU 淘汰訪問次數最少且最久未訪問的項目
func (m *Manager) evictLRU() {
	var oldestKey string
	var oldestAccess time.Time
	var lowestAccessCount int

	for key, entry := range m.store {
		if oldestKey == "" ||
			entry.accessCount < lowestAccessCount ||
			(entry.accessCount == lowestAccessCount && entry.lastAccess.Before(oldestAccess)) {
			oldestKey = key
			oldestAccess = entry.lastAccess
			lowestAccessCount = entry.accessCount
		}
	}

	if oldestKey != "" {
		delete(m.store, oldestKey)
		m.stats.evictions++
		common.LogDebug("快取已淘汰(LRU)", zap.String("鍵", oldestKey))
	}
}

// GetStats 獲取緩存統計信息
func (m *Manager) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Stats{
		Enabled:   m.config.Enabled,
		Size:      len(m.store),
		MaxSize:   m.config.MaxSize,
		Hits:      m.stats.hits,
		Misses:    m.stats.misses,
		Evictions: m.stats.evictions,
		Errors:    m.stats.errors,
	}
	if total := m.stats.hits + m.stats.misses; total > 0 {
		stats.HitRatio = float64(m.stats.hits) / float64(total)
	}
	return stats
}

// Close 停止清理協程並清空緩存
func (m *Manager) Close() error {
	m.once.Do(func() { close(m.stop) })

	m.mu.Lock()
	defer m.mu.Unlock()

	m.store = make(map[string]cacheEntry)
	common.LogInfo("快取管理員已關閉",
		zap.Int64("命中次數", m.stats.hits),
		zap.Int64("未命中次數", m.stats.misses),
		zap.Int64("淘汰次數", m.stats.evictions),
	)
	return nil
}
