package affiliate

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"freshsense/internal/pkg/common"

	"go.uber.org/zap"
)

// ClickEvent 聯盟連結點擊事件
type ClickEvent struct {
	ID         string    `json:"id"`
	Ingredient string    `json:"ingredient"`
	LinkType   LinkType  `json:"link_type"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ClickStats 點擊統計
type ClickStats struct {
	Total        int64            `json:"total"`
	ByLinkType   map[string]int64 `json:"by_link_type"`
	ByIngredient map[string]int64 `json:"by_ingredient"`
}

// ClickSink 點擊事件的儲存端
type ClickSink interface {
	RecordClick(ctx context.Context, event ClickEvent) error
	Stats(ctx context.Context) (*ClickStats, error)
}

// TrackerConfig 追蹤器設定
type TrackerConfig struct {
	Workers       int
	QueueSize     int
	RecordTimeout time.Duration
}

// TrackerStatus 追蹤隊列狀態
type TrackerStatus struct {
	QueueLength    int   `json:"queue_length"`
	ProcessedCount int64 `json:"processed_count"`
	DroppedCount   int64 `json:"dropped_count"`
	FailedCount    int64 `json:"failed_count"`
	MaxQueueSize   int   `json:"max_queue_size"`
	Workers        int   `json:"workers"`
}

// Tracker 以有界隊列非同步記錄點擊，呼叫端永遠不會收到錯誤
type Tracker struct {
	sink   ClickSink
	config TrackerConfig
	queue  chan ClickEvent
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	now    func() time.Time
	newID  func() string

	processed int64
	dropped   int64
	failed    int64
}

// NewTracker 創建追蹤器並啟動 worker
func NewTracker(sink ClickSink, cfg TrackerConfig) *Tracker {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.RecordTimeout <= 0 {
		cfg.RecordTimeout = 2 * time.Second
	}

	t := &Tracker{
		sink:   sink,
		config: cfg,
		queue:  make(chan ClickEvent, cfg.QueueSize),
		now:    time.Now,
		newID:  common.GenerateUUID,
	}

	for i := 0; i < cfg.Workers; i++ {
		t.wg.Add(1)
		go t.worker()
	}

	common.LogInfo("點擊追蹤器已初始化",
		zap.Int("workers", cfg.Workers),
		zap.Int("max_queue_size", cfg.QueueSize),
	)
	return t
}

// TrackAffiliateClick 記錄一次點擊，隊列已滿或已關閉時僅記錄日誌
func (t *Tracker) TrackAffiliateClick(ingredient string, linkType LinkType) {
	event := ClickEvent{
		ID:         t.newID(),
		Ingredient: SanitizeIngredientName(ingredient),
		LinkType:   linkType,
		OccurredAt: t.now(),
	}
	common.LogAffiliateEvent("Affiliate link clicked", event.Ingredient, string(linkType))

	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		atomic.AddInt64(&t.dropped, 1)
		common.LogWarn("Click tracker closed, event dropped", zap.String("event_id", event.ID))
		return
	}

	select {
	case t.queue <- event:
	default:
		atomic.AddInt64(&t.dropped, 1)
		common.LogWarn("Click queue full, event dropped",
			zap.String("event_id", event.ID),
			zap.Int("max_queue_size", t.config.QueueSize),
		)
	}
}

func (t *Tracker) worker() {
	defer t.wg.Done()
	for event := range t.queue {
		t.record(event)
	}
}

func (t *Tracker) record(event ClickEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), t.config.RecordTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&t.failed, 1)
			common.LogError("Click sink panicked", zap.Any("error", r), zap.String("event_id", event.ID))
		}
	}()

	if err := t.sink.RecordClick(ctx, event); err != nil {
		atomic.AddInt64(&t.failed, 1)
		common.LogError("Failed to record affiliate click",
			zap.Error(err),
			zap.String("event_id", event.ID),
			zap.String("ingredient", event.Ingredient),
		)
		return
	}
	atomic.AddInt64(&t.processed, 1)
}

// Stats 返回儲存端的點擊統計
func (t *Tracker) Stats(ctx context.Context) (*ClickStats, error) {
	return t.sink.Stats(ctx)
}

// Status 返回隊列狀態
func (t *Tracker) Status() TrackerStatus {
	return TrackerStatus{
		QueueLength:    len(t.queue),
		ProcessedCount: atomic.LoadInt64(&t.processed),
		DroppedCount:   atomic.LoadInt64(&t.dropped),
		FailedCount:    atomic.LoadInt64(&t.failed),
		MaxQueueSize:   t.config.QueueSize,
		Workers:        t.config.Workers,
	}
}

// Close 停止接收事件，等待隊列中的事件處理完畢
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	close(t.queue)
	t.mu.Unlock()

	t.wg.Wait()
	common.LogInfo("點擊追蹤器已關閉",
		zap.Int64("processed", atomic.LoadInt64(&t.processed)),
		zap.Int64("dropped", atomic.LoadInt64(&t.dropped)),
	)
}
