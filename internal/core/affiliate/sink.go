package affiliate

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// MemorySink 記憶體內的點擊計數，Redis 未啟用時使用
type MemorySink struct {
	mu           sync.RWMutex
	total        int64
	byLinkType   map[string]int64
	byIngredient map[string]int64
}

// NewMemorySink 創建記憶體計數器
func NewMemorySink() *MemorySink {
	return &MemorySink{
		byLinkType:   make(map[string]int64),
		byIngredient: make(map[string]int64),
	}
}

// RecordClick 實作 ClickSink
func (s *MemorySink) RecordClick(_ context.Context, event ClickEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	s.byLinkType[string(event.LinkType)]++
	s.byIngredient[event.Ingredient]++
	return nil
}

// Stats 實作 ClickSink
func (s *MemorySink) Stats(_ context.Context) (*ClickStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &ClickStats{
		Total:        s.total,
		ByLinkType:   make(map[string]int64, len(s.byLinkType)),
		ByIngredient: make(map[string]int64, len(s.byIngredient)),
	}
	for k, v := range s.byLinkType {
		stats.ByLinkType[k] = v
	}
	for k, v := range s.byIngredient {
		stats.ByIngredient[k] = v
	}
	return stats, nil
}

// redisCounter RedisSink 需要的命令子集，*redis.Client 即滿足
type redisCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	HIncrBy(ctx context.Context, key, field string, incr int64) *redis.IntCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	HGetAll(ctx context.Context, key string) *redis.StringStringMapCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisOptions Redis 點擊計數設定
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// RedisSink 以 Redis hash 累計點擊
type RedisSink struct {
	client redisCounter
	prefix string
	ttl    time.Duration
	closer func() error
}

// NewRedisSink 連線 Redis 並建立計數器
func NewRedisSink(ctx context.Context, opts RedisOptions) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	// 測試連接
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	sink := newRedisSink(client, opts.KeyPrefix, opts.TTL)
	sink.closer = client.Close
	return sink, nil
}

func newRedisSink(client redisCounter, prefix string, ttl time.Duration) *RedisSink {
	if prefix == "" {
		prefix = "freshsense:affiliate:clicks"
	}
	return &RedisSink{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisSink) key(name string) string {
	return s.prefix + ":" + name
}

// RecordClick 實作 ClickSink
func (s *RedisSink) RecordClick(ctx context.Context, event ClickEvent) error {
	if err := s.client.Incr(ctx, s.key("total")).Err(); err != nil {
		return fmt.Errorf("failed to increment total clicks: %w", err)
	}
	if err := s.client.HIncrBy(ctx, s.key("by_link_type"), string(event.LinkType), 1).Err(); err != nil {
		return fmt.Errorf("failed to increment link type clicks: %w", err)
	}
	if err := s.client.HIncrBy(ctx, s.key("by_ingredient"), event.Ingredient, 1).Err(); err != nil {
		return fmt.Errorf("failed to increment ingredient clicks: %w", err)
	}

	if s.ttl > 0 {
		for _, name := range []string{"total", "by_link_type", "by_ingredient"} {
			if err := s.client.Expire(ctx, s.key(name), s.ttl).Err(); err != nil {
				return fmt.Errorf("failed to set click counter ttl: %w", err)
			}
		}
	}
	return nil
}

// Stats 實作 ClickSink
func (s *RedisSink) Stats(ctx context.Context) (*ClickStats, error) {
	stats := &ClickStats{}

	total, err := s.client.Get(ctx, s.key("total")).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to read total clicks: %w", err)
	}
	stats.Total = total

	if stats.ByLinkType, err = s.readHash(ctx, "by_link_type"); err != nil {
		return nil, err
	}
	if stats.ByIngredient, err = s.readHash(ctx, "by_ingredient"); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *RedisSink) readHash(ctx context.Context, name string) (map[string]int64, error) {
	raw, err := s.client.HGetAll(ctx, s.key(name)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	counts := make(map[string]int64, len(raw))
	for field, value := range raw {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid counter %s[%s]=%q: %w", name, field, value, err)
		}
		counts[field] = n
	}
	return counts, nil
}

// Close 關閉 Redis 連線
func (s *RedisSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
