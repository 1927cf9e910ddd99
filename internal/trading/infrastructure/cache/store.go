package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/akarimov/spimextrading/pkg/logger"
	"github.com/akarimov/spimextrading/pkg/metrics"
)

// Backend 缓存后端的最小读写能力，由 pkg/cache.RedisCache 实现
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// Store 容错的查询缓存适配器
// 缓存只是性能优化：任何传输或反序列化错误都按未命中处理，写入失败只记日志，
// 均不会上抛影响请求本身。backend 为 nil 时退化为永远未命中。
type Store struct {
	backend Backend
	metrics *metrics.Metrics
}

// NewStore 创建缓存适配器
func NewStore(backend Backend, m *metrics.Metrics) *Store {
	return &Store{
		backend: backend,
		metrics: m,
	}
}

// Get 按键读取并反序列化到 dest，返回是否命中
func (s *Store) Get(ctx context.Context, key string, dest any) bool {
	if s == nil || s.backend == nil {
		return false
	}

	raw, err := s.backend.Get(ctx, key)
	if err != nil {
		logger.Warn(ctx, "Cache read failed, treating as miss",
			"key", key,
			"error", err,
		)
		s.countError()
		return false
	}
	if raw == "" {
		s.countMiss()
		return false
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		logger.Warn(ctx, "Corrupted cache entry, treating as miss",
			"key", key,
			"error", err,
		)
		s.countError()
		return false
	}

	s.countHit()
	return true
}

// Set 序列化 value 并按给定 TTL 写入，失败只记日志
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if s == nil || s.backend == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		logger.Warn(ctx, "Cache value serialization failed",
			"key", key,
			"error", err,
		)
		s.countError()
		return
	}

	if err := s.backend.Set(ctx, key, string(data), ttl); err != nil {
		logger.Warn(ctx, "Cache write failed",
			"key", key,
			"error", err,
		)
		s.countError()
	}
}

func (s *Store) countHit() {
	if s.metrics != nil {
		s.metrics.CacheHitsTotal.Inc()
	}
}

func (s *Store) countMiss() {
	if s.metrics != nil {
		s.metrics.CacheMissesTotal.Inc()
	}
}

func (s *Store) countError() {
	if s.metrics != nil {
		s.metrics.CacheErrorsTotal.Inc()
	}
}
