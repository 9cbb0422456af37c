// Package cache 实现推荐结果与解释文本的 cache-aside 读写。
// 缓存只是加速手段：任何读写错误都视为未命中/跳过，绝不影响请求结果。
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/rushteam/shopsense/core"
	"github.com/rushteam/shopsense/metrics"
)

// 默认 TTL
const (
	DefaultRecommendTTL = 5 * time.Minute
	DefaultExplainTTL   = 24 * time.Hour
	DefaultTimeout      = time.Second
)

// Cache 是基于 core.Store 的 JSON 缓存。Store 为 nil 时所有操作都是空操作。
type Cache struct {
	Store        core.Store
	RecommendTTL time.Duration
	ExplainTTL   time.Duration
	// Timeout 单次读写的超时
	Timeout time.Duration
	Logger  zerolog.Logger
}

// New 使用默认 TTL 创建 Cache。
func New(store core.Store, logger zerolog.Logger) *Cache {
	return &Cache{
		Store:        store,
		RecommendTTL: DefaultRecommendTTL,
		ExplainTTL:   DefaultExplainTTL,
		Timeout:      DefaultTimeout,
		Logger:       logger,
	}
}

func (c *Cache) enabled() bool { return c != nil && c.Store != nil }

func (c *Cache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.Timeout)
}

// Get 读取 key 并解码到 out，命中返回 true。
func (c *Cache) Get(ctx context.Context, key string, out any) bool {
	if !c.enabled() {
		return false
	}
	class := keyClass(key)
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	data, err := c.Store.Get(ctx, key)
	if err != nil {
		if core.IsStoreNotFound(err) {
			metrics.CacheLookups.WithLabelValues(class, "miss").Inc()
		} else {
			metrics.CacheLookups.WithLabelValues(class, "error").Inc()
			c.Logger.Warn().Err(err).Str("key", key).Msg("cache get failed")
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		metrics.CacheLookups.WithLabelValues(class, "error").Inc()
		c.Logger.Warn().Err(err).Str("key", key).Msg("cache value undecodable")
		return false
	}
	metrics.CacheLookups.WithLabelValues(class, "hit").Inc()
	return true
}

// Set 编码 value 并写入，失败只记录日志。
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if !c.enabled() {
		return
	}
	class := keyClass(key)
	data, err := json.Marshal(value)
	if err != nil {
		metrics.CacheWriteErrors.WithLabelValues(class).Inc()
		c.Logger.Warn().Err(err).Str("key", key).Msg("cache value unencodable")
		return
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	if err := c.Store.Set(ctx, key, data, ttl); err != nil {
		metrics.CacheWriteErrors.WithLabelValues(class).Inc()
		c.Logger.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

// SetRecommend 以推荐 TTL 写入。
func (c *Cache) SetRecommend(ctx context.Context, key string, value any) {
	if c == nil {
		return
	}
	c.Set(ctx, key, value, c.RecommendTTL)
}

// SetExplain 以解释 TTL 写入。
func (c *Cache) SetExplain(ctx context.Context, key string, value any) {
	if c == nil {
		return
	}
	c.Set(ctx, key, value, c.ExplainTTL)
}

func keyClass(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return "other"
}
