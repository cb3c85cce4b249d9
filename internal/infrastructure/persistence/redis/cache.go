package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// Cache JSON 值的读穿缓存，同键的并发未命中只加载一次
type Cache struct {
	client *Client
	flight singleflight.Group
}

// NewCache 创建缓存
func NewCache(client *Client) *Cache {
	return &Cache{client: client}
}

// Fetch 返回 key 对应的 JSON。未命中时调用 load 并按 ttl 回填，
// load 返回 nil 时缓存 JSON null，调用方据此区分“不存在”。
func (c *Cache) Fetch(ctx context.Context, key string, ttl time.Duration, load func(ctx context.Context) (any, error)) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "cache.Fetch",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	raw, err := c.client.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return raw, nil
	case !IsNil(err):
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	v, err, shared := c.flight.Do(key, func() (any, error) {
		value, err := load(ctx)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", key, err)
		}
		if err := c.client.rdb.Set(ctx, key, encoded, ttl).Err(); err != nil {
			span.RecordError(err)
		}
		return encoded, nil
	})
	span.SetAttributes(attribute.Bool("cache.shared", shared))
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Evict 删除缓存项
func (c *Cache) Evict(ctx context.Context, keys ...string) error {
	return c.client.del(ctx, keys...)
}
