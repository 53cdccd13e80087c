package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iabetor/newsroom/internal/logger"
	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "newsroom:doc:"

// Cached 是放在任意 Store 前面的 Redis 读缓存。
// Redis 不可用时直接读写底层存储。
type Cached struct {
	next   Store
	client *redis.Client
	ttl    time.Duration
}

// NewCached 创建读缓存，写入后删除对应缓存键。
func NewCached(next Store, client *redis.Client, ttl time.Duration) *Cached {
	return &Cached{next: next, client: client, ttl: ttl}
}

// DialRedis 连接 Redis 并做一次 PING。
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("连接 Redis %s 失败: %w", addr, err)
	}
	return client, nil
}

// Get 实现 Store。
func (c *Cached) Get(ctx context.Context, path string) ([]byte, error) {
	key := cacheKeyPrefix + path

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, redis.Nil) {
		logger.Warnf("[store] 读取缓存 %s 失败: %v", key, err)
	}

	data, err = c.next.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logger.Warnf("[store] 写入缓存 %s 失败: %v", key, err)
	}
	return data, nil
}

// Put 实现 Store。
func (c *Cached) Put(ctx context.Context, path string, data []byte, message string) error {
	if err := c.next.Put(ctx, path, data, message); err != nil {
		return err
	}
	key := cacheKeyPrefix + path
	if err := c.client.Del(ctx, key).Err(); err != nil {
		logger.Warnf("[store] 删除缓存 %s 失败: %v", key, err)
	}
	return nil
}

// Unwrap 返回底层存储。
func (c *Cached) Unwrap() Store {
	return c.next
}
