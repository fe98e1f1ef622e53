// Package cache 提供故事与音频结果的缓存：进程内 LRU 或共享的 Redis。
package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/zhouzirui/dpp-browser/backend/internal/config"
)

// ErrMiss 表示键不存在或已过期。
var ErrMiss = errors.New("cache miss")

// Cache 是字节值缓存。
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Clear(ctx context.Context) error
}

// NewRedisClient 按配置创建客户端并检查连通性。
func NewRedisClient(ctx context.Context, cfg config.CacheConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}
	return rdb, nil
}

// Build 按配置构造一个命名空间缓存。redis 后端需要传入 rdb。
func Build(cfg config.CacheConfig, rdb *redis.Client, namespace string) (Cache, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemory(cfg.MaxEntries, cfg.TTL), nil
	case "redis":
		if rdb == nil {
			return nil, errors.New("redis cache backend requires a client")
		}
		return NewRedis(rdb, "dpp:"+namespace+":", cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
