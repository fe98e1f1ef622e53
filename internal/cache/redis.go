package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis 把条目存入 Redis，键统一加前缀，便于按命名空间清理。
type Redis struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis 创建 Redis 缓存。ttl<=0 表示不过期。
func NewRedis(rdb *redis.Client, prefix string, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	ttl := r.ttl
	if ttl < 0 {
		ttl = 0
	}
	return r.rdb.Set(ctx, r.prefix+key, value, ttl).Err()
}

// Clear 用 SCAN 遍历前缀下的键并分批删除。
func (r *Redis) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, r.prefix+"*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
