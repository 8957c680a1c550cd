package geo

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mbolis/santas-scanner/log"
)

const cacheKeyPrefix = "geo:country:"

// RedisCache keeps resolved country codes in Redis with a TTL.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(addr, password string, db int, ttl time.Duration) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) Ping(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }

func (c *RedisCache) Get(ctx context.Context, ip string) (string, bool) {
	code, err := c.rdb.Get(ctx, cacheKeyPrefix+ip).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Debugf("geo.cache.get %s: %s", ip, err)
		}
		return "", false
	}
	return code, true
}

func (c *RedisCache) Set(ctx context.Context, ip, code string) {
	if err := c.rdb.Set(ctx, cacheKeyPrefix+ip, code, c.ttl).Err(); err != nil {
		log.Debugf("geo.cache.set %s: %s", ip, err)
	}
}

func (c *RedisCache) Close() error { return c.rdb.Close() }
