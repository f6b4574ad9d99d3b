package cache

import (
	"context"
	"fmt"
	"net"
	"time"

	"restock-sync/internal/config"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	pingTimeout = 5 * time.Second
	scanPage    = 100
)

// RedisCache keeps entries in Redis so several API instances share supply
// snapshots and idempotency records.
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCache picks Redis when USE_CACHE is on and the server answers a ping.
// Any other case degrades to a process-local InMemoryCache.
func NewCache(cfg *config.Config, logger *zap.Logger) Cache {
	if !cfg.UseCache {
		logger.Info("Cache disabled, supply snapshots stay in process memory")
		return NewInMemoryCache()
	}

	opts := redisOptions(cfg)
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unreachable, falling back to in-memory cache",
			zap.String("addr", opts.Addr),
			zap.Error(err),
		)
		_ = client.Close()
		return NewInMemoryCache()
	}

	logger.Info("Redis cache ready", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return NewRedisCache(client, logger)
}

func redisOptions(cfg *config.Config) *redis.Options {
	return &redis.Options{
		Addr:         net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  pingTimeout,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxRetries:   3,
	}
}

func NewRedisCache(client *redis.Client, logger *zap.Logger) *RedisCache {
	return &RedisCache{client: client, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == redis.Nil:
		return nil, ErrCacheMiss
	case err != nil:
		return nil, c.fail("get", key, err)
	}
	return val, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.fail("set", key, c.client.Set(ctx, key, value, ttl).Err())
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.fail("del", key, c.client.Del(ctx, key).Err())
}

func (c *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, c.fail("exists", key, err)
	}
	return n == 1, nil
}

// DeleteByPattern walks the keyspace one SCAN page at a time and unlinks
// each page as it goes.
func (c *RedisCache) DeleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	removed := 0
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, scanPage).Result()
		if err != nil {
			return c.fail("scan", pattern, err)
		}
		if len(keys) > 0 {
			if err := c.client.Unlink(ctx, keys...).Err(); err != nil {
				return c.fail("unlink", pattern, err)
			}
			removed += len(keys)
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	c.logger.Debug("Cache entries invalidated", zap.String("pattern", pattern), zap.Int("count", removed))
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// fail logs a Redis command failure and wraps it with the command name.
// A nil err passes through.
func (c *RedisCache) fail(cmd, key string, err error) error {
	if err == nil {
		return nil
	}
	c.logger.Warn("Redis command failed", zap.String("cmd", cmd), zap.String("key", key), zap.Error(err))
	return fmt.Errorf("redis %s %s: %w", cmd, key, err)
}
