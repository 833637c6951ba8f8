package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/snapframe/kiosk-analytics/internal/config"
)

const reportKeyPrefix = "report:settlement:"

// ReportCache holds serialized settlement reports. Settlement queries are
// read-heavy and only drift when a refund lands, so a short TTL plus
// refund-time invalidation keeps them cheap.
type ReportCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	InvalidateAll(ctx context.Context) error
}

type redisReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopReportCache struct{}

// NewReportCache returns a redis-backed cache, or a noop cache when caching
// is disabled.
func NewReportCache(cfg config.CacheConfig) (ReportCache, error) {
	if !cfg.Enabled {
		return &noopReportCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisReportCache{client: client, ttl: ttl}, nil
}

func (c *redisReportCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, reportKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *redisReportCache) Set(ctx context.Context, key string, value []byte) error {
	return c.client.Set(ctx, reportKeyPrefix+key, value, c.ttl).Err()
}

func (c *redisReportCache) InvalidateAll(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, reportKeyPrefix+"*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (noopReportCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (noopReportCache) Set(context.Context, string, []byte) error        { return nil }
func (noopReportCache) InvalidateAll(context.Context) error              { return nil }
