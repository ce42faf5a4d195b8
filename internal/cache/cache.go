package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PoLsss/ML-lightrag-core/internal/metrics"
	"github.com/redis/go-redis/v9"
)

const DefaultPrefix = "lightrag:llm_cache:"

// ResponseCache stores LLM completions keyed by a hash of their inputs.
type ResponseCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Clear removes every cached entry and reports how many were removed.
	Clear(ctx context.Context) (int64, error)
	Enabled() bool
}

// Key hashes the parts that determine a completion into a stable cache key.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

type RedisResponseCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisResponseCache(client *redis.Client, prefix string, ttl time.Duration) *RedisResponseCache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisResponseCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *RedisResponseCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return "", false, nil
	}
	if err != nil {
		metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
		return "", false, fmt.Errorf("cache get: %w", err)
	}
	metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
	return value, true, nil
}

func (c *RedisResponseCache) Set(ctx context.Context, key, value string) error {
	if err := c.client.Set(ctx, c.prefix+key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *RedisResponseCache) Clear(ctx context.Context) (int64, error) {
	var cleared int64
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 500).Iterator()

	batch := make([]string, 0, 500)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := c.client.Del(ctx, batch...).Result()
		if err != nil {
			return err
		}
		cleared += n
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return cleared, fmt.Errorf("cache clear: %w", err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return cleared, fmt.Errorf("cache scan: %w", err)
	}
	if err := flush(); err != nil {
		return cleared, fmt.Errorf("cache clear: %w", err)
	}
	return cleared, nil
}

func (c *RedisResponseCache) Enabled() bool { return true }

func (c *RedisResponseCache) String() string {
	return "redis(" + strings.TrimSuffix(c.prefix, ":") + ")"
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (NopCache) Set(context.Context, string, string) error         { return nil }
func (NopCache) Clear(context.Context) (int64, error)              { return 0, nil }
func (NopCache) Enabled() bool                                     { return false }
