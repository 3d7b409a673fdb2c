package toxicity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const cacheKeyPrefix = "toxicity:"

// ErrCacheMiss is returned by a Cache when nothing is stored for a key.
var ErrCacheMiss = errors.New("cache miss")

// Cache stores scoring results keyed by text digest.
type Cache interface {
	Get(ctx context.Context, key string) (Result, error)
	Set(ctx context.Context, key string, res Result, ttl time.Duration) error
}

// CachedScorer memoizes another Scorer. Cache failures never fail scoring.
type CachedScorer struct {
	next  Scorer
	cache Cache
	ttl   time.Duration
	log   *zerolog.Logger
}

// NewCachedScorer wraps next with cache.
func NewCachedScorer(next Scorer, cache Cache, ttl time.Duration, logger *zerolog.Logger) *CachedScorer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &CachedScorer{next: next, cache: cache, ttl: ttl, log: logger}
}

// Score implements Scorer.
func (c *CachedScorer) Score(ctx context.Context, text string) (Result, error) {
	key := CacheKey(text)

	res, err := c.cache.Get(ctx, key)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		c.log.Warn().Err(err).Msg("toxicity cache read failed")
	}

	res, err = c.next.Score(ctx, text)
	if err != nil {
		return Result{}, err
	}
	if err := c.cache.Set(ctx, key, res, c.ttl); err != nil {
		c.log.Warn().Err(err).Msg("toxicity cache write failed")
	}
	return res, nil
}

// CacheKey derives the cache key for text.
func CacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

// RedisCache is a Cache backed by Redis string keys with expiry.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to redisURL and verifies the connection.
func NewRedisCache(ctx context.Context, redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisCache{client: client}, nil
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) (Result, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Result{}, ErrCacheMiss
	}
	if err != nil {
		return Result{}, err
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return Result{}, fmt.Errorf("decode cached result: %w", err)
	}
	return res, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, res Result, ttl time.Duration) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
