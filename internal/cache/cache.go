package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/liamashdown/linetracker/internal/aggregation"
	"github.com/liamashdown/linetracker/internal/config"
	"github.com/liamashdown/linetracker/internal/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "linetracker"

// Cache is a JSON read-through cache in Redis. A nil *Cache is valid and
// caches nothing.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
	log *logrus.Logger
}

// Connect parses cfg.RedisURL and pings the server. It returns a nil Cache
// when no URL is configured.
func Connect(cfg *config.Config, log *logrus.Logger) (*Cache, error) {
	if cfg.RedisURL == "" {
		log.Info("Redis not configured, query cache disabled")
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opt.ReadTimeout == 0 {
		opt.ReadTimeout = 2 * time.Second
	}
	if opt.WriteTimeout == 0 {
		opt.WriteTimeout = 2 * time.Second
	}
	if opt.DialTimeout == 0 {
		opt.DialTimeout = 5 * time.Second
	}

	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	log.WithField("ttl", cfg.CacheTTL.String()).Info("Connected to Redis")
	return New(rdb, cfg.CacheTTL, log), nil
}

// New wraps an existing client
func New(rdb *redis.Client, ttl time.Duration, log *logrus.Logger) *Cache {
	return &Cache{rdb: rdb, ttl: ttl, log: log}
}

// Close closes the underlying client
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}

// Key joins parts into a namespaced cache key.
func Key(parts ...string) string {
	return keyPrefix + ":" + strings.Join(parts, ":")
}

// GetOrLoad returns the cached value for key, or calls load and caches its
// result. Redis failures are logged and fall through to load.
func GetOrLoad[T any](ctx context.Context, c *Cache, key string, load func(context.Context) (T, error)) (T, error) {
	if c == nil {
		return load(ctx)
	}

	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached T
		jsonErr := json.Unmarshal(data, &cached)
		if jsonErr == nil {
			metrics.RecordCacheLookup("hit")
			return cached, nil
		}
		metrics.RecordCacheLookup("error")
		c.log.WithError(jsonErr).WithField("key", key).Warn("Discarding undecodable cache entry")
	case errors.Is(err, redis.Nil):
		metrics.RecordCacheLookup("miss")
	default:
		metrics.RecordCacheLookup("error")
		c.log.WithError(err).WithField("key", key).Warn("Cache read failed")
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("Failed to encode cache entry")
		return value, nil
	}
	if err := c.rdb.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("Cache write failed")
	}

	return value, nil
}

// Querier is the read side of the aggregation engine.
type Querier interface {
	Games(ctx context.Context) ([]aggregation.Game, error)
	LineMovements(ctx context.Context, q aggregation.Query) ([]aggregation.LineMovement, error)
	GameSummary(ctx context.Context, q aggregation.Query) ([]aggregation.GameSummary, error)
}

// CachedQuerier fronts a Querier with the cache, keyed by query parameters.
type CachedQuerier struct {
	next  Querier
	cache *Cache
}

// NewCachedQuerier wraps next. A nil cache passes every call through.
func NewCachedQuerier(next Querier, c *Cache) *CachedQuerier {
	return &CachedQuerier{next: next, cache: c}
}

func (q *CachedQuerier) Games(ctx context.Context) ([]aggregation.Game, error) {
	return GetOrLoad(ctx, q.cache, Key("games"), q.next.Games)
}

func (q *CachedQuerier) LineMovements(ctx context.Context, query aggregation.Query) ([]aggregation.LineMovement, error) {
	return GetOrLoad(ctx, q.cache, queryKey("movements", query), func(ctx context.Context) ([]aggregation.LineMovement, error) {
		return q.next.LineMovements(ctx, query)
	})
}

func (q *CachedQuerier) GameSummary(ctx context.Context, query aggregation.Query) ([]aggregation.GameSummary, error) {
	return GetOrLoad(ctx, q.cache, queryKey("summary", query), func(ctx context.Context) ([]aggregation.GameSummary, error) {
		return q.next.GameSummary(ctx, query)
	})
}

// queryKey is independent of sportsbook order.
func queryKey(kind string, q aggregation.Query) string {
	books := append([]string(nil), q.Sportsbooks...)
	sort.Strings(books)
	return Key(kind, q.EventID, q.Market, strings.Join(books, ","))
}
