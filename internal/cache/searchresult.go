package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultSearchResultCacheSize and DefaultSearchResultTTL are the default
// capacity/expiry for the search-result tier.
const (
	DefaultSearchResultCacheSize = 1_000
	DefaultSearchResultTTL       = 5 * time.Minute
)

// ResultCache is the capability the ranking engine depends on; both the
// in-process and Redis-backed implementations satisfy it so ranking code
// never branches on backend.
type ResultCache interface {
	Get(ctx context.Context, queryText string, limit int, filtersHash string) ([]byte, bool)
	Put(ctx context.Context, queryText string, limit int, filtersHash string, payload []byte)
	Stats() Stats
}

func resultKey(queryText string, limit int, filtersHash string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%d\x00%s", queryText, limit, filtersHash)))
	return hex.EncodeToString(h[:])
}

// InProcessResultCache is the default search-result cache: bounded LRU with
// a default 5-minute TTL.
type InProcessResultCache struct {
	cache *TTLCache[string, []byte]
}

func NewInProcessResultCache(capacity int, ttl time.Duration) *InProcessResultCache {
	if capacity <= 0 {
		capacity = DefaultSearchResultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultSearchResultTTL
	}
	return &InProcessResultCache{cache: NewTTLCache[string, []byte](capacity, ttl)}
}

func (c *InProcessResultCache) Get(_ context.Context, queryText string, limit int, filtersHash string) ([]byte, bool) {
	return c.cache.Get(resultKey(queryText, limit, filtersHash))
}

func (c *InProcessResultCache) Put(_ context.Context, queryText string, limit int, filtersHash string, payload []byte) {
	c.cache.Put(resultKey(queryText, limit, filtersHash), payload)
}

func (c *InProcessResultCache) Stats() Stats { return c.cache.Stats() }

var _ ResultCache = (*InProcessResultCache)(nil)

// RedisResultCache backs the search-result tier with Redis, letting a
// seeding process and an MCP server share cached results across processes.
// No command constructs it; serve wires InProcessResultCache.
type RedisResultCache struct {
	client *redis.Client
	ttl    time.Duration
	hits   *TTLCache[string, []byte] // reused purely for its hit/miss counters
}

func NewRedisResultCache(client *redis.Client, ttl time.Duration) *RedisResultCache {
	if ttl <= 0 {
		ttl = DefaultSearchResultTTL
	}
	return &RedisResultCache{client: client, ttl: ttl, hits: NewTTLCache[string, []byte](1, 0)}
}

func (c *RedisResultCache) Get(ctx context.Context, queryText string, limit int, filtersHash string) ([]byte, bool) {
	key := "conceptrag:search:" + resultKey(queryText, limit, filtersHash)
	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		c.hits.misses.Add(1)
		return nil, false
	}
	c.hits.hits.Add(1)
	return payload, true
}

func (c *RedisResultCache) Put(ctx context.Context, queryText string, limit int, filtersHash string, payload []byte) {
	key := "conceptrag:search:" + resultKey(queryText, limit, filtersHash)
	_ = c.client.Set(ctx, key, payload, c.ttl).Err()
}

func (c *RedisResultCache) Stats() Stats { return c.hits.Stats() }

var _ ResultCache = (*RedisResultCache)(nil)

// EncodeResults is a small helper so callers don't each reinvent a JSON
// envelope for the cached payload.
func EncodeResults(v any) ([]byte, error) { return json.Marshal(v) }

func DecodeResults(data []byte, v any) error { return json.Unmarshal(data, v) }
