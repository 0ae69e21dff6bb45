package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ontobot/sparql-selfquery/internal/selfquery"
)

// schemaCacheKey is the single Redis key this cache writes to; one Engine
// deployment shares one schema context across all its replicas.
const schemaCacheKey = "selfquery:schema_context"

// RedisSchemaCache backs SchemaCache with a shared Redis key so a fleet of
// replicas fetches the schema once instead of once per process. Get/Set
// failures are logged and treated as a cache miss rather than propagated,
// since schema context is an optimization, not a correctness requirement.
type RedisSchemaCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSchemaCache(addr string, ttl time.Duration) *RedisSchemaCache {
	return &RedisSchemaCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

func (c *RedisSchemaCache) Get(ctx context.Context) (*selfquery.SchemaContext, bool) {
	raw, err := c.client.Get(ctx, schemaCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("[SCHEMA-CACHE] redis get failed", "error", err)
		}
		return nil, false
	}

	var sc selfquery.SchemaContext
	if err := json.Unmarshal(raw, &sc); err != nil {
		slog.Warn("[SCHEMA-CACHE] redis value corrupt", "error", err)
		return nil, false
	}
	return &sc, true
}

func (c *RedisSchemaCache) Set(ctx context.Context, sc *selfquery.SchemaContext) {
	buf, err := json.Marshal(sc)
	if err != nil {
		slog.Warn("[SCHEMA-CACHE] marshal failed", "error", err)
		return
	}
	if err := c.client.Set(ctx, schemaCacheKey, buf, c.ttl).Err(); err != nil {
		slog.Warn("[SCHEMA-CACHE] redis set failed", "error", err)
	}
}

func (c *RedisSchemaCache) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("cache.RedisSchemaCache.Close: %w", err)
	}
	return nil
}
