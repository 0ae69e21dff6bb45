// Package cache provides SchemaCache implementations for
// internal/selfquery: an in-memory default and an optional Redis-backed
// one for multi-replica deployments. Both expire entries after a TTL; the
// in-memory one is guarded by an RWMutex, the Redis one relies on Redis
// for concurrent access.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/ontobot/sparql-selfquery/internal/selfquery"
)

// MemorySchemaCache is a single-entry, write-once-read-many cache: one
// SchemaContext per Engine, refreshed after ttl elapses. It is safe for
// concurrent Get/Set from multiple in-flight Process calls.
type MemorySchemaCache struct {
	mu      sync.RWMutex
	value   *selfquery.SchemaContext
	setAt   time.Time
	ttl     time.Duration
}

// NewMemorySchemaCache returns a cache that treats entries as valid for
// ttl. A ttl of zero means entries never expire once set.
func NewMemorySchemaCache(ttl time.Duration) *MemorySchemaCache {
	return &MemorySchemaCache{ttl: ttl}
}

func (c *MemorySchemaCache) Get(_ context.Context) (*selfquery.SchemaContext, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.value == nil {
		return nil, false
	}
	if c.ttl > 0 && time.Since(c.setAt) > c.ttl {
		return nil, false
	}
	return c.value, true
}

func (c *MemorySchemaCache) Set(_ context.Context, sc *selfquery.SchemaContext) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value = sc
	c.setAt = time.Now()
}
