package cache

import (
	"context"
	"testing"
	"time"

	"github.com/ontobot/sparql-selfquery/internal/selfquery"
)

func TestMemorySchemaCacheMissBeforeSet(t *testing.T) {
	c := NewMemorySchemaCache(time.Minute)
	if _, ok := c.Get(context.Background()); ok {
		t.Fatal("expected cache miss before Set")
	}
}

func TestMemorySchemaCacheHitAfterSet(t *testing.T) {
	c := NewMemorySchemaCache(time.Minute)
	sc := &selfquery.SchemaContext{MetadataJSON: "{}"}
	c.Set(context.Background(), sc)

	got, ok := c.Get(context.Background())
	if !ok {
		t.Fatal("expected cache hit after Set")
	}
	if got.MetadataJSON != "{}" {
		t.Errorf("MetadataJSON = %q", got.MetadataJSON)
	}
}

func TestMemorySchemaCacheExpiresAfterTTL(t *testing.T) {
	c := NewMemorySchemaCache(1 * time.Millisecond)
	c.Set(context.Background(), &selfquery.SchemaContext{MetadataJSON: "{}"})
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get(context.Background()); ok {
		t.Fatal("expected cache miss after TTL expiry")
	}
}

func TestMemorySchemaCacheZeroTTLNeverExpires(t *testing.T) {
	c := NewMemorySchemaCache(0)
	c.Set(context.Background(), &selfquery.SchemaContext{MetadataJSON: "{}"})
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get(context.Background()); !ok {
		t.Fatal("expected cache hit with zero TTL")
	}
}
