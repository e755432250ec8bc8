package expr

import (
	"context"
	"time"
)

// fakeCache is a minimal in-memory domain.Cache for exercising Compiler's
// backing-cache checkpoint path without a real cache implementation.
type fakeCache struct {
	values map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string][]byte)}
}

func (c *fakeCache) Get(ctx context.Context, tenantID, key string) ([]byte, error) {
	return c.values[tenantID+"/"+key], nil
}

func (c *fakeCache) Set(ctx context.Context, tenantID, key string, value []byte, ttl time.Duration) error {
	c.values[tenantID+"/"+key] = value
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, tenantID, key string) error {
	delete(c.values, tenantID+"/"+key)
	return nil
}

func (c *fakeCache) Ping(ctx context.Context) error { return nil }
func (c *fakeCache) Close() error                   { return nil }
