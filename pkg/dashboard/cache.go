package dashboard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/netmigrate/swmx/pkg/util"
)

// DefaultCacheTTL bounds how stale a cached org listing may get. Repeated
// runs against a large org skip the multi-page bootstrap listings while the
// entry is fresh; creation calls invalidate it.
const DefaultCacheTTL = 10 * time.Minute

// ListingCache caches org-wide policy object listings in redis. Entirely
// optional: a nil cache on the client disables it, and cache failures
// degrade to a direct fetch.
type ListingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewListingCache connects to redis at addr. Returns an error if the server
// is unreachable so a misconfigured cache_addr fails loudly at startup.
func NewListingCache(addr string, ttl time.Duration) (*ListingCache, error) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &ListingCache{client: client, ttl: ttl}, nil
}

// Get loads a cached listing into v. The bool reports a hit.
func (c *ListingCache) Get(ctx context.Context, key string, v interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		util.Debugf("listing cache get %s: %v", key, err)
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, err
	}
	return true, nil
}

// Put stores a listing under key with the cache TTL.
func (c *ListingCache) Put(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		util.Debugf("listing cache put %s: %v", key, err)
	}
}

// Invalidate drops a cached listing after a creation call makes it stale.
func (c *ListingCache) Invalidate(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		util.Debugf("listing cache invalidate %s: %v", key, err)
	}
}

// Close releases the redis connection.
func (c *ListingCache) Close() error {
	return c.client.Close()
}
