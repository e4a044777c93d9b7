package engine

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultCacheTTL is how long a fetched payload is served without
// asking the API whether it changed.
const DefaultCacheTTL = time.Minute

// LoadResult is what a Loader hands back. NotModified means the
// upstream confirmed the entry is unchanged; the cache then keeps the
// old payload and token and only refreshes the capture time. Otherwise
// Payload and Token replace the entry.
type LoadResult[V any] struct {
	NotModified bool
	Payload     V
	Token       string // revalidation token (ETag), empty when none
}

// Loader fetches a payload. token carries the stored revalidation token
// for a stale entry, or "" on a cold miss; the loader simply sends no
// conditional header in that case.
type Loader[V any] func(ctx context.Context, token string) (LoadResult[V], error)

// Cache maps request fingerprints to payloads with two freshness
// mechanisms in one entry: a TTL on the capture time, and an optional
// revalidation token forwarded once the TTL has passed. An entry is
// therefore in one of four states: absent, fresh, stale awaiting
// revalidation, or stale and just revalidated. All loads dispatch
// through the shared Throttle. State is process-lifetime only.
type Cache[V any] struct {
	mu       sync.Mutex
	entries  map[string]*cacheEntry[V]
	ttl      time.Duration
	throttle *Throttle
	clock    func() time.Time
}

type cacheEntry[V any] struct {
	payload    V
	capturedAt time.Time
	token      string
}

// NewCache builds a cache in front of the given throttle.
func NewCache[V any](throttle *Throttle, ttl time.Duration) *Cache[V] {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache[V]{
		entries:  make(map[string]*cacheEntry[V]),
		ttl:      ttl,
		throttle: throttle,
	}
}

// Get serves a live entry without dispatching; otherwise it invokes
// load through the throttle, forwarding any stored revalidation token.
// Cold misses and stale revalidations share this one path.
func (c *Cache[V]) Get(ctx context.Context, fingerprint string, load Loader[V]) (V, error) {
	c.mu.Lock()
	entry := c.entries[fingerprint]
	if entry != nil && c.now().Sub(entry.capturedAt) < c.ttl {
		payload := entry.payload
		c.mu.Unlock()
		return payload, nil
	}
	var token string
	if entry != nil {
		token = entry.token
	}
	c.mu.Unlock()

	var result LoadResult[V]
	err := c.throttle.Dispatch(ctx, func(ctx context.Context) error {
		var loadErr error
		result, loadErr = load(ctx, token)
		return loadErr
	})
	if err != nil {
		var zero V
		return zero, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if result.NotModified {
		// Upstream confirmed no change; keep the payload we already
		// have and extend its freshness.
		if existing := c.entries[fingerprint]; existing != nil {
			existing.capturedAt = c.now()
			return existing.payload, nil
		}
		// A not-modified answer to an unconditional load has no payload
		// to fall back on.
		var zero V
		return zero, errors.New("upstream reported an unchanged entry that was never cached")
	}

	c.entries[fingerprint] = &cacheEntry[V]{
		payload:    result.Payload,
		capturedAt: c.now(),
		token:      result.Token,
	}
	return result.Payload, nil
}

func (c *Cache[V]) now() time.Time {
	if c.clock != nil {
		return c.clock()
	}
	return time.Now().UTC()
}
